package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := loadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := setupDatabase()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	services, err := setupServices(db, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup services")
	}

	server := setupServer(services)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Background workers: websocket fan-out, event consumer, store
	// poller, outbox relay and the reminder scheduler.
	go services.ConnMgr.Start(ctx)

	go func() {
		if err := services.Consumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("event consumer failed")
		}
	}()

	go func() {
		if err := services.Poller.Run(ctx); err != nil {
			log.Error().Err(err).Msg("bridge poller failed")
		}
	}()

	if err := services.Relay.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start outbox relay")
	}

	go func() {
		if err := services.Scheduler.Run(ctx); err != nil {
			log.Error().Err(err).Msg("reminder scheduler failed")
		}
	}()

	// Start HTTP server
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	if err := services.Relay.Stop(); err != nil {
		log.Error().Err(err).Msg("outbox relay shutdown failed")
	}
	if err := services.Consumer.Close(); err != nil {
		log.Error().Err(err).Msg("event consumer shutdown failed")
	}
	if err := services.Publisher.Close(); err != nil {
		log.Error().Err(err).Msg("event publisher shutdown failed")
	}

	// Cancel worker context and give goroutines time to clean up
	cancel()
	time.Sleep(1 * time.Second)

	log.Info().Msg("matchday shutdown complete")
}
