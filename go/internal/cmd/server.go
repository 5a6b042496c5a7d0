package main

import (
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

func setupServer(services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	// Register the JSON API and the WebSocket routes
	registerRoutes(mux, services)
	services.WS.RegisterRoutes(mux)

	// Add health check endpoint
	setupHealthCheck(mux)

	// Wrap with CORS
	handler := c.Handler(mux)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", getEnv("PORT", "8080")),
		Handler: handler,
	}
}

func registerRoutes(mux *http.ServeMux, services *Services) {
	api := &apiHandler{services: services}

	mux.HandleFunc("POST /api/queue", api.enqueue)
	mux.HandleFunc("GET /api/queue/{teamID}", api.queueStatus)
	mux.HandleFunc("DELETE /api/queue/{teamID}", api.cancelQueue)

	mux.HandleFunc("GET /api/matches/{matchID}", api.getMatch)
	mux.HandleFunc("POST /api/matches/{matchID}/confirm", api.confirmMatch)
	mux.HandleFunc("POST /api/matches/{matchID}/cancel", api.cancelMatch)

	mux.HandleFunc("POST /api/reminders/tick", api.triggerReminderTick)
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
