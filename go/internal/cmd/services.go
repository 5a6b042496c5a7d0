package main

import (
	"database/sql"
	"fmt"

	"github.com/jonboulle/clockwork"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/matchdayhq/matchday/go/clients/booking_client"
	"github.com/matchdayhq/matchday/go/clients/push_client"
	"github.com/matchdayhq/matchday/go/clients/roster_client"
	"github.com/matchdayhq/matchday/go/internal/bridge"
	"github.com/matchdayhq/matchday/go/internal/events"
	"github.com/matchdayhq/matchday/go/internal/match"
	"github.com/matchdayhq/matchday/go/internal/matchstore"
	"github.com/matchdayhq/matchday/go/internal/queue"
	"github.com/matchdayhq/matchday/go/internal/reminder"
)

type Services struct {
	Store    *matchstore.Postgres
	Queue    *queue.Engine
	Matches  *match.Controller
	Bridge   *bridge.Bridge
	ConnMgr  *bridge.ConnectionManager
	Poller   *bridge.Poller
	Consumer *bridge.EventConsumer
	WS       *bridge.WebSocketHandler

	Publisher *events.JetStreamPublisher
	Relay     *events.Relay
	Scheduler *reminder.Scheduler
}

func setupServices(database *sql.DB, cfg *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Store layer → domain layer → bridge/worker layer

	store := matchstore.NewPostgres(database)

	bookingClient := booking_client.NewBookingClient(
		getEnv("BOOKING_SERVICE_URL", cfg.Clients.Booking.BaseURL),
		getEnv("BOOKING_API_KEY", cfg.Clients.Booking.APIKey),
	)
	rosterClient := roster_client.NewRosterClient(
		getEnv("ROSTER_SERVICE_URL", cfg.Clients.Roster.BaseURL),
		getEnv("ROSTER_API_KEY", cfg.Clients.Roster.APIKey),
	)
	pushClient := push_client.NewPushClient(
		getEnv("PUSH_SERVICE_URL", cfg.Clients.Push.BaseURL),
		getEnv("PUSH_API_KEY", cfg.Clients.Push.APIKey),
	)

	engine := queue.NewEngine(store, bookingClient, log.With().Str("component", "queue").Logger())
	controller := match.NewController(store, log.With().Str("component", "match").Logger())

	// Event bridge: NATS consumer for low latency, store poller as the
	// fallback that also catches pairings the consumer never saw.
	connMgr := bridge.NewConnectionManager(bridge.DefaultConnectionConfig())
	b := bridge.New(connMgr, log.With().Str("component", "bridge").Logger())

	pollInterval, err := parseDuration(cfg.Bridge.PollInterval, bridge.DefaultPollInterval)
	if err != nil {
		return nil, err
	}
	poller := bridge.NewPoller(b, store, pollInterval, clockwork.NewRealClock(), log.With().Str("component", "bridge_poller").Logger())

	natsURL := getEnv("NATS_URL", nats.DefaultURL)

	pubCfg := events.DefaultJetStreamConfig()
	pubCfg.URL = natsURL
	publisher, err := events.NewJetStreamPublisher(pubCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}

	relay := events.NewRelay(store, publisher, events.DefaultRelayConfig(), log.With().Str("component", "outbox_relay").Logger())

	consCfg := bridge.DefaultJetStreamConsumerConfig()
	consCfg.URL = natsURL
	consumer, err := bridge.NewEventConsumer(b, consCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create event consumer: %w", err)
	}

	schedCfg, err := reminderConfig(cfg)
	if err != nil {
		return nil, err
	}
	scheduler := reminder.NewScheduler(store, rosterClient, pushClient, schedCfg, clockwork.NewRealClock(), log.With().Str("component", "reminder").Logger())

	return &Services{
		Store:     store,
		Queue:     engine,
		Matches:   controller,
		Bridge:    b,
		ConnMgr:   connMgr,
		Poller:    poller,
		Consumer:  consumer,
		WS:        bridge.NewWebSocketHandler(connMgr),
		Publisher: publisher,
		Relay:     relay,
		Scheduler: scheduler,
	}, nil
}

func reminderConfig(cfg *Config) (reminder.Config, error) {
	out := reminder.DefaultConfig()

	var err error
	if out.TickInterval, err = parseDuration(cfg.Reminder.TickInterval, out.TickInterval); err != nil {
		return out, err
	}
	if out.Window, err = parseDuration(cfg.Reminder.Window, out.Window); err != nil {
		return out, err
	}
	if out.QueueEntryTTL, err = parseDuration(cfg.Reminder.QueueEntryTTL, out.QueueEntryTTL); err != nil {
		return out, err
	}
	if cfg.Reminder.MaxFanOut > 0 {
		out.MaxFanOut = cfg.Reminder.MaxFanOut
	}
	// Env wins over the config file for per-deploy tuning.
	out.MaxFanOut = getEnvAsInt("REMINDER_MAX_FAN_OUT", out.MaxFanOut)
	return out, nil
}
