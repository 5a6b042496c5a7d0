package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/matchdayhq/matchday/go/internal/matchstore"
)

// EventPublisher publishes a single outbox event to the bus.
type EventPublisher interface {
	Publish(ctx context.Context, event matchstore.OutboxEvent) error
}

// OutboxStore defines what the relay needs from the match store.
type OutboxStore interface {
	FetchUnsentOutbox(ctx context.Context, limit int32) ([]matchstore.OutboxEvent, error)
	MarkOutboxSent(ctx context.Context, ids []uuid.UUID) error
}

type RelayConfig struct {
	PollInterval time.Duration
	BatchSize    int32
	MaxRetries   int
	RetryDelay   time.Duration
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		PollInterval: 5 * time.Second,
		BatchSize:    100,
		MaxRetries:   3,
		RetryDelay:   time.Second,
	}
}

// Relay drains the match event outbox onto the bus. Rows stay unsent
// until publishing succeeds, so delivery is at-least-once; JetStream's
// duplicate window collapses replays by event id.
type Relay struct {
	store     OutboxStore
	publisher EventPublisher
	config    RelayConfig
	logger    zerolog.Logger

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

func NewRelay(store OutboxStore, publisher EventPublisher, cfg RelayConfig, logger zerolog.Logger) *Relay {
	return &Relay{
		store:     store,
		publisher: publisher,
		config:    cfg,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
}

func (r *Relay) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("outbox relay already running")
	}
	r.running = true
	r.mu.Unlock()

	r.wg.Add(1)
	go r.run(ctx)

	r.logger.Info().
		Dur("poll_interval", r.config.PollInterval).
		Int32("batch_size", r.config.BatchSize).
		Msg("outbox relay started")

	return nil
}

func (r *Relay) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return fmt.Errorf("outbox relay not running")
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopChan)
	r.wg.Wait()

	r.logger.Info().Msg("outbox relay stopped")
	return nil
}

func (r *Relay) run(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	// Process immediately on start
	r.processOutbox(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.processOutbox(ctx)
		}
	}
}

func (r *Relay) processOutbox(ctx context.Context) {
	batch, err := r.store.FetchUnsentOutbox(ctx, r.config.BatchSize)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to fetch unsent events")
		return
	}
	if len(batch) == 0 {
		return
	}

	r.logger.Debug().Int("count", len(batch)).Msg("processing outbox events")

	var successfulIDs []uuid.UUID
	for _, event := range batch {
		if err := r.publishWithRetry(ctx, event); err != nil {
			r.logger.Error().
				Err(err).
				Str("event_id", event.ID.String()).
				Str("event_type", event.EventType).
				Msg("failed to publish event")
			continue
		}
		successfulIDs = append(successfulIDs, event.ID)
	}

	if len(successfulIDs) > 0 {
		if err := r.store.MarkOutboxSent(ctx, successfulIDs); err != nil {
			r.logger.Error().Err(err).Msg("failed to mark events as sent")
			return
		}
	}

	r.logger.Info().
		Int("total", len(batch)).
		Int("successful", len(successfulIDs)).
		Msg("processed outbox events")
}

func (r *Relay) publishWithRetry(ctx context.Context, event matchstore.OutboxEvent) error {
	var lastErr error

	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := r.publisher.Publish(ctx, event); err != nil {
			lastErr = err
			r.logger.Warn().
				Str("event_id", event.ID.String()).
				Int("attempt", attempt+1).
				Err(err).
				Msg("failed to publish event, retrying")
			continue
		}

		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", r.config.MaxRetries+1, lastErr)
}
