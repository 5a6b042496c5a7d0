// Package reminder runs the periodic worker that finds matches entering
// the reminder window and sends each eligible participant exactly one
// reminder, never duplicating work across ticks.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/matchdayhq/matchday/go/internal/matchstore"
	"github.com/matchdayhq/matchday/go/internal/models"
)

// Store defines what the scheduler needs from the match store.
type Store interface {
	ListMatchesInWindow(ctx context.Context, from, to time.Time) ([]models.Match, error)
	ReminderSent(ctx context.Context, matchID uuid.UUID) (bool, error)
	MarkReminderSent(ctx context.Context, matchID uuid.UUID) error
	DeleteQueueEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RosterResolver resolves the participants of a match from the external
// roster, read-through at reminder time.
type RosterResolver interface {
	ParticipantsFor(ctx context.Context, matchID uuid.UUID) ([]models.Participant, error)
}

// Dispatcher delivers one notification to one device. The scheduler
// guarantees at most one dispatch intent per participant per match, not
// delivery.
type Dispatcher interface {
	Send(ctx context.Context, deviceToken, title, body string, payload map[string]string) error
}

type Config struct {
	TickInterval time.Duration
	Window       time.Duration // how far ahead of kickoff reminders go out
	MaxFanOut    int           // concurrent dispatches per match

	// QueueEntryTTL expires queue entries that were never paired or
	// cancelled. Zero disables expiry, matching the observed client
	// behavior of manual cancel only.
	QueueEntryTTL time.Duration
}

func DefaultConfig() Config {
	return Config{
		TickInterval: time.Minute,
		Window:       time.Hour,
		MaxFanOut:    8,
	}
}

// Scheduler is the single periodic reminder worker. Overlapping ticks
// are prevented by a tick-in-progress guard: a tick that comes due
// while the previous one still runs is skipped, not queued, so a slow
// store never builds a backlog.
type Scheduler struct {
	store      Store
	roster     RosterResolver
	dispatcher Dispatcher
	config     Config
	clock      clockwork.Clock
	logger     zerolog.Logger
	instanceID string

	tickMu sync.Mutex
}

// NewScheduler creates a reminder scheduler. A nil clock means the real
// clock; tests pass a fake one.
func NewScheduler(store Store, roster RosterResolver, dispatcher Dispatcher, cfg Config, clock clockwork.Clock, logger zerolog.Logger) *Scheduler {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Hour
	}
	if cfg.MaxFanOut <= 0 {
		cfg.MaxFanOut = 8
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		store:      store,
		roster:     roster,
		dispatcher: dispatcher,
		config:     cfg,
		clock:      clock,
		logger:     logger,
		instanceID: uuid.New().String()[:8], // short ID for logging
	}
}

// Run ticks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().
		Str("instance", s.instanceID).
		Dur("tick_interval", s.config.TickInterval).
		Dur("window", s.config.Window).
		Msg("reminder scheduler started")

	ticker := s.clock.NewTicker(s.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Str("instance", s.instanceID).Msg("reminder scheduler stopped")
			return nil
		case <-ticker.Chan():
			if err := s.Tick(ctx); err != nil {
				// Aborted ticks retry naturally on the next interval.
				s.logger.Error().
					Err(err).
					Str("instance", s.instanceID).
					Msg("tick aborted")
			}
		}
	}
}

// TriggerTick runs one tick immediately. Exposed for operational
// testing; it shares the same guard as timer-driven ticks.
func (s *Scheduler) TriggerTick(ctx context.Context) error {
	return s.Tick(ctx)
}

// Tick performs one pass over the reminder window. If another tick is
// still in progress this one is skipped.
func (s *Scheduler) Tick(ctx context.Context) error {
	if !s.tickMu.TryLock() {
		s.logger.Warn().Str("instance", s.instanceID).Msg("previous tick still running, skipping")
		return nil
	}
	defer s.tickMu.Unlock()

	now := s.clock.Now()

	if s.config.QueueEntryTTL > 0 {
		expired, err := s.store.DeleteQueueEntriesBefore(ctx, now.Add(-s.config.QueueEntryTTL))
		if err != nil {
			s.logger.Error().Err(err).Msg("queue expiry pass failed")
		} else if expired > 0 {
			s.logger.Info().Int64("expired", expired).Msg("expired stale queue entries")
		}
	}

	due, err := s.store.ListMatchesInWindow(ctx, now, now.Add(s.config.Window))
	if err != nil {
		// Abort cleanly: nothing has been marked yet.
		return fmt.Errorf("failed to list matches in window: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	s.logger.Info().
		Int("count_due", len(due)).
		Str("instance", s.instanceID).
		Msg("processing reminder window")

	for i := range due {
		if err := s.remind(ctx, &due[i]); err != nil {
			if errors.Is(err, matchstore.ErrUnavailable) {
				return fmt.Errorf("store unavailable during tick: %w", err)
			}
			s.logger.Error().
				Err(err).
				Str("match_id", due[i].ID.String()).
				Msg("reminder failed")
		}
	}
	return nil
}

// remind sends the one reminder for a single match. The exactly-once
// guarantee is the compare-and-set on reminder_sent: whichever tick
// wins the flip owns all dispatches for the match, and dispatch
// failures after the flip are logged but never retried.
func (s *Scheduler) remind(ctx context.Context, m *models.Match) error {
	sent, err := s.store.ReminderSent(ctx, m.ID)
	if err != nil {
		return err
	}
	if sent {
		return nil
	}

	if err := s.store.MarkReminderSent(ctx, m.ID); err != nil {
		if errors.Is(err, matchstore.ErrConflict) {
			s.logger.Debug().
				Str("match_id", m.ID.String()).
				Msg("reminder already claimed by another tick")
			return nil
		}
		return err
	}

	participants, err := s.roster.ParticipantsFor(ctx, m.ID)
	if err != nil {
		// The flag is already set; this match's reminder is spent.
		s.logger.Error().
			Err(err).
			Str("match_id", m.ID.String()).
			Msg("failed to resolve participants, reminder dropped")
		return nil
	}

	s.dispatchAll(ctx, m, participants)
	return nil
}

// dispatchAll fans out to the participants of one match with bounded
// concurrency.
func (s *Scheduler) dispatchAll(ctx context.Context, m *models.Match, participants []models.Participant) {
	title := "Match reminder"
	body := fmt.Sprintf("%s vs %s kicks off at %02d:00 on %s", m.Team1ID, m.Team2ID, m.TimeSlot, m.Date)
	payload := map[string]string{
		"match_id":  m.ID.String(),
		"team1_id":  m.Team1ID,
		"team2_id":  m.Team2ID,
		"date":      m.Date,
		"time_slot": strconv.Itoa(m.TimeSlot),
	}

	sem := make(chan struct{}, s.config.MaxFanOut)
	var wg sync.WaitGroup
	var failed int64
	var failedMu sync.Mutex

	for _, p := range participants {
		wg.Add(1)
		sem <- struct{}{}
		go func(p models.Participant) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.dispatcher.Send(ctx, p.DeviceToken, title, body, payload); err != nil {
				// Best-effort notification: delivery failures are
				// logged, not retried.
				failedMu.Lock()
				failed++
				failedMu.Unlock()
				s.logger.Warn().
					Err(err).
					Str("match_id", m.ID.String()).
					Str("user_id", p.UserID).
					Msg("reminder dispatch failed")
			}
		}(p)
	}
	wg.Wait()

	s.logger.Info().
		Str("match_id", m.ID.String()).
		Int("participants", len(participants)).
		Int64("failed", failed).
		Str("instance", s.instanceID).
		Msg("reminder dispatched")
}
