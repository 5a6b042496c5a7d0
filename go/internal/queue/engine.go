// Package queue owns queue admission, FIFO pairing and cancellation for
// the matchmaking queue.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/matchdayhq/matchday/go/internal/events"
	"github.com/matchdayhq/matchday/go/internal/matchstore"
	"github.com/matchdayhq/matchday/go/internal/models"
)

// Store defines what the engine needs from the match store.
type Store interface {
	GetQueueEntry(ctx context.Context, teamID string) (*models.QueueEntry, error)
	ListQueueEntries(ctx context.Context, key models.SlotKey) ([]models.QueueEntry, error)
	InsertQueueEntry(ctx context.Context, entry *models.QueueEntry) (*models.QueueEntry, error)
	DeleteQueueEntry(ctx context.Context, teamID string) error
	GetActiveMatchForTeam(ctx context.Context, teamID string) (*models.Match, error)
	PairMatch(ctx context.Context, opponent models.QueueEntry, match *models.Match, event matchstore.OutboxEvent) (*models.Match, error)
}

// SlotChecker is the external resource-booking collaborator, asked
// before admission so a taken pitch never wastes a queue entry.
type SlotChecker interface {
	IsAvailable(ctx context.Context, date string, timeSlot int) (bool, error)
}

// Engine is the matchmaking queue engine. It is the sole creator of
// matches; status transitions after creation belong to the lifecycle
// controller.
type Engine struct {
	store  Store
	slots  SlotChecker
	logger zerolog.Logger
}

// NewEngine creates a queue engine.
func NewEngine(store Store, slots SlotChecker, logger zerolog.Logger) *Engine {
	return &Engine{
		store:  store,
		slots:  slots,
		logger: logger,
	}
}

// Enqueue admits a team into the bucket for (division, date, slot). If
// a compatible entry is already waiting the two are paired immediately:
// the waiting entry is consumed, a scheduled match is created and a
// MatchCreated event is queued for both teams. Otherwise the team joins
// the bucket in FIFO order.
func (e *Engine) Enqueue(ctx context.Context, req EnqueueRequest) (*EnqueueResult, error) {
	if _, err := e.store.GetActiveMatchForTeam(ctx, req.TeamID); err == nil {
		return nil, ErrAlreadyMatched
	} else if !errors.Is(err, matchstore.ErrNotFound) {
		return nil, fmt.Errorf("failed to check active match: %w", err)
	}

	if _, err := e.store.GetQueueEntry(ctx, req.TeamID); err == nil {
		return nil, ErrAlreadyQueued
	} else if !errors.Is(err, matchstore.ErrNotFound) {
		return nil, fmt.Errorf("failed to check queue entry: %w", err)
	}

	available, err := e.slots.IsAvailable(ctx, req.Date, req.TimeSlot)
	if err != nil {
		return nil, fmt.Errorf("failed to check slot availability: %w", err)
	}
	if !available {
		return nil, ErrSlotUnavailable
	}

	key := models.SlotKey{Division: req.Division, Date: req.Date, TimeSlot: req.TimeSlot}

	// Pair against the oldest waiting entry. Losing the
	// compare-and-delete race means another enqueue consumed that
	// entry first; re-list and try the next one until the bucket is
	// empty, then wait in it ourselves.
	for {
		waiting, err := e.store.ListQueueEntries(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to list queue entries: %w", err)
		}

		var opponent *models.QueueEntry
		for i := range waiting {
			if waiting[i].TeamID != req.TeamID {
				opponent = &waiting[i]
				break
			}
		}
		if opponent == nil {
			return e.insertEntry(ctx, req, key)
		}

		match := &models.Match{
			ID:       uuid.New(),
			Team1ID:  opponent.TeamID,
			Team2ID:  req.TeamID,
			Division: req.Division,
			Date:     req.Date,
			TimeSlot: req.TimeSlot,
			Status:   models.MatchStatusScheduled,
		}
		event, err := events.NewOutboxEvent(events.TypeMatchCreated, match)
		if err != nil {
			return nil, err
		}

		created, err := e.store.PairMatch(ctx, *opponent, match, event)
		if errors.Is(err, matchstore.ErrConflict) {
			e.logger.Debug().
				Str("team_id", req.TeamID).
				Str("opponent_id", opponent.TeamID).
				Msg("lost pairing race, retrying")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to pair match: %w", err)
		}

		e.logger.Info().
			Str("match_id", created.ID.String()).
			Str("team1_id", created.Team1ID).
			Str("team2_id", created.Team2ID).
			Int("division", created.Division).
			Msg("paired match")

		return &EnqueueResult{Matched: true, Match: created}, nil
	}
}

func (e *Engine) insertEntry(ctx context.Context, req EnqueueRequest, key models.SlotKey) (*EnqueueResult, error) {
	entry := &models.QueueEntry{
		TeamID:     req.TeamID,
		Division:   req.Division,
		Date:       req.Date,
		TimeSlot:   req.TimeSlot,
		EnqueuedAt: time.Now().UTC(),
	}
	inserted, err := e.store.InsertQueueEntry(ctx, entry)
	if errors.Is(err, matchstore.ErrConflict) {
		// A concurrent enqueue for the same team won.
		return nil, ErrAlreadyQueued
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert queue entry: %w", err)
	}

	position, count, err := e.bucketPosition(ctx, key, inserted.TeamID)
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Str("team_id", req.TeamID).
		Int("division", req.Division).
		Str("date", req.Date).
		Int("time_slot", req.TimeSlot).
		Int("queue_position", position).
		Msg("enqueued team")

	return &EnqueueResult{Matched: false, QueuePosition: position, QueueCount: count}, nil
}

// Cancel removes the team's queue entry. Cancelling a team that is not
// queued is a no-op: retrying clients may send duplicate cancels.
func (e *Engine) Cancel(ctx context.Context, teamID string) error {
	err := e.store.DeleteQueueEntry(ctx, teamID)
	if errors.Is(err, matchstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete queue entry: %w", err)
	}

	e.logger.Info().Str("team_id", teamID).Msg("cancelled queue entry")
	return nil
}

// Status is a pure read of the team's queue and match situation, used
// by polling clients and by the bridge's reconciliation pass.
func (e *Engine) Status(ctx context.Context, teamID string) (*Status, error) {
	st := &Status{}

	entry, err := e.store.GetQueueEntry(ctx, teamID)
	switch {
	case err == nil:
		position, count, perr := e.bucketPosition(ctx, entry.Key(), teamID)
		if perr != nil {
			return nil, perr
		}
		st.InQueue = true
		st.QueuePosition = position
		st.QueueCount = count
	case errors.Is(err, matchstore.ErrNotFound):
		// Not queued; fall through to the match check.
	default:
		return nil, fmt.Errorf("failed to get queue entry: %w", err)
	}

	match, err := e.store.GetActiveMatchForTeam(ctx, teamID)
	if err == nil {
		st.ActiveMatch = match
	} else if !errors.Is(err, matchstore.ErrNotFound) {
		return nil, fmt.Errorf("failed to get active match: %w", err)
	}

	return st, nil
}

func (e *Engine) bucketPosition(ctx context.Context, key models.SlotKey, teamID string) (position, count int, err error) {
	waiting, err := e.store.ListQueueEntries(ctx, key)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list queue entries: %w", err)
	}
	for i := range waiting {
		if waiting[i].TeamID == teamID {
			position = i + 1
		}
	}
	return position, len(waiting), nil
}
