// Package match owns the finite-state transitions of a match:
// scheduled → confirmed (terminal success) and scheduled → cancelled
// (terminal failure). It is the sole mutator of match status.
package match

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/matchdayhq/matchday/go/internal/events"
	"github.com/matchdayhq/matchday/go/internal/matchstore"
	"github.com/matchdayhq/matchday/go/internal/models"
)

// Store defines what the controller needs from the match store.
type Store interface {
	GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error)
	UpdateMatchStatus(ctx context.Context, id uuid.UUID, expectedVersion int64, status models.MatchStatus, cancelled bool, event matchstore.OutboxEvent) (*models.Match, error)
}

// Controller applies lifecycle transitions with optimistic retries
// against the store's versioned match rows.
type Controller struct {
	store  Store
	logger zerolog.Logger
}

// NewController creates a lifecycle controller.
func NewController(store Store, logger zerolog.Logger) *Controller {
	return &Controller{
		store:  store,
		logger: logger,
	}
}

// Confirm moves a scheduled match to confirmed. Confirming an already
// confirmed match is an idempotent success: a second confirm from
// either team carries no side effects.
func (c *Controller) Confirm(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	for {
		m, err := c.get(ctx, matchID)
		if err != nil {
			return nil, err
		}
		if m.Cancelled {
			return nil, ErrAlreadyCancelled
		}
		if m.Status == models.MatchStatusConfirmed {
			return m, nil
		}

		updated, err := c.apply(ctx, m, models.MatchStatusConfirmed, false, events.TypeMatchConfirmed)
		if errors.Is(err, matchstore.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		c.logger.Info().
			Str("match_id", matchID.String()).
			Msg("confirmed match")
		return updated, nil
	}
}

// Cancel marks a match cancelled on behalf of one of its participants.
// The row is never deleted: a cancelled match stays visible to both
// sides so clients can tell "no match" apart from "match was cancelled".
// Cancelling an already cancelled match is an idempotent success.
func (c *Controller) Cancel(ctx context.Context, matchID uuid.UUID, requestingTeamID string) (*models.Match, error) {
	for {
		m, err := c.get(ctx, matchID)
		if err != nil {
			return nil, err
		}
		if !m.HasTeam(requestingTeamID) {
			return nil, ErrForbidden
		}
		if m.Cancelled {
			return m, nil
		}

		updated, err := c.apply(ctx, m, models.MatchStatusCancelled, true, events.TypeMatchCancelled)
		if errors.Is(err, matchstore.ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}

		c.logger.Info().
			Str("match_id", matchID.String()).
			Str("requested_by", requestingTeamID).
			Msg("cancelled match")
		return updated, nil
	}
}

// Get retrieves a match by id.
func (c *Controller) Get(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	return c.get(ctx, matchID)
}

func (c *Controller) get(ctx context.Context, matchID uuid.UUID) (*models.Match, error) {
	m, err := c.store.GetMatch(ctx, matchID)
	if errors.Is(err, matchstore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return m, nil
}

func (c *Controller) apply(ctx context.Context, m *models.Match, status models.MatchStatus, cancelled bool, eventType string) (*models.Match, error) {
	// The event payload snapshots the post-transition state.
	next := *m
	next.Status = status
	next.Cancelled = cancelled

	event, err := events.NewOutboxEvent(eventType, &next)
	if err != nil {
		return nil, err
	}

	updated, err := c.store.UpdateMatchStatus(ctx, m.ID, m.Version, status, cancelled, event)
	if err != nil {
		if errors.Is(err, matchstore.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update match status: %w", err)
	}
	return updated, nil
}
