package bridge

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/matchdayhq/matchday/go/internal/matchstore"
	"github.com/matchdayhq/matchday/go/internal/models"
)

// PollStore defines the reads the reconciliation pass needs.
type PollStore interface {
	GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error)
	GetActiveMatchForTeam(ctx context.Context, teamID string) (*models.Match, error)
}

const DefaultPollInterval = 5 * time.Second

// Poller is the fallback half of the bridge: every interval it re-reads
// the store for the matches the bridge already tracks (catching missed
// status changes, cancellations included) and for the teams with live
// subscribers (catching missed creations). Everything it finds goes
// through Bridge.Apply, so a push event that already arrived makes the
// poll's copy a silent no-op.
type Poller struct {
	bridge   *Bridge
	store    PollStore
	interval time.Duration
	clock    clockwork.Clock
	logger   zerolog.Logger
}

func NewPoller(b *Bridge, store PollStore, interval time.Duration, clock clockwork.Clock, logger zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Poller{
		bridge:   b,
		store:    store,
		interval: interval,
		clock:    clock,
		logger:   logger,
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info().Dur("interval", p.interval).Msg("bridge poller started")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("bridge poller stopped")
			return nil
		case <-ticker.Chan():
			p.Reconcile(ctx)
		}
	}
}

// Reconcile performs one reconciliation pass.
func (p *Poller) Reconcile(ctx context.Context) {
	for _, id := range p.bridge.TrackedMatches() {
		m, err := p.store.GetMatch(ctx, id)
		if err != nil {
			if !errors.Is(err, matchstore.ErrNotFound) {
				p.logger.Warn().Err(err).Str("match_id", id.String()).Msg("poll read failed")
			}
			continue
		}
		p.bridge.ApplySnapshot(m)
	}

	for _, teamID := range p.bridge.SubscribedTeams() {
		m, err := p.store.GetActiveMatchForTeam(ctx, teamID)
		if err != nil {
			if !errors.Is(err, matchstore.ErrNotFound) {
				p.logger.Warn().Err(err).Str("team_id", teamID).Msg("poll read failed")
			}
			continue
		}
		p.bridge.ApplySnapshot(m)
	}
}
