package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchdayhq/matchday/go/internal/events"
	"github.com/matchdayhq/matchday/go/internal/matchstore"
	"github.com/matchdayhq/matchday/go/internal/models"
)

func seedStoreMatch(t *testing.T, store *matchstore.Memory, team1, team2 string) *models.Match {
	t.Helper()
	ctx := context.Background()

	opponent, err := store.InsertQueueEntry(ctx, &models.QueueEntry{
		TeamID:     team1,
		Division:   2,
		Date:       "2026-09-05",
		TimeSlot:   19,
		EnqueuedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	m, err := store.PairMatch(ctx, *opponent, &models.Match{
		ID:       uuid.New(),
		Team1ID:  team1,
		Team2ID:  team2,
		Division: 2,
		Date:     "2026-09-05",
		TimeSlot: 19,
		Status:   models.MatchStatusScheduled,
	}, matchstore.OutboxEvent{})
	require.NoError(t, err)
	return m
}

func TestReconcile_DiscoversMatchForSubscribedTeam(t *testing.T) {
	ctx := context.Background()
	store := matchstore.NewMemory()
	b := New(nil, zerolog.Nop())

	received := make(chan events.MatchEventPayload, 1)
	cancel := b.Subscribe("team-b", func(p events.MatchEventPayload) {
		received <- p
	})
	defer cancel()

	m := seedStoreMatch(t, store, "team-a", "team-b")

	p := NewPoller(b, store, DefaultPollInterval, clockwork.NewFakeClock(), zerolog.Nop())
	p.Reconcile(ctx)

	select {
	case payload := <-received:
		assert.Equal(t, m.ID, payload.MatchID)
		assert.Equal(t, models.MatchStatusScheduled, payload.Status)
	default:
		t.Fatal("expected a payload for the subscribed team")
	}

	// A second pass sees the same state and stays silent.
	p.Reconcile(ctx)
	select {
	case <-received:
		t.Fatal("unchanged state must not be re-delivered")
	default:
	}
}

func TestReconcile_PropagatesCancellation(t *testing.T) {
	ctx := context.Background()
	store := matchstore.NewMemory()
	b := New(nil, zerolog.Nop())

	m := seedStoreMatch(t, store, "team-a", "team-b")
	require.True(t, b.ApplySnapshot(m))

	received := make(chan events.MatchEventPayload, 1)
	cancel := b.Subscribe("team-a", func(p events.MatchEventPayload) {
		received <- p
	})
	defer cancel()

	// Cancelled behind the bridge's back, e.g. by another instance
	// whose bus event was lost.
	_, err := store.UpdateMatchStatus(ctx, m.ID, m.Version, models.MatchStatusCancelled, true, matchstore.OutboxEvent{})
	require.NoError(t, err)

	p := NewPoller(b, store, DefaultPollInterval, clockwork.NewFakeClock(), zerolog.Nop())
	p.Reconcile(ctx)

	select {
	case payload := <-received:
		assert.True(t, payload.Cancelled)
		assert.Equal(t, models.MatchStatusCancelled, payload.Status)
	default:
		t.Fatal("expected the cancellation to reach the subscriber")
	}
}

func TestRun_TicksOnInterval(t *testing.T) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	store := matchstore.NewMemory()
	b := New(nil, zerolog.Nop())
	clock := clockwork.NewFakeClock()

	received := make(chan events.MatchEventPayload, 1)
	cancel := b.Subscribe("team-b", func(p events.MatchEventPayload) {
		received <- p
	})
	defer cancel()

	seedStoreMatch(t, store, "team-a", "team-b")

	p := NewPoller(b, store, 5*time.Second, clock, zerolog.Nop())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Run(ctx)
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(5 * time.Second)

	select {
	case payload := <-received:
		assert.Equal(t, models.MatchStatusScheduled, payload.Status)
	case <-time.After(time.Second):
		t.Fatal("expected a reconciliation pass after one interval")
	}

	cancelCtx()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop on context cancellation")
	}
}
