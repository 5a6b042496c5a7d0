package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchdayhq/matchday/go/internal/matchstore"
	"github.com/matchdayhq/matchday/go/internal/models"
)

type fakePublisher struct {
	mu        sync.Mutex
	published []uuid.UUID
	failFirst int // fail this many calls before succeeding
	calls     int
}

func (f *fakePublisher) Publish(ctx context.Context, event matchstore.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failFirst {
		return errors.New("bus unavailable")
	}
	f.published = append(f.published, event.ID)
	return nil
}

func (f *fakePublisher) publishedIDs() []uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uuid.UUID(nil), f.published...)
}

func seedOutboxEvent(t *testing.T, store *matchstore.Memory, team1, team2 string) uuid.UUID {
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

	m := &models.Match{
		ID:       uuid.New(),
		Team1ID:  team1,
		Team2ID:  team2,
		Division: 2,
		Date:     "2026-09-05",
		TimeSlot: 19,
		Status:   models.MatchStatusScheduled,
	}
	event, err := NewOutboxEvent(TypeMatchCreated, m)
	require.NoError(t, err)

	_, err = store.PairMatch(ctx, *opponent, m, event)
	require.NoError(t, err)
	return event.ID
}

func testRelayConfig() RelayConfig {
	return RelayConfig{
		PollInterval: 10 * time.Millisecond,
		BatchSize:    100,
		MaxRetries:   2,
		RetryDelay:   time.Millisecond,
	}
}

func TestRelay_PublishesAndMarksSent(t *testing.T) {
	ctx := context.Background()
	store := matchstore.NewMemory()
	publisher := &fakePublisher{}
	eventID := seedOutboxEvent(t, store, "team-a", "team-b")

	relay := NewRelay(store, publisher, testRelayConfig(), zerolog.Nop())
	relay.processOutbox(ctx)

	assert.Equal(t, []uuid.UUID{eventID}, publisher.publishedIDs())

	batch, err := store.FetchUnsentOutbox(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestRelay_RetriesTransientPublishFailure(t *testing.T) {
	ctx := context.Background()
	store := matchstore.NewMemory()
	publisher := &fakePublisher{failFirst: 2}
	eventID := seedOutboxEvent(t, store, "team-a", "team-b")

	relay := NewRelay(store, publisher, testRelayConfig(), zerolog.Nop())
	relay.processOutbox(ctx)

	assert.Equal(t, []uuid.UUID{eventID}, publisher.publishedIDs())
}

func TestRelay_KeepsEventWhenPublishExhaustsRetries(t *testing.T) {
	ctx := context.Background()
	store := matchstore.NewMemory()
	publisher := &fakePublisher{failFirst: 100}
	seedOutboxEvent(t, store, "team-a", "team-b")

	relay := NewRelay(store, publisher, testRelayConfig(), zerolog.Nop())
	relay.processOutbox(ctx)

	assert.Empty(t, publisher.publishedIDs())

	// The row stays unsent, so the next pass picks it up again.
	batch, err := store.FetchUnsentOutbox(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}

func TestRelay_StartStop(t *testing.T) {
	ctx := context.Background()
	store := matchstore.NewMemory()
	publisher := &fakePublisher{}
	seedOutboxEvent(t, store, "team-a", "team-b")

	relay := NewRelay(store, publisher, testRelayConfig(), zerolog.Nop())
	require.NoError(t, relay.Start(ctx))
	assert.Error(t, relay.Start(ctx)) // already running

	assert.Eventually(t, func() bool {
		return len(publisher.publishedIDs()) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, relay.Stop())
	assert.Error(t, relay.Stop()) // already stopped
}
