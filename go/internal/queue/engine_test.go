package queue

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchdayhq/matchday/go/internal/matchstore"
	"github.com/matchdayhq/matchday/go/internal/models"
)

type fakeSlots struct {
	available bool
	err       error
}

func (f *fakeSlots) IsAvailable(ctx context.Context, date string, timeSlot int) (bool, error) {
	return f.available, f.err
}

func newTestEngine(store *matchstore.Memory) *Engine {
	return NewEngine(store, &fakeSlots{available: true}, zerolog.Nop())
}

func enqueueReq(teamID string) EnqueueRequest {
	return EnqueueRequest{TeamID: teamID, Division: 2, Date: "2026-09-05", TimeSlot: 19}
}

func TestEnqueue_WaitsWhenBucketEmpty(t *testing.T) {
	ctx := context.Background()
	store := matchstore.NewMemory()
	engine := newTestEngine(store)

	result, err := engine.Enqueue(ctx, enqueueReq("team-a"))
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, 1, result.QueuePosition)
	assert.Equal(t, 1, result.QueueCount)
}

func TestEnqueue_PairsWithOldestWaiting(t *testing.T) {
	ctx := context.Background()
	store := matchstore.NewMemory()
	engine := newTestEngine(store)

	// Three coexisting entries in one bucket cannot arise through the
	// engine (the second enqueue would pair). Seed them directly with
	// staggered EnqueuedAt so FIFO order is unambiguous.
	base := time.Now().UTC()
	for i, teamID := range []string{"team-a", "team-b", "team-c"} {
		_, err := store.InsertQueueEntry(ctx, &models.QueueEntry{
			TeamID:     teamID,
			Division:   2,
			Date:       "2026-09-05",
			TimeSlot:   19,
			EnqueuedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	result, err := engine.Enqueue(ctx, enqueueReq("team-d"))
	require.NoError(t, err)
	require.True(t, result.Matched)
	require.NotNil(t, result.Match)
	assert.Equal(t, "team-a", result.Match.Team1ID)
	assert.Equal(t, "team-d", result.Match.Team2ID)
	assert.Equal(t, models.MatchStatusScheduled, result.Match.Status)

	// team-b and team-c are still waiting, team-a is gone.
	entries, err := store.ListQueueEntries(ctx, models.SlotKey{Division: 2, Date: "2026-09-05", TimeSlot: 19})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "team-b", entries[0].TeamID)
	assert.Equal(t, "team-c", entries[1].TeamID)
}

func TestEnqueue_BucketsIsolateDivisionDateSlot(t *testing.T) {
	ctx := context.Background()
	store := matchstore.NewMemory()
	engine := newTestEngine(store)

	_, err := engine.Enqueue(ctx, enqueueReq("team-a"))
	require.NoError(t, err)

	otherDivision := enqueueReq("team-b")
	otherDivision.Division = 3
	result, err := engine.Enqueue(ctx, otherDivision)
	require.NoError(t, err)
	assert.False(t, result.Matched)

	otherSlot := enqueueReq("team-c")
	otherSlot.TimeSlot = 20
	result, err = engine.Enqueue(ctx, otherSlot)
	require.NoError(t, err)
	assert.False(t, result.Matched)

	otherDate := enqueueReq("team-d")
	otherDate.Date = "2026-09-06"
	result, err = engine.Enqueue(ctx, otherDate)
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestEnqueue_RejectsDoubleEnqueue(t *testing.T) {
	ctx := context.Background()
	store := matchstore.NewMemory()
	engine := newTestEngine(store)

	_, err := engine.Enqueue(ctx, enqueueReq("team-a"))
	require.NoError(t, err)

	_, err = engine.Enqueue(ctx, enqueueReq("team-a"))
	assert.ErrorIs(t, err, ErrAlreadyQueued)

	// Same team in a different bucket is still rejected: one entry per
	// team, not per bucket.
	other := enqueueReq("team-a")
	other.TimeSlot = 21
	_, err = engine.Enqueue(ctx, other)
	assert.ErrorIs(t, err, ErrAlreadyQueued)
}

func TestEnqueue_RejectsTeamWithActiveMatch(t *testing.T) {
	ctx := context.Background()
	store := matchstore.NewMemory()
	engine := newTestEngine(store)

	_, err := engine.Enqueue(ctx, enqueueReq("team-a"))
	require.NoError(t, err)
	result, err := engine.Enqueue(ctx, enqueueReq("team-b"))
	require.NoError(t, err)
	require.True(t, result.Matched)

	_, err = engine.Enqueue(ctx, enqueueReq("team-a"))
	assert.ErrorIs(t, err, ErrAlreadyMatched)
	_, err = engine.Enqueue(ctx, enqueueReq("team-b"))
	assert.ErrorIs(t, err, ErrAlreadyMatched)
}

func TestEnqueue_SlotUnavailable(t *testing.T) {
	ctx := context.Background()
	store := matchstore.NewMemory()
	engine := NewEngine(store, &fakeSlots{available: false}, zerolog.Nop())

	_, err := engine.Enqueue(ctx, enqueueReq("team-a"))
	assert.ErrorIs(t, err, ErrSlotUnavailable)

	// Nothing was queued.
	_, err = store.GetQueueEntry(ctx, "team-a")
	assert.ErrorIs(t, err, matchstore.ErrNotFound)
}

func TestEnqueue_WritesMatchCreatedOutbox(t *testing.T) {
	ctx := context.Background()
	store := matchstore.NewMemory()
	engine := newTestEngine(store)

	_, err := engine.Enqueue(ctx, enqueueReq("team-a"))
	require.NoError(t, err)
	result, err := engine.Enqueue(ctx, enqueueReq("team-b"))
	require.NoError(t, err)
	require.True(t, result.Matched)

	batch, err := store.FetchUnsentOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "MatchCreated", batch[0].EventType)
	assert.Equal(t, result.Match.ID, batch[0].MatchID)
}

func TestCancel_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := matchstore.NewMemory()
	engine := newTestEngine(store)

	_, err := engine.Enqueue(ctx, enqueueReq("team-a"))
	require.NoError(t, err)

	require.NoError(t, engine.Cancel(ctx, "team-a"))
	require.NoError(t, engine.Cancel(ctx, "team-a"))
	require.NoError(t, engine.Cancel(ctx, "never-queued"))

	// And the team can re-enqueue afterwards.
	result, err := engine.Enqueue(ctx, enqueueReq("team-a"))
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestStatus(t *testing.T) {
	ctx := context.Background()
	store := matchstore.NewMemory()
	engine := newTestEngine(store)

	st, err := engine.Status(ctx, "team-a")
	require.NoError(t, err)
	assert.False(t, st.InQueue)
	assert.Nil(t, st.ActiveMatch)

	_, err = engine.Enqueue(ctx, enqueueReq("team-a"))
	require.NoError(t, err)

	st, err = engine.Status(ctx, "team-a")
	require.NoError(t, err)
	assert.True(t, st.InQueue)
	assert.Equal(t, 1, st.QueuePosition)
	assert.Equal(t, 1, st.QueueCount)

	result, err := engine.Enqueue(ctx, enqueueReq("team-b"))
	require.NoError(t, err)
	require.True(t, result.Matched)

	st, err = engine.Status(ctx, "team-a")
	require.NoError(t, err)
	assert.False(t, st.InQueue)
	require.NotNil(t, st.ActiveMatch)
	assert.Equal(t, result.Match.ID, st.ActiveMatch.ID)
}
