package matchstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchdayhq/matchday/go/internal/models"
)

func testEntry(teamID string) *models.QueueEntry {
	return &models.QueueEntry{
		TeamID:     teamID,
		Division:   2,
		Date:       "2026-09-05",
		TimeSlot:   19,
		EnqueuedAt: time.Now().UTC(),
	}
}

func testMatch(team1, team2 string) *models.Match {
	return &models.Match{
		ID:       uuid.New(),
		Team1ID:  team1,
		Team2ID:  team2,
		Division: 2,
		Date:     "2026-09-05",
		TimeSlot: 19,
		Status:   models.MatchStatusScheduled,
	}
}

func TestInsertQueueEntry_DuplicateTeamConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	first, err := store.InsertQueueEntry(ctx, testEntry("team-a"))
	require.NoError(t, err)
	assert.NotZero(t, first.Seq)

	_, err = store.InsertQueueEntry(ctx, testEntry("team-a"))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestListQueueEntries_FIFOOrder(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	base := time.Now().UTC()
	for i, teamID := range []string{"team-a", "team-b", "team-c"} {
		entry := testEntry(teamID)
		entry.EnqueuedAt = base.Add(time.Duration(i) * time.Second)
		_, err := store.InsertQueueEntry(ctx, entry)
		require.NoError(t, err)
	}

	entries, err := store.ListQueueEntries(ctx, models.SlotKey{Division: 2, Date: "2026-09-05", TimeSlot: 19})
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "team-a", entries[0].TeamID)
	assert.Equal(t, "team-b", entries[1].TeamID)
	assert.Equal(t, "team-c", entries[2].TeamID)
}

func TestPairMatch_ConsumesEntryAndWritesOutbox(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	opponent, err := store.InsertQueueEntry(ctx, testEntry("team-a"))
	require.NoError(t, err)

	m := testMatch("team-a", "team-b")
	created, err := store.PairMatch(ctx, *opponent, m, OutboxEvent{MatchID: m.ID, EventType: "MatchCreated"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.Version)
	assert.False(t, created.CreatedAt.IsZero())

	_, err = store.GetQueueEntry(ctx, "team-a")
	assert.ErrorIs(t, err, ErrNotFound)

	events, err := store.FetchUnsentOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, m.ID, events[0].MatchID)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
}

func TestPairMatch_StaleSeqConflicts(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	opponent, err := store.InsertQueueEntry(ctx, testEntry("team-a"))
	require.NoError(t, err)

	// Simulate a concurrent pairing that consumed and re-created the
	// entry: the stored Seq no longer matches the one we read.
	stale := *opponent
	stale.Seq = opponent.Seq + 100

	_, err = store.PairMatch(ctx, stale, testMatch("team-a", "team-b"), OutboxEvent{})
	assert.ErrorIs(t, err, ErrConflict)

	// The real entry is untouched.
	current, err := store.GetQueueEntry(ctx, "team-a")
	require.NoError(t, err)
	assert.Equal(t, opponent.Seq, current.Seq)
}

func TestUpdateMatchStatus_VersionGate(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	opponent, err := store.InsertQueueEntry(ctx, testEntry("team-a"))
	require.NoError(t, err)
	m, err := store.PairMatch(ctx, *opponent, testMatch("team-a", "team-b"), OutboxEvent{})
	require.NoError(t, err)

	updated, err := store.UpdateMatchStatus(ctx, m.ID, m.Version, models.MatchStatusConfirmed, false, OutboxEvent{MatchID: m.ID})
	require.NoError(t, err)
	assert.Equal(t, models.MatchStatusConfirmed, updated.Status)
	assert.Equal(t, m.Version+1, updated.Version)

	// Replaying with the old version loses.
	_, err = store.UpdateMatchStatus(ctx, m.ID, m.Version, models.MatchStatusCancelled, true, OutboxEvent{MatchID: m.ID})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = store.UpdateMatchStatus(ctx, uuid.New(), 1, models.MatchStatusConfirmed, false, OutboxEvent{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetActiveMatchForTeam_IgnoresCancelled(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	opponent, err := store.InsertQueueEntry(ctx, testEntry("team-a"))
	require.NoError(t, err)
	m, err := store.PairMatch(ctx, *opponent, testMatch("team-a", "team-b"), OutboxEvent{})
	require.NoError(t, err)

	active, err := store.GetActiveMatchForTeam(ctx, "team-b")
	require.NoError(t, err)
	assert.Equal(t, m.ID, active.ID)

	_, err = store.UpdateMatchStatus(ctx, m.ID, m.Version, models.MatchStatusCancelled, true, OutboxEvent{})
	require.NoError(t, err)

	_, err = store.GetActiveMatchForTeam(ctx, "team-b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListMatchesInWindow_HalfOpenBounds(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	seed := func(team1, team2, date string, slot int) *models.Match {
		t.Helper()
		opponent, err := store.InsertQueueEntry(ctx, &models.QueueEntry{
			TeamID: team1, Division: 1, Date: date, TimeSlot: slot, EnqueuedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
		m := testMatch(team1, team2)
		m.Division = 1
		m.Date = date
		m.TimeSlot = slot
		created, err := store.PairMatch(ctx, *opponent, m, OutboxEvent{})
		require.NoError(t, err)
		return created
	}

	inside := seed("a1", "a2", "2026-09-05", 18)
	atUpperBound := seed("b1", "b2", "2026-09-05", 19)
	seed("c1", "c2", "2026-09-06", 10)

	from := time.Date(2026, 9, 5, 18, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 5, 19, 0, 0, 0, time.UTC)

	due, err := store.ListMatchesInWindow(ctx, from, to)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, inside.ID, due[0].ID)

	// The upper bound is exclusive so slot 19 shows up once the window
	// slides forward.
	due, err = store.ListMatchesInWindow(ctx, to, to.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, atUpperBound.ID, due[0].ID)
}

func TestMarkReminderSent_SingleFlip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	matchID := uuid.New()

	sent, err := store.ReminderSent(ctx, matchID)
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, store.MarkReminderSent(ctx, matchID))
	assert.ErrorIs(t, store.MarkReminderSent(ctx, matchID), ErrConflict)

	sent, err = store.ReminderSent(ctx, matchID)
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestOutbox_MarkSentExcludesFromFetch(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	opponent, err := store.InsertQueueEntry(ctx, testEntry("team-a"))
	require.NoError(t, err)
	_, err = store.PairMatch(ctx, *opponent, testMatch("team-a", "team-b"), OutboxEvent{EventType: "MatchCreated"})
	require.NoError(t, err)

	batch, err := store.FetchUnsentOutbox(ctx, 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	require.NoError(t, store.MarkOutboxSent(ctx, []uuid.UUID{batch[0].ID}))

	batch, err = store.FetchUnsentOutbox(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, batch)
}

func TestDeleteQueueEntriesBefore(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	old := testEntry("team-old")
	old.EnqueuedAt = time.Now().UTC().Add(-2 * time.Hour)
	_, err := store.InsertQueueEntry(ctx, old)
	require.NoError(t, err)

	fresh := testEntry("team-fresh")
	_, err = store.InsertQueueEntry(ctx, fresh)
	require.NoError(t, err)

	n, err := store.DeleteQueueEntriesBefore(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.GetQueueEntry(ctx, "team-old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetQueueEntry(ctx, "team-fresh")
	assert.NoError(t, err)
}
