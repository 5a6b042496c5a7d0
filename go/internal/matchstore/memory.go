package matchstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/matchdayhq/matchday/go/internal/models"
)

// Memory is an in-process store used by tests and local development.
// A single mutex makes every operation atomic, which mirrors the
// transaction boundaries of the Postgres implementation.
type Memory struct {
	mu        sync.Mutex
	seq       int64
	entries   map[string]models.QueueEntry
	matches   map[uuid.UUID]models.Match
	reminders map[uuid.UUID]bool
	outbox    []OutboxEvent
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries:   make(map[string]models.QueueEntry),
		matches:   make(map[uuid.UUID]models.Match),
		reminders: make(map[uuid.UUID]bool),
	}
}

func (s *Memory) GetQueueEntry(ctx context.Context, teamID string) (*models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[teamID]
	if !ok {
		return nil, ErrNotFound
	}
	return &e, nil
}

func (s *Memory) ListQueueEntries(ctx context.Context, key models.SlotKey) ([]models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.QueueEntry
	for _, e := range s.entries {
		if e.Key() == key {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].EnqueuedAt.Equal(out[j].EnqueuedAt) {
			return out[i].EnqueuedAt.Before(out[j].EnqueuedAt)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (s *Memory) InsertQueueEntry(ctx context.Context, entry *models.QueueEntry) (*models.QueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[entry.TeamID]; ok {
		return nil, ErrConflict
	}
	s.seq++
	e := *entry
	e.Seq = s.seq
	s.entries[entry.TeamID] = e
	return &e, nil
}

func (s *Memory) DeleteQueueEntry(ctx context.Context, teamID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[teamID]; !ok {
		return ErrNotFound
	}
	delete(s.entries, teamID)
	return nil
}

func (s *Memory) DeleteQueueEntriesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for teamID, e := range s.entries {
		if e.EnqueuedAt.Before(cutoff) {
			delete(s.entries, teamID)
			n++
		}
	}
	return n, nil
}

func (s *Memory) GetMatch(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *Memory) GetActiveMatchForTeam(ctx context.Context, teamID string) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.matches {
		if m.HasTeam(teamID) && m.Active() {
			out := m
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

// PairMatch atomically consumes the opponent's queue entry and creates
// the match plus its outbox event. The delete is compared against the
// entry's Seq: if a concurrent enqueue already paired against the same
// entry, the second caller gets ErrConflict and falls back to inserting
// its own entry.
func (s *Memory) PairMatch(ctx context.Context, opponent models.QueueEntry, match *models.Match, event OutboxEvent) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.entries[opponent.TeamID]
	if !ok || current.Seq != opponent.Seq {
		return nil, ErrConflict
	}
	delete(s.entries, opponent.TeamID)

	m := *match
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	m.Version = 1
	s.matches[m.ID] = m
	s.appendOutboxLocked(event)

	out := m
	return &out, nil
}

// UpdateMatchStatus applies a versioned status update and records the
// outbox event in the same atomic step.
func (s *Memory) UpdateMatchStatus(ctx context.Context, id uuid.UUID, expectedVersion int64, status models.MatchStatus, cancelled bool, event OutboxEvent) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	if m.Version != expectedVersion {
		return nil, ErrConflict
	}
	m.Status = status
	m.Cancelled = cancelled
	m.Version++
	s.matches[id] = m
	s.appendOutboxLocked(event)

	out := m
	return &out, nil
}

// ListMatchesInWindow returns live matches kicking off in [from, to).
func (s *Memory) ListMatchesInWindow(ctx context.Context, from, to time.Time) ([]models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Match
	for _, m := range s.matches {
		if !m.Active() {
			continue
		}
		start, err := m.StartTime()
		if err != nil {
			continue
		}
		if !start.Before(from) && start.Before(to) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		si, _ := out[i].StartTime()
		sj, _ := out[j].StartTime()
		return si.Before(sj)
	})
	return out, nil
}

// MarkReminderSent flips reminder_sent from false to true. ErrConflict
// means another tick already owns the reminder for this match.
func (s *Memory) MarkReminderSent(ctx context.Context, matchID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reminders[matchID] {
		return ErrConflict
	}
	s.reminders[matchID] = true
	return nil
}

func (s *Memory) ReminderSent(ctx context.Context, matchID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reminders[matchID], nil
}

func (s *Memory) FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []OutboxEvent
	for _, ev := range s.outbox {
		if ev.SentAt != nil {
			continue
		}
		out = append(out, ev)
		if int32(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Memory) MarkOutboxSent(ctx context.Context, ids []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for i := range s.outbox {
		for _, id := range ids {
			if s.outbox[i].ID == id && s.outbox[i].SentAt == nil {
				t := now
				s.outbox[i].SentAt = &t
			}
		}
	}
	return nil
}

func (s *Memory) appendOutboxLocked(event OutboxEvent) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	s.outbox = append(s.outbox, event)
}
