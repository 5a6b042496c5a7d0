// Package matchstore is the durable record behind the queue engine, the
// lifecycle controller and the reminder scheduler: queue entries,
// matches, reminder flags and the match event outbox.
//
// Two implementations exist: Postgres for production and an in-memory
// versioned map for tests and local development. Both expose the same
// two compare-and-set points the rest of the system leans on: the
// compare-and-delete on queue entries during pairing, and the
// false→true flip of reminder_sent.
package matchstore

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("matchstore: not found")

	// ErrConflict is returned when a compare-and-set or
	// compare-and-delete loses a race: the row changed, or another
	// writer already consumed it.
	ErrConflict = errors.New("matchstore: conflict")

	// ErrUnavailable wraps transient infrastructure failures so callers
	// can tell them apart from domain errors.
	ErrUnavailable = errors.New("matchstore: unavailable")
)

// OutboxEvent is a pending match event row. Events are written in the
// same transaction as the state change they describe and relayed to the
// message bus by the events relay worker.
type OutboxEvent struct {
	ID        uuid.UUID       `json:"id"`
	MatchID   uuid.UUID       `json:"match_id"`
	EventType string          `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	SentAt    *time.Time      `json:"sent_at,omitempty"`
}
