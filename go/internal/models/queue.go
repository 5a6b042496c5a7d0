package models

import "time"

// QueueEntry is a team's outstanding request to be paired against an
// opponent for a given division, date and time slot. At most one active
// entry exists per team; the queue engine enforces this at admission.
type QueueEntry struct {
	TeamID     string    `json:"team_id"`
	Division   int       `json:"division"`
	Date       string    `json:"date"`
	TimeSlot   int       `json:"time_slot"`
	EnqueuedAt time.Time `json:"enqueued_at"`

	// Seq is the store's insertion sequence, used to break EnqueuedAt
	// ties so FIFO order is total.
	Seq int64 `json:"seq"`
}

// SlotKey identifies the pairing bucket a queue entry waits in.
type SlotKey struct {
	Division int    `json:"division"`
	Date     string `json:"date"`
	TimeSlot int    `json:"time_slot"`
}

// Key returns the pairing bucket for this entry.
func (e *QueueEntry) Key() SlotKey {
	return SlotKey{Division: e.Division, Date: e.Date, TimeSlot: e.TimeSlot}
}
