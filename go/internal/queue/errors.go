package queue

import "errors"

var (
	// ErrAlreadyQueued is returned when the team already has an active
	// queue entry.
	ErrAlreadyQueued = errors.New("team already queued")

	// ErrAlreadyMatched is returned when the team already has a live,
	// non-cancelled match.
	ErrAlreadyMatched = errors.New("team already has an active match")

	// ErrSlotUnavailable is returned when the booking collaborator
	// reports the pitch slot as taken.
	ErrSlotUnavailable = errors.New("slot unavailable")
)
