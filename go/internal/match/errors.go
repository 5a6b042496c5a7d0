package match

import "errors"

var (
	// ErrNotFound is returned when no match exists with the given id.
	ErrNotFound = errors.New("match not found")

	// ErrForbidden is returned when the requesting team is not one of
	// the two match participants.
	ErrForbidden = errors.New("team is not a match participant")

	// ErrAlreadyCancelled is returned on confirm attempts against a
	// cancelled match.
	ErrAlreadyCancelled = errors.New("match already cancelled")
)
