package models

import "github.com/google/uuid"

// ReminderState records whether the one pre-match reminder for a match
// has been dispatched. The flag only ever transitions false to true, via
// a compare-and-set in the store, which is what makes the reminder
// exactly-once across overlapping scheduler ticks.
type ReminderState struct {
	MatchID      uuid.UUID `json:"match_id"`
	ReminderSent bool      `json:"reminder_sent"`
}
