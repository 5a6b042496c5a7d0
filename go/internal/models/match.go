package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchStatus defines the lifecycle state of a match.
type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "scheduled"
	MatchStatusConfirmed MatchStatus = "confirmed"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// Match represents a paired fixture between two teams.
// The queue engine is the only creator; the lifecycle controller is the
// only mutator of Status. Cancelled matches are kept for audit, never
// deleted, so clients can tell "no match" apart from "match was cancelled".
type Match struct {
	ID        uuid.UUID   `json:"id"`
	Team1ID   string      `json:"team1_id"`
	Team2ID   string      `json:"team2_id"`
	Division  int         `json:"division"`
	Date      string      `json:"date"`
	TimeSlot  int         `json:"time_slot"`
	Status    MatchStatus `json:"status"`
	Cancelled bool        `json:"cancelled"`
	CreatedAt time.Time   `json:"created_at"`

	// Version increments on every status update and drives the
	// compare-and-set writes in the store.
	Version int64 `json:"version"`
}

// StartTime computes the kickoff time from the match date and time
// slot. Slots are whole hours of the day in UTC, e.g. slot 19 on
// 2025-06-01 kicks off at 19:00 UTC that day.
func (m *Match) StartTime() (time.Time, error) {
	day, err := time.Parse("2006-01-02", m.Date)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(m.TimeSlot) * time.Hour), nil
}

// HasTeam reports whether teamID is one of the two participants.
func (m *Match) HasTeam(teamID string) bool {
	return m.Team1ID == teamID || m.Team2ID == teamID
}

// Active reports whether the match still binds both teams. A cancelled
// match frees them to enqueue again.
func (m *Match) Active() bool {
	return !m.Cancelled && m.Status != MatchStatusCancelled
}
