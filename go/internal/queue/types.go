package queue

import "github.com/matchdayhq/matchday/go/internal/models"

// EnqueueRequest asks to queue a team for a division/date/slot bucket.
type EnqueueRequest struct {
	TeamID   string `json:"team_id"`
	Division int    `json:"division"`
	Date     string `json:"date"`
	TimeSlot int    `json:"time_slot"`
}

// EnqueueResult is the outcome of an enqueue call. Either the team was
// paired immediately (Matched with the new Match) or it is now waiting
// (QueuePosition/QueueCount describe its place in the bucket).
type EnqueueResult struct {
	Matched       bool          `json:"matched"`
	Match         *models.Match `json:"match,omitempty"`
	QueuePosition int           `json:"queue_position,omitempty"`
	QueueCount    int           `json:"queue_count,omitempty"`
}

// Status describes a team's current queue and match situation.
type Status struct {
	InQueue       bool          `json:"in_queue"`
	QueuePosition int           `json:"queue_position,omitempty"`
	QueueCount    int           `json:"queue_count,omitempty"`
	ActiveMatch   *models.Match `json:"active_match,omitempty"`
}
