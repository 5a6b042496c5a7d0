package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/matchdayhq/matchday/go/internal/matchstore"
	"github.com/matchdayhq/matchday/go/internal/models"
)

// Event types shared between the engine/controller producers and the
// gateway/bridge consumers.
const (
	TypeMatchCreated   = "MatchCreated"
	TypeMatchConfirmed = "MatchConfirmed"
	TypeMatchCancelled = "MatchCancelled"
)

// MatchEventPayload carries a full snapshot of the match at the moment
// the event was emitted. Snapshots let consumers apply events in any
// order: the bridge dedups on (match_id, status, cancelled) and gives
// the cancelled state terminal precedence.
type MatchEventPayload struct {
	MatchID   uuid.UUID          `json:"match_id"`
	Team1ID   string             `json:"team1_id"`
	Team2ID   string             `json:"team2_id"`
	Division  int                `json:"division"`
	Date      string             `json:"date"`
	TimeSlot  int                `json:"time_slot"`
	Status    models.MatchStatus `json:"status"`
	Cancelled bool               `json:"cancelled"`
	EmittedAt time.Time          `json:"emitted_at"`
}

// SnapshotPayload builds the payload from a match snapshot.
func SnapshotPayload(m *models.Match) MatchEventPayload {
	return MatchEventPayload{
		MatchID:   m.ID,
		Team1ID:   m.Team1ID,
		Team2ID:   m.Team2ID,
		Division:  m.Division,
		Date:      m.Date,
		TimeSlot:  m.TimeSlot,
		Status:    m.Status,
		Cancelled: m.Cancelled,
		EmittedAt: time.Now().UTC(),
	}
}

// NewOutboxEvent marshals a match snapshot into an outbox row ready to
// be written alongside the state change that produced it.
func NewOutboxEvent(eventType string, m *models.Match) (matchstore.OutboxEvent, error) {
	payload, err := json.Marshal(SnapshotPayload(m))
	if err != nil {
		return matchstore.OutboxEvent{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return matchstore.OutboxEvent{
		ID:        uuid.New(),
		MatchID:   m.ID,
		EventType: eventType,
		Payload:   payload,
	}, nil
}
