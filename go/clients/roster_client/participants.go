package roster_client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/matchdayhq/matchday/go/internal/models"
)

const (
	ParticipantsEndpoint = "/v1/matches/%s/participants"

	APIKeyHeader = "X-Api-Key"
)

type participantsResponse struct {
	MatchID      string               `json:"match_id"`
	Participants []models.Participant `json:"participants"`
}

// ParticipantsFor resolves the players of both rosters for a match.
func (c *RosterClient) ParticipantsFor(ctx context.Context, matchID uuid.UUID) ([]models.Participant, error) {
	endpoint := fmt.Sprintf(ParticipantsEndpoint, matchID)
	body, err := c.Get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get participants: %w", err)
	}

	var response participantsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}

	return response.Participants, nil
}
