package booking_client

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	AvailabilityEndpoint = "/v1/slots/availability"

	APIKeyHeader = "X-Api-Key"
)

type availabilityResponse struct {
	Date      string `json:"date"`
	TimeSlot  int    `json:"time_slot"`
	Available bool   `json:"available"`
}

// IsAvailable reports whether the pitch slot is still bookable. The
// queue engine asks before every admission so a taken slot never wastes
// a queue entry.
func (c *BookingClient) IsAvailable(ctx context.Context, date string, timeSlot int) (bool, error) {
	endpoint := fmt.Sprintf("%s?date=%s&time_slot=%d", AvailabilityEndpoint, date, timeSlot)
	body, err := c.Get(ctx, endpoint)
	if err != nil {
		return false, fmt.Errorf("failed to check availability: %w", err)
	}

	var response availabilityResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return false, fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}

	return response.Available, nil
}
