// Package booking_client talks to the pitch booking service that owns
// physical slot availability.
package booking_client

import (
	"github.com/matchdayhq/matchday/go/clients"
)

type BookingClient struct {
	*clients.BaseClient
}

func NewBookingClient(baseURL, apiKey string) *BookingClient {
	client := &BookingClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetHeader(APIKeyHeader, apiKey)

	return client
}
