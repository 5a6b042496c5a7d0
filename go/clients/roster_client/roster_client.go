// Package roster_client reads match participants from the roster
// service. Participants are resolved at reminder time and never cached.
package roster_client

import (
	"github.com/matchdayhq/matchday/go/clients"
)

type RosterClient struct {
	*clients.BaseClient
}

func NewRosterClient(baseURL, apiKey string) *RosterClient {
	client := &RosterClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetHeader(APIKeyHeader, apiKey)

	return client
}
