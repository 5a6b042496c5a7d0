// Package push_client delivers push notifications through the mobile
// push gateway. Delivery is best effort: the caller owns any
// exactly-once discipline above it.
package push_client

import (
	"github.com/matchdayhq/matchday/go/clients"
)

type PushClient struct {
	*clients.BaseClient
}

func NewPushClient(baseURL, apiKey string) *PushClient {
	client := &PushClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetHeader(AuthorizationHeader, "Bearer "+apiKey)

	return client
}
