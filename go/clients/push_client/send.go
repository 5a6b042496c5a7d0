package push_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

const (
	SendEndpoint = "/v1/push"

	AuthorizationHeader = "Authorization"
)

type sendRequest struct {
	DeviceToken string            `json:"device_token"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Payload     map[string]string `json:"payload,omitempty"`
}

type sendResponse struct {
	Delivered bool   `json:"delivered"`
	Error     string `json:"error,omitempty"`
}

// Send pushes one notification to one device.
func (c *PushClient) Send(ctx context.Context, deviceToken, title, body string, payload map[string]string) error {
	reqBody, err := json.Marshal(sendRequest{
		DeviceToken: deviceToken,
		Title:       title,
		Body:        body,
		Payload:     payload,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push request: %w", err)
	}

	respBody, err := c.Post(ctx, SendEndpoint, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to send push: %w", err)
	}

	var response sendResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(respBody))
	}
	if !response.Delivered {
		return fmt.Errorf("push gateway rejected notification: %s", response.Error)
	}

	return nil
}
