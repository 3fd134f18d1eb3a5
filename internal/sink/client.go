// Package sink is the HTTP client for the external delivery service,
// which renders and transports the final message.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Recipient is a notification target.
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Request is the wire contract with the delivery service. The service
// deduplicates recipients per call and renders the final template from
// the message text.
type Request struct {
	EventID        string      `json:"eventId"`
	EventName      string      `json:"eventName"`
	OrganizerID    string      `json:"organizerId"`
	OrganizerEmail string      `json:"organizerEmail"`
	Recipients     []Recipient `json:"recipients"`
	Message        string      `json:"message"`
}

// Client delivers notification requests to the sink. Every call carries
// the shared secret and is bounded by the configured timeout.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a sink Client for the given base URL and API key.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Deliver posts the request to the sink and returns the number of
// accepted recipients. Any non-2xx status is an error carrying the
// sink's message when one is present.
func (c *Client) Deliver(ctx context.Context, req *Request) (int, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("marshal sink request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/notifications/receive", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("build sink request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("deliver to sink: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		if errBody.Message != "" {
			return 0, fmt.Errorf("sink returned %d: %s", resp.StatusCode, errBody.Message)
		}
		return 0, fmt.Errorf("sink returned %d", resp.StatusCode)
	}

	var result struct {
		Sent int `json:"sent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode sink response: %w", err)
	}
	return result.Sent, nil
}
