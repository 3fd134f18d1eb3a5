// Package identity resolves user ids to contact details via the
// identity service's HTTP API.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrUserNotFound is returned when the identity service has no record
// for the requested user id.
var ErrUserNotFound = errors.New("user not found")

// User is the resolved recipient identity.
type User struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Client calls the identity service. Every request is bounded by the
// configured timeout.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates an identity Client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Resolve looks up a user by id. A missing user yields ErrUserNotFound;
// any transport or non-2xx failure is returned as an error.
func (c *Client) Resolve(ctx context.Context, userID string) (*User, error) {
	u := fmt.Sprintf("%s/api/userInfo?id=%s", c.baseURL, url.QueryEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build identity request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolve user %s: %w", userID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrUserNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("resolve user %s: identity service returned %d", userID, resp.StatusCode)
	}

	var body struct {
		User *User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode identity response for user %s: %w", userID, err)
	}
	if body.User == nil || body.User.Email == "" {
		return nil, ErrUserNotFound
	}

	return body.User, nil
}
