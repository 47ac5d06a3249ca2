// Package whatsapp is a minimal client for the WhatsApp messaging gateway.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when the client has no base URL.
var ErrNotConfigured = errors.New("messaging gateway not configured")

// APIError carries a non-2xx response from the gateway.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("messaging gateway returned %d: %s", e.StatusCode, e.Body)
}

// Message is a text message addressed to a chat or phone number.
type Message struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// SendResult is the gateway acknowledgement of a sent message. MessageID is
// empty when the gateway accepted the message without a readable id.
type SendResult struct {
	MessageID string
}

// Client calls the messaging gateway over HTTP.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// New creates a client with the provided timeout.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// SendText posts a message to {base}/messages and returns the provider message id.
func (c *Client) SendText(ctx context.Context, msg Message) (*SendResult, error) {
	if c.BaseURL == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("messaging request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	// a 2xx means the gateway took the message; the id is informational
	var out struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&out); err != nil {
		return &SendResult{}, nil
	}
	return &SendResult{MessageID: strings.TrimSpace(out.ID)}, nil
}
