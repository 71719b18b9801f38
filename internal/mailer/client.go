// Package mailer delivers transactional email through an HTTP relay.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Message is the relay's send payload.
type Message struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Client handles communication with the mail relay webhook. Without a relay
// URL it runs in stub mode: messages are logged and dropped, which keeps
// signup working in development.
type Client struct {
	baseURL    string
	secret     string
	from       string
	httpClient *http.Client
	stubMode   bool
}

// NewClient creates a new mail relay client. An empty baseURL enables stub
// mode.
func NewClient(baseURL, secret, from string) *Client {
	return &Client{
		baseURL:    baseURL,
		secret:     secret,
		from:       from,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		stubMode:   baseURL == "",
	}
}

// SendConfirmation delivers the signup confirmation email pointing at
// confirmLink.
func (c *Client) SendConfirmation(ctx context.Context, to, confirmLink string) error {
	msg := Message{
		To:      to,
		From:    c.from,
		Subject: "Confirm your email",
		HTML:    confirmationHTML(confirmLink),
	}

	if c.stubMode {
		slog.Info("Mail relay not configured, dropping message", "to", to, "subject", msg.Subject)
		return nil
	}

	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/send", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Webhook-Secret", c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mail relay returned status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

func confirmationHTML(link string) string {
	return fmt.Sprintf(
		`<p>Welcome!</p><p>Please confirm your email address by following <a href=%q>this link</a>.</p><p>The link expires in 7 days.</p>`,
		link,
	)
}
