// Package notify calls the external notification microservice that
// emails candidates and produces shareable links. With Skip set the
// client fakes success, which keeps dev environments self-contained.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls the notification service.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Enrollment is the payload of an enrollment notification.
type Enrollment struct {
	Email          string `json:"email"`
	CandidateName  string `json:"candidate_name"`
	FormationTitle string `json:"formation_title"`
	Link           string `json:"link"`
}

// SendEnrollment asks the service to mail an enrollment confirmation.
func (c *Client) SendEnrollment(ctx context.Context, e Enrollment) error {
	if c.Skip {
		return nil
	}
	if e.Email == "" {
		return fmt.Errorf("notify: recipient email required")
	}
	return c.post(ctx, "/send/enrollment", e)
}

// ShareLink asks the service for a shareable link to a stored document.
func (c *Client) ShareLink(ctx context.Context, reference string) (string, error) {
	if c.Skip {
		return "https://example.invalid/share/" + reference, nil
	}

	body, _ := json.Marshal(map[string]string{"reference": reference})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/links", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("notify: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("notify: service error %s: %s", resp.Status, string(raw))
	}
	var out struct {
		Link string `json:"link"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("notify: decode response: %w", err)
	}
	return out.Link, nil
}

// Health checks service availability.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("notify: service unavailable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: service unhealthy: %s", resp.Status)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("notify: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notify: service error %s: %s", resp.Status, string(raw))
	}
	return nil
}
