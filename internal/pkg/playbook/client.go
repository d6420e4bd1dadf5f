package playbook

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/churnaizer/churnaizer/internal/pkg/env"
)

// Client calls the downstream playbook processor after fresh churn
// scores land. The contract is at-most-once and failure-tolerant: the
// caller only ever logs the outcome.
type Client struct {
	URL        string
	ServiceKey string

	HTTPClient *http.Client
}

// NewClientFromEnv builds a client from PLAYBOOK_URL and
// PLAYBOOK_SERVICE_KEY.
func NewClientFromEnv() *Client {
	return &Client{
		URL:        strings.TrimSpace(env.GetEnv("PLAYBOOK_URL", "")),
		ServiceKey: strings.TrimSpace(env.GetEnv("PLAYBOOK_SERVICE_KEY", "")),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// IsConfigured reports whether a playbook endpoint is set.
func (c *Client) IsConfigured() bool {
	return c.URL != ""
}

// Trigger asks the processor to re-evaluate playbooks for one owner.
func (c *Client) Trigger(ownerID string) error {
	if !c.IsConfigured() {
		return nil
	}

	body, err := json.Marshal(map[string]string{"owner_id": ownerID})
	if err != nil {
		return fmt.Errorf("encode playbook payload: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build playbook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.ServiceKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.ServiceKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("playbook request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("playbook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
