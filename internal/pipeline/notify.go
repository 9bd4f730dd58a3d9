package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/vapter/vaptord/internal/models"
)

// NotifyConfig configures where to send scan-completion notifications.
type NotifyConfig struct {
	WebhookURL string // if empty, no notifications
}

// completionPayload is the JSON body posted to the webhook endpoint.
type completionPayload struct {
	ScanID       string `json:"scan_id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// SendCompletion posts a JSON payload to the webhook URL announcing that
// scanID reached a terminal status. Returns nil if WebhookURL is empty
// (no-op). Non-fatal — callers should log a returned error as a warning,
// never fail the scan on its account.
func (n *NotifyConfig) SendCompletion(ctx context.Context, scanID string, status models.ScanStatus, errMsg string) error {
	if n == nil || n.WebhookURL == "" {
		return nil
	}

	payload := completionPayload{
		ScanID:       scanID,
		Status:       string(status),
		ErrorMessage: errMsg,
		Timestamp:    time.Now(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshaling payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: posting to %s: %w", n.WebhookURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook returned non-2xx status %d", resp.StatusCode)
	}

	return nil
}
