// Package webhook notifies an external endpoint when analyses finish,
// so long-running batches don't require polling.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Event types delivered by the Notifier.
const (
	EventAnalysisCompleted = "analysis.completed"
	EventBatchCompleted    = "batch.completed"
)

// Event is the payload sent to the configured endpoint.
type Event struct {
	Type      string      `json:"type"`
	Target    string      `json:"target,omitempty"` // URL for single analyses
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Notifier delivers events to one endpoint. A nil Notifier is a no-op,
// so callers never need to branch on whether webhooks are configured.
type Notifier struct {
	url    string
	secret string
	client *http.Client
}

// New returns a Notifier, or nil when no endpoint is configured.
func New(url, secret string) *Notifier {
	if url == "" {
		return nil
	}
	return &Notifier{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Deliver sends one event synchronously. The body is signed with
// HMAC-SHA256 when a secret is configured.
// Header: X-Agentlens-Signature: sha256=<hex>
func (n *Notifier) Deliver(ctx context.Context, event *Event) error {
	if n == nil {
		return nil
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Agentlens-Webhook/1.0")

	if n.secret != "" {
		mac := hmac.New(sha256.New, []byte(n.secret))
		mac.Write(body)
		req.Header.Set("X-Agentlens-Signature", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// DeliverAsync sends an event in the background with up to 3 retries.
// Retry intervals: 1s, 5s, 30s.
func (n *Notifier) DeliverAsync(event *Event) {
	if n == nil {
		return
	}
	go func() {
		delays := []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second}
		for attempt, delay := range delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := n.Deliver(ctx, event)
			cancel()
			if err == nil {
				slog.Info("webhook delivered",
					"event", event.Type, "target", event.Target, "attempt", attempt+1)
				return
			}
			slog.Warn("webhook delivery failed",
				"event", event.Type, "target", event.Target,
				"attempt", attempt+1, "error", err)
		}
		slog.Error("webhook delivery exhausted all retries",
			"event", event.Type, "target", event.Target)
	}()
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType, target string, data interface{}) *Event {
	return &Event{
		Type:      eventType,
		Target:    target,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}
}
