package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"event-catalog/internal/logger"
)

const webhookUserAgent = "eventsd"

// webhookPayload is the JSON document a webhook receives.
type webhookPayload struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	TraceID string     `json:"trace_id,omitempty"`
	SentAt  time.Time  `json:"sent_at"`
	Pass    *PassStats `json:"pass,omitempty"`
}

// WebhookNotifier POSTs alerts, with the pass report when there is one, as
// JSON to an HTTP endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
	now    func() time.Time
}

// NewWebhookNotifier creates a webhook notifier for url.
func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		now:    time.Now,
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	payload := webhookPayload{
		Level:   alert.Level,
		Title:   alert.Title,
		Message: alert.Message,
		TraceID: logger.TraceID(ctx),
		SentAt:  w.now().UTC(),
		Pass:    alert.Pass,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", webhookUserAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}

	slog.DebugContext(ctx, "alert delivered", "url", w.url, "title", alert.Title, "status", resp.StatusCode)
	return nil
}
