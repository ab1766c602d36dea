// Package notification delivers operational alerts (failed ingestion passes)
// to external channels.
package notification

import (
	"context"
	"log/slog"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent. Pass is set for alerts raised
// by an ingestion pass.
type Alert struct {
	Level   AlertLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
	Pass    *PassStats `json:"pass,omitempty"`
}

// PassStats is the ingestion pass report attached to an alert.
type PassStats struct {
	ID           string   `json:"id"`
	Outcome      string   `json:"outcome"`
	Fetched      int      `json:"fetched"`
	Inserted     int      `json:"inserted"`
	Updated      int      `json:"updated"`
	Failed       int      `json:"failed"`
	FailedTitles []string `json:"failed_titles,omitempty"`
	DurationMs   int64    `json:"duration_ms"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// LogNotifier writes alerts to the structured log.
type LogNotifier struct{}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	level := slog.LevelInfo
	switch alert.Level {
	case AlertWarning:
		level = slog.LevelWarn
	case AlertCritical:
		level = slog.LevelError
	}
	attrs := []any{"title", alert.Title, "message", alert.Message}
	if p := alert.Pass; p != nil {
		attrs = append(attrs, slog.Group("pass",
			"id", p.ID,
			"outcome", p.Outcome,
			"fetched", p.Fetched,
			"failed", p.Failed,
		))
	}
	slog.Log(ctx, level, "alert", attrs...)
	return nil
}
