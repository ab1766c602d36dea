package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"event-catalog/internal/logger"
)

func TestWebhookNotifier_PostsAlert(t *testing.T) {
	var got webhookPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		if ua := r.Header.Get("User-Agent"); ua != "eventsd" {
			t.Errorf("expected eventsd user agent, got %s", ua)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := NewWebhookNotifier(srv.URL)
	sent := time.Date(2025, 11, 12, 22, 0, 0, 0, time.UTC)
	n.now = func() time.Time { return sent }
	ctx := logger.WithTraceID(context.Background(), "ingest-7")
	pass := &PassStats{
		ID: "ingest-7", Outcome: "completed",
		Fetched: 3, Inserted: 1, Updated: 1, Failed: 1,
		FailedTitles: []string{"El Clasico"},
		DurationMs:   42,
	}
	err := n.Send(ctx, Alert{Level: AlertWarning, Title: "Event ingestion finished with failures", Message: "1 of 3", Pass: pass})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}

	if got.Level != AlertWarning || got.Title != "Event ingestion finished with failures" || got.Message != "1 of 3" {
		t.Errorf("unexpected payload %+v", got)
	}
	if got.TraceID != "ingest-7" || !got.SentAt.Equal(sent) {
		t.Errorf("expected trace_id ingest-7 at %v, got %q at %v", sent, got.TraceID, got.SentAt)
	}
	if !reflect.DeepEqual(got.Pass, pass) {
		t.Errorf("expected pass %+v, got %+v", pass, got.Pass)
	}
}

func TestWebhookNotifier_PassCountsOnTheWire(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
	}))
	defer srv.Close()

	alert := Alert{Level: AlertCritical, Title: "Event ingestion failed", Message: "provider down",
		Pass: &PassStats{ID: "ingest-9", Outcome: "fetch_failed"}}
	if err := NewWebhookNotifier(srv.URL).Send(context.Background(), alert); err != nil {
		t.Fatalf("Send: %v", err)
	}

	pass, ok := raw["pass"].(map[string]any)
	if !ok {
		t.Fatalf("expected pass object, got %v", raw)
	}
	if pass["outcome"] != "fetch_failed" || pass["fetched"] != float64(0) || pass["failed"] != float64(0) {
		t.Errorf("expected zero counts to be sent, got %v", pass)
	}
	if _, ok := pass["failed_titles"]; ok {
		t.Errorf("expected failed_titles omitted when empty, got %v", pass)
	}
	if _, ok := raw["trace_id"]; ok {
		t.Errorf("expected trace_id omitted without a trace, got %v", raw)
	}
}

func TestWebhookNotifier_PlainAlertHasNoPass(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&raw)
	}))
	defer srv.Close()

	if err := NewWebhookNotifier(srv.URL).Send(context.Background(), Alert{Level: AlertInfo, Title: "hello"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if _, ok := raw["pass"]; ok {
		t.Errorf("expected no pass field, got %v", raw)
	}
}

func TestWebhookNotifier_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := NewWebhookNotifier(srv.URL).Send(context.Background(), Alert{Title: "x"}); err == nil {
		t.Error("expected error on 500")
	}
}

func TestLogNotifier_NeverFails(t *testing.T) {
	if err := NewLogNotifier().Send(context.Background(), Alert{Level: AlertWarning, Title: "t"}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	withPass := Alert{Level: AlertCritical, Title: "t", Pass: &PassStats{ID: "ingest-1", Outcome: "fetch_failed"}}
	if err := NewLogNotifier().Send(context.Background(), withPass); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
