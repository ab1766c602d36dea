// Package api exposes the event catalog over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"event-catalog/internal/model"
	"event-catalog/internal/service"
)

// Searcher answers catalog queries.
type Searcher interface {
	Search(ctx context.Context, start, end time.Time, limit, offset uint64) (model.Page, error)
	Get(ctx context.Context, id uuid.UUID) (model.Event, bool, error)
}

// Ingester starts an ingestion pass without waiting for it.
type Ingester interface {
	Trigger(ctx context.Context) error
}

// PassLister reports recent ingestion passes, newest first.
type PassLister interface {
	Recent(n int) []service.PassSummary
}

// Config wires the router.
type Config struct {
	Search Searcher
	Ingest Ingester
	Passes PassLister // optional

	// SearchTimeout bounds the search path only; zero means no bound.
	SearchTimeout time.Duration
}

// NewRouter sets up HTTP routes for the API server.
func NewRouter(cfg Config) http.Handler {
	h := &handlers{
		search:        cfg.Search,
		ingest:        cfg.Ingest,
		passes:        cfg.Passes,
		searchTimeout: cfg.SearchTimeout,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.root)
	mux.HandleFunc("GET /search", h.searchEvents)
	mux.HandleFunc("PATCH /ingest", h.triggerIngest)
	mux.HandleFunc("GET /events/{id}", h.getEvent)
	if cfg.Passes != nil {
		mux.HandleFunc("GET /ingest/passes", h.listPasses)
	}

	// Health check
	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	return withRequestLog(mux)
}
