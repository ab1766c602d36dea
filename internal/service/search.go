// Package service holds the search and ingestion use cases on top of the
// model ports.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"event-catalog/internal/metrics"
	"event-catalog/internal/model"
)

// ErrSearch is the single failure class of search operations. Store details
// stay in the logs.
var ErrSearch = errors.New("search failed")

// SearchService answers range queries against the event store.
type SearchService struct {
	store   model.EventStore
	metrics *metrics.Metrics
}

// NewSearchService creates a search service. m may be nil.
func NewSearchService(store model.EventStore, m *metrics.Metrics) *SearchService {
	return &SearchService{store: store, metrics: m}
}

// Search returns the page of events with StartTime >= start and
// EndTime <= end. limit and offset are echoed on the page.
func (s *SearchService) Search(ctx context.Context, start, end time.Time, limit, offset uint64) (model.Page, error) {
	began := time.Now()
	events, err := s.store.FindBetween(ctx, start, end, limit, offset)
	s.metrics.Searched(err, time.Since(began))
	if err != nil {
		slog.ErrorContext(ctx, "search query failed",
			"start_time", start, "end_time", end, "limit", limit, "offset", offset, "error", err)
		return model.Page{}, fmt.Errorf("%w: %w", ErrSearch, err)
	}
	return model.Page{Events: events, Limit: limit, Offset: offset}, nil
}

// Get returns one event by id. A missing event is (zero, false, nil).
func (s *SearchService) Get(ctx context.Context, id uuid.UUID) (model.Event, bool, error) {
	e, ok, err := s.store.FindByID(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "event lookup failed", "id", id, "error", err)
		return model.Event{}, false, fmt.Errorf("%w: %w", ErrSearch, err)
	}
	return e, ok, nil
}
