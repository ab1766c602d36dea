package model

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ── Port Interfaces ──
// These interfaces decouple the services from concrete backends
// (in-memory, SQLite, Postgres, HTTP provider). Backends are chosen once
// at process wiring time.

// ErrStore marks every failure coming out of an EventStore. Absent records
// are not errors: lookups report them through their bool result.
var ErrStore = errors.New("event store failure")

// EventStore is the keyed storage of canonical events.
type EventStore interface {
	// FindAll returns every stored event in the store's natural order.
	FindAll(ctx context.Context) ([]Event, error)

	// FindByID returns the event with the given id, if any.
	FindByID(ctx context.Context, id uuid.UUID) (Event, bool, error)

	// FindByTitle returns the first event whose title matches exactly.
	// "First" is insertion order.
	FindByTitle(ctx context.Context, title string) (Event, bool, error)

	// FindBetween returns events with StartTime >= start and EndTime <= end,
	// in insertion order, skipping offset rows and returning at most limit.
	FindBetween(ctx context.Context, start, end time.Time, limit, offset uint64) ([]Event, error)

	// Save mints a new id, persists the event and returns what was stored.
	Save(ctx context.Context, req SaveRequest) (Event, error)

	// Upsert replaces every field of the event at e.ID, creating it if absent.
	Upsert(ctx context.Context, e Event) (Event, error)

	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases underlying resources.
	Close() error
}

// ProviderClient fetches the third-party event feed.
type ProviderClient interface {
	// Fetch performs one request and returns the feed's events in feed order.
	Fetch(ctx context.Context) ([]ProviderEvent, error)
}
