// Package memory provides an in-process model.EventStore.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"event-catalog/internal/model"
)

// Store keeps events in a map guarded by a mutex. The lock is held for one
// operation at a time only, so callers composing several operations (such as
// the title lookup followed by an upsert) are not atomic with respect to
// other writers.
type Store struct {
	mu     sync.Mutex
	events map[uuid.UUID]model.Event
	order  []uuid.UUID // insertion order
}

var _ model.EventStore = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{events: make(map[uuid.UUID]model.Event)}
}

func (s *Store) FindAll(ctx context.Context) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Event, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.events[id])
	}
	return out, nil
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (model.Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	return e, ok, nil
}

func (s *Store) FindByTitle(ctx context.Context, title string) (model.Event, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.order {
		if e := s.events[id]; e.Title == title {
			return e, true, nil
		}
	}
	return model.Event{}, false, nil
}

func (s *Store) FindBetween(ctx context.Context, start, end time.Time, limit, offset uint64) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []model.Event{}
	if limit == 0 {
		return out, nil
	}
	var skipped uint64
	for _, id := range s.order {
		e := s.events[id]
		if !e.Within(start, end) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, e)
		if uint64(len(out)) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) Save(ctx context.Context, req model.SaveRequest) (model.Event, error) {
	e := model.NewEvent(req)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(e)
	return e, nil
}

func (s *Store) Upsert(ctx context.Context, e model.Event) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(e)
	return e, nil
}

// put must be called with mu held.
func (s *Store) put(e model.Event) {
	if _, exists := s.events[e.ID]; !exists {
		s.order = append(s.order, e.ID)
	}
	s.events[e.ID] = e
}

// Len returns the number of stored events.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }
