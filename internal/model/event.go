package model

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Event is the canonical catalog entry. ID is minted by the store on first
// save and never changes afterwards.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	MinPrice  float64   `json:"min_price"`
	MaxPrice  float64   `json:"max_price"`
}

// SaveRequest carries everything needed to create an Event except its id.
type SaveRequest struct {
	Title     string
	StartTime time.Time
	EndTime   time.Time
	MinPrice  float64
	MaxPrice  float64
}

// ProviderEvent is one plan of the provider feed, normalized.
// It is never persisted as-is.
type ProviderEvent struct {
	Title     string
	StartTime time.Time
	EndTime   time.Time
	MinPrice  float64
	MaxPrice  float64
}

// SaveRequest converts a feed record into a creation payload.
func (pe ProviderEvent) SaveRequest() SaveRequest {
	return SaveRequest{
		Title:     pe.Title,
		StartTime: pe.StartTime,
		EndTime:   pe.EndTime,
		MinPrice:  pe.MinPrice,
		MaxPrice:  pe.MaxPrice,
	}
}

// ApplyTo copies the schedule and price bounds of pe onto e.
// Title and ID are left untouched.
func (pe ProviderEvent) ApplyTo(e Event) Event {
	e.StartTime = pe.StartTime
	e.EndTime = pe.EndTime
	e.MinPrice = pe.MinPrice
	e.MaxPrice = pe.MaxPrice
	return e
}

// NewEvent mints a fresh id for req.
func NewEvent(req SaveRequest) Event {
	return Event{
		ID:        uuid.New(),
		Title:     req.Title,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		MinPrice:  req.MinPrice,
		MaxPrice:  req.MaxPrice,
	}
}

// Within reports whether e lies entirely inside [start, end].
func (e Event) Within(start, end time.Time) bool {
	return !e.StartTime.Before(start) && !e.EndTime.After(end)
}

// Page is one bounded slice of a search result.
type Page struct {
	Events []Event
	Limit  uint64
	Offset uint64
}

// SQLPage converts limit and offset to the signed values SQL LIMIT/OFFSET
// accept. A limit beyond MaxInt64 is clamped since no table holds that many
// rows. ok is false when the page is empty without querying: limit 0, or an
// offset no table can reach.
func SQLPage(limit, offset uint64) (lim, off int64, ok bool) {
	if limit == 0 || offset > math.MaxInt64 {
		return 0, 0, false
	}
	if limit > math.MaxInt64 {
		limit = math.MaxInt64
	}
	return int64(limit), int64(offset), true
}
