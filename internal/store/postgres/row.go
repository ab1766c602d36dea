package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"event-catalog/internal/model"
)

// eventRow is the storage shape of an event: prices in minor units.
type eventRow struct {
	ID        string
	Title     string
	StartTime time.Time
	EndTime   time.Time
	MinCents  int64
	MaxCents  int64
}

func fromModel(e model.Event) eventRow {
	return eventRow{
		ID:        e.ID.String(),
		Title:     e.Title,
		StartTime: e.StartTime.UTC(),
		EndTime:   e.EndTime.UTC(),
		MinCents:  model.ToMinorUnits(e.MinPrice),
		MaxCents:  model.ToMinorUnits(e.MaxPrice),
	}
}

func (r eventRow) toModel() (model.Event, error) {
	id, err := uuid.Parse(r.ID)
	if err != nil {
		return model.Event{}, fmt.Errorf("parse id %q: %w", r.ID, err)
	}
	return model.Event{
		ID:        id,
		Title:     r.Title,
		StartTime: r.StartTime.UTC(),
		EndTime:   r.EndTime.UTC(),
		MinPrice:  model.FromMinorUnits(r.MinCents),
		MaxPrice:  model.FromMinorUnits(r.MaxCents),
	}, nil
}

func (r eventRow) args() []any {
	return []any{r.ID, r.Title, r.StartTime, r.EndTime, r.MinCents, r.MaxCents}
}
