package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"event-catalog/internal/model"
)

var quevedoID = uuid.MustParse("3fa85f64-5717-4562-b3fc-2c963f66afa6")

// seedDemoEvents stores the demo catalog when the store is empty.
func seedDemoEvents(ctx context.Context, store model.EventStore) error {
	existing, err := store.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	if len(existing) > 0 {
		log.Printf("[seed] store already holds %d events, skipping", len(existing))
		return nil
	}

	if _, err := store.Upsert(ctx, model.Event{
		ID:        quevedoID,
		Title:     "Quevedo",
		StartTime: time.Date(2025, 11, 12, 22, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2025, 11, 12, 23, 0, 0, 0, time.UTC),
		MinPrice:  15.99,
		MaxPrice:  39.99,
	}); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	for _, req := range []model.SaveRequest{
		{
			Title:     "Nirvana",
			StartTime: time.Date(2025, 10, 31, 16, 30, 0, 0, time.UTC),
			EndTime:   time.Date(2025, 10, 31, 23, 59, 59, 0, time.UTC),
			MinPrice:  75.00,
			MaxPrice:  99.99,
		},
		{
			Title:     "Tool",
			StartTime: time.Date(2025, 12, 24, 21, 0, 0, 0, time.UTC),
			EndTime:   time.Date(2025, 12, 24, 23, 45, 0, 0, time.UTC),
			MinPrice:  199.99,
			MaxPrice:  199.99,
		},
	} {
		if _, err := store.Save(ctx, req); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	log.Printf("[seed] stored 3 demo events")
	return nil
}
