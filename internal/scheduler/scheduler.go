// Package scheduler triggers ingestion passes on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"event-catalog/internal/logger"
)

// Triggerer starts an ingestion pass without waiting for it.
type Triggerer interface {
	Trigger(ctx context.Context) error
}

// Scheduler fires a Triggerer on every tick of a cron schedule. Ticks are
// evaluated in UTC.
type Scheduler struct {
	cron    *cron.Cron
	entry   cron.EntryID
	spec    string
	trigger Triggerer
}

// New parses spec (standard five-field cron or a descriptor such as
// "@every 15m") and prepares a stopped scheduler.
func New(spec string, t Triggerer) (*Scheduler, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("scheduler: invalid schedule %q: %w", spec, err)
	}

	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC)),
		spec:    spec,
		trigger: t,
	}
	id, err := s.cron.AddFunc(spec, s.tick)
	if err != nil {
		return nil, fmt.Errorf("scheduler: add job: %w", err)
	}
	s.entry = id
	return s, nil
}

// Start begins firing in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	slog.Info("ingestion scheduler started", "schedule", s.spec, "next", s.Next())
}

// Stop halts the schedule and waits for a running tick to return, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	slog.Info("ingestion scheduler stopped")
}

// Next returns the next time the schedule fires, or zero before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

func (s *Scheduler) tick() {
	ctx := logger.WithTraceID(context.Background(), logger.GenerateTraceID("cron", time.Now()))
	if err := s.trigger.Trigger(ctx); err != nil {
		slog.ErrorContext(ctx, "scheduled ingestion could not be started", "error", err)
		return
	}
	slog.InfoContext(ctx, "scheduled ingestion triggered")
}
