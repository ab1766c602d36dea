package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"event-catalog/internal/logger"
	"event-catalog/internal/metrics"
	"event-catalog/internal/model"
	"event-catalog/internal/notification"
)

var (
	// ErrIngestionUnavailable is returned by Trigger once the service is closed.
	ErrIngestionUnavailable = errors.New("ingestion cannot be started")

	// ErrPassInProgress is returned by RunPass when the guard refuses the pass.
	ErrPassInProgress = errors.New("another ingestion pass is in progress")
)

// Pass outcomes, also used as metric labels.
const (
	OutcomeCompleted   = "completed"
	OutcomeFetchFailed = "fetch_failed"
	OutcomeSkipped     = "skipped"
)

// ItemFailure is one provider event that could not be reconciled.
type ItemFailure struct {
	Title string
	Err   error
}

// PassReport summarizes one ingestion pass.
type PassReport struct {
	ID       string
	Outcome  string
	Fetched  int
	Inserted int
	Updated  int
	Failures []ItemFailure
	Duration time.Duration
}

// stats converts the report into the form attached to alerts.
func (r PassReport) stats() *notification.PassStats {
	ps := &notification.PassStats{
		ID:         r.ID,
		Outcome:    r.Outcome,
		Fetched:    r.Fetched,
		Inserted:   r.Inserted,
		Updated:    r.Updated,
		Failed:     len(r.Failures),
		DurationMs: r.Duration.Milliseconds(),
	}
	for _, f := range r.Failures {
		ps.FailedTitles = append(ps.FailedTitles, f.Title)
	}
	return ps
}

// IngestService pulls the provider feed and reconciles it into the store,
// keyed by title.
type IngestService struct {
	provider model.ProviderClient
	store    model.EventStore
	guard    PassGuard
	notifier notification.Notifier
	metrics  *metrics.Metrics
	onPass   func(PassReport)

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// IngestOption configures an IngestService.
type IngestOption func(*IngestService)

// WithGuard sets the pass guard. The default is NoGuard.
func WithGuard(g PassGuard) IngestOption {
	return func(s *IngestService) { s.guard = g }
}

// WithNotifier sets where failed passes are reported.
func WithNotifier(n notification.Notifier) IngestOption {
	return func(s *IngestService) { s.notifier = n }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) IngestOption {
	return func(s *IngestService) { s.metrics = m }
}

// WithPassObserver registers fn to be called after every pass.
func WithPassObserver(fn func(PassReport)) IngestOption {
	return func(s *IngestService) { s.onPass = fn }
}

// NewIngestService creates an ingestion service.
func NewIngestService(provider model.ProviderClient, store model.EventStore, opts ...IngestOption) *IngestService {
	s := &IngestService{
		provider: provider,
		store:    store,
		guard:    NoGuard{},
		notifier: notification.NewLogNotifier(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Trigger starts a pass in the background and returns at once. The pass
// outlives ctx's cancellation but keeps its values. Nothing tracks the pass
// for the caller: its outcome is only visible in logs, metrics and alerts.
func (s *IngestService) Trigger(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrIngestionUnavailable
	}

	passCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.RunPass(passCtx)
	}()
	return nil
}

// Close stops accepting triggers. Passes already running are not stopped.
func (s *IngestService) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Wait blocks until every triggered pass has returned.
func (s *IngestService) Wait() {
	s.wg.Wait()
}

// RunPass runs one pass synchronously: fetch, then reconcile every provider
// event in feed order. A failing item is recorded and skipped; only a fetch
// failure or a refused guard ends the pass early.
func (s *IngestService) RunPass(ctx context.Context) (PassReport, error) {
	began := time.Now()
	report := PassReport{ID: logger.GenerateTraceID("ingest", began)}
	ctx = logger.WithTraceID(ctx, report.ID)

	release, ok, err := s.guard.TryAcquire(ctx)
	if err != nil || !ok {
		report.Outcome = OutcomeSkipped
		if err == nil {
			err = ErrPassInProgress
		}
		slog.WarnContext(ctx, "ingestion pass skipped", "error", err)
		s.metrics.PassSkipped()
		s.finish(ctx, &report, began)
		return report, err
	}
	defer release()

	s.metrics.PassStarted()

	slog.InfoContext(ctx, "fetching event data from provider")
	fetchStart := time.Now()
	events, err := s.provider.Fetch(ctx)
	if err != nil {
		report.Outcome = OutcomeFetchFailed
		slog.ErrorContext(ctx, "event data ingestion failed", "error", err)
		s.metrics.PassFinished(report.Outcome, time.Since(began))
		s.finish(ctx, &report, began)
		s.alert(ctx, notification.Alert{
			Level:   notification.AlertCritical,
			Title:   "Event ingestion failed",
			Message: err.Error(),
			Pass:    report.stats(),
		})
		return report, err
	}
	s.metrics.Fetched(len(events), time.Since(fetchStart))
	report.Fetched = len(events)

	slog.InfoContext(ctx, "updating event store with provider data", "events", len(events))
	for _, pe := range events {
		s.reconcile(ctx, pe, &report)
	}

	report.Outcome = OutcomeCompleted
	s.metrics.PassFinished(report.Outcome, time.Since(began))
	s.finish(ctx, &report, began)

	if len(report.Failures) > 0 {
		s.alert(ctx, notification.Alert{
			Level:   notification.AlertWarning,
			Title:   "Event ingestion finished with failures",
			Message: fmt.Sprintf("%d of %d provider events could not be stored", len(report.Failures), report.Fetched),
			Pass:    report.stats(),
		})
	}
	return report, nil
}

// reconcile updates the first stored event with the same title, or saves a
// new one. The lookup and the write are separate store calls.
func (s *IngestService) reconcile(ctx context.Context, pe model.ProviderEvent, report *PassReport) {
	existing, found, err := s.store.FindByTitle(ctx, pe.Title)
	if err != nil {
		s.itemFailed(ctx, pe, "lookup", err, report)
		return
	}

	if found {
		if _, err := s.store.Upsert(ctx, pe.ApplyTo(existing)); err != nil {
			s.itemFailed(ctx, pe, "upsert", err, report)
			return
		}
		report.Updated++
		s.metrics.Item("updated")
		slog.DebugContext(ctx, "event updated", "id", existing.ID, "title", pe.Title)
		return
	}

	saved, err := s.store.Save(ctx, pe.SaveRequest())
	if err != nil {
		s.itemFailed(ctx, pe, "save", err, report)
		return
	}
	report.Inserted++
	s.metrics.Item("inserted")
	slog.DebugContext(ctx, "event inserted", "id", saved.ID, "title", pe.Title)
}

func (s *IngestService) itemFailed(ctx context.Context, pe model.ProviderEvent, step string, err error, report *PassReport) {
	report.Failures = append(report.Failures, ItemFailure{Title: pe.Title, Err: err})
	s.metrics.Item("failed")
	slog.ErrorContext(ctx, "failed to reconcile provider event",
		"step", step, "title", pe.Title, "start_time", pe.StartTime, "error", err)
}

func (s *IngestService) finish(ctx context.Context, report *PassReport, began time.Time) {
	report.Duration = time.Since(began)
	if report.Outcome != OutcomeSkipped {
		slog.InfoContext(ctx, "ingestion pass finished",
			"outcome", report.Outcome,
			"fetched", report.Fetched,
			"inserted", report.Inserted,
			"updated", report.Updated,
			"failed", len(report.Failures),
			"duration", report.Duration.String(),
		)
	}
	if s.onPass != nil {
		s.onPass(*report)
	}
}

func (s *IngestService) alert(ctx context.Context, a notification.Alert) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, a); err != nil {
		slog.WarnContext(ctx, "failed to deliver alert", "title", a.Title, "error", err)
	}
}
