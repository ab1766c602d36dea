package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"event-catalog/internal/api"
	"event-catalog/internal/metrics"
	"event-catalog/internal/scheduler"
	"event-catalog/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the optional ingestion schedule",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	log.Printf("[eventsd] starting...")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	// ---- Setup metrics & health ----
	var metricsSrv *metrics.Server
	if cfg.Metrics.Addr != "" {
		metricsSrv = metrics.NewServer(cfg.Metrics.Addr, a.registry, a.health)
		metricsSrv.Start()
		a.health.StartLivenessChecker(ctx, 10*time.Second)
	}

	ingest := a.ingestService()

	var sched *scheduler.Scheduler
	if cfg.Ingest.Schedule != "" {
		sched, err = scheduler.New(cfg.Ingest.Schedule, ingest)
		if err != nil {
			return err
		}
		sched.Start()
	}

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: api.NewRouter(api.Config{
			Search:        service.NewSearchService(a.store, a.metrics),
			Ingest:        ingest,
			Passes:        a.history,
			SearchTimeout: cfg.RequestTimeout(),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[eventsd] listening on %s (store=%s, serialize=%s)", srv.Addr, cfg.Database.Driver, cfg.Ingest.Serialize)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Printf("[eventsd] shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// In-flight ingestion passes are abandoned at exit.
	ingest.Close()
	if sched != nil {
		sched.Stop(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[eventsd] http shutdown: %v", err)
	}
	if metricsSrv != nil {
		metricsSrv.Stop(shutdownCtx)
	}
	log.Printf("[eventsd] stopped")
	return nil
}
