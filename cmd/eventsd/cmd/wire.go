package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"event-catalog/config"
	"event-catalog/internal/metrics"
	"event-catalog/internal/model"
	"event-catalog/internal/notification"
	"event-catalog/internal/provider"
	"event-catalog/internal/service"
	"event-catalog/internal/store/memory"
	"event-catalog/internal/store/postgres"
	redislock "event-catalog/internal/store/redis"
	"event-catalog/internal/store/sqlite"
)

// app holds the components shared by every command.
type app struct {
	cfg      *config.Config
	store    model.EventStore
	provider *provider.Client
	lock     *redislock.PassLock // nil unless ingest.serialize=redis
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	health   *metrics.HealthStatus
	history  *service.PassHistory
	notifier notification.Notifier
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, store: store}

	if cfg.Database.Seed {
		if err := seedDemoEvents(ctx, store); err != nil {
			a.close()
			return nil, err
		}
	}

	a.provider, err = provider.NewClient(provider.Config{
		BaseURL: cfg.EventProvider.URL,
		APIPath: cfg.EventProvider.APIPath,
		Timeout: cfg.ProviderTimeout(),
	})
	if err != nil {
		a.close()
		return nil, err
	}

	var redisPinger metrics.Pinger
	if cfg.Ingest.Serialize == config.SerializeRedis {
		a.lock, err = redislock.New(redislock.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
		})
		if err != nil {
			a.close()
			return nil, err
		}
		client := a.lock.Client()
		redisPinger = metrics.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = metrics.NewMetrics(a.registry)
	a.health = metrics.NewHealthStatus(store, redisPinger)
	a.history = service.NewPassHistory(20)

	if cfg.Notify.WebhookURL != "" {
		a.notifier = notification.NewWebhookNotifier(cfg.Notify.WebhookURL)
	} else {
		a.notifier = notification.NewLogNotifier()
	}
	return a, nil
}

func openStore(ctx context.Context, cfg *config.Config) (model.EventStore, error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		log.Printf("[store] using in-memory event store")
		return memory.New(), nil
	case config.DriverSQLite:
		store, err := sqlite.New(sqlite.Config{DBPath: cfg.Database.URL})
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverPostgres:
		store, err := postgres.New(ctx, postgresConfig(cfg))
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}

func postgresConfig(cfg *config.Config) postgres.Config {
	return postgres.Config{
		DSN:        cfg.Database.URL,
		MaxConns:   cfg.Database.MaxConnections,
		ViaBouncer: cfg.Database.ViaBouncer,
	}
}

func (a *app) passGuard() service.PassGuard {
	switch a.cfg.Ingest.Serialize {
	case config.SerializeLocal:
		return &service.LocalGuard{}
	case config.SerializeRedis:
		return a.lock
	}
	return service.NoGuard{}
}

func (a *app) ingestService() *service.IngestService {
	return service.NewIngestService(a.provider, a.store,
		service.WithGuard(a.passGuard()),
		service.WithNotifier(a.notifier),
		service.WithMetrics(a.metrics),
		service.WithPassObserver(func(r service.PassReport) {
			now := time.Now()
			a.health.SetLastPass(now, r.Outcome)
			a.history.Record(r, now)
		}),
	)
}

func (a *app) close() {
	if a.lock != nil {
		a.lock.Close()
	}
	if err := a.store.Close(); err != nil {
		log.Printf("[store] close: %v", err)
	}
}
