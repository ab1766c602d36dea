package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"event-catalog/config"
	"event-catalog/internal/service"
	"event-catalog/internal/store/memory"
)

func TestSeedDemoEvents(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	if err := seedDemoEvents(ctx, store); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if store.Len() != 3 {
		t.Fatalf("expected 3 events, got %d", store.Len())
	}
	q, ok, _ := store.FindByID(ctx, quevedoID)
	if !ok || q.Title != "Quevedo" || q.MinPrice != 15.99 {
		t.Errorf("expected Quevedo under its fixed id, got %+v", q)
	}

	// A second seed leaves a populated store alone.
	if err := seedDemoEvents(ctx, store); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if store.Len() != 3 {
		t.Errorf("expected reseed to be a no-op, got %d events", store.Len())
	}
}

func TestOpenStore_Drivers(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: config.DriverMemory}}
	store, err := openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	store.Close()

	cfg.Database = config.DatabaseConfig{Driver: config.DriverSQLite, URL: t.TempDir() + "/events.db"}
	store, err = openStore(context.Background(), cfg)
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	store.Close()

	cfg.Database.Driver = "mongo"
	if _, err := openStore(context.Background(), cfg); err == nil {
		t.Error("expected unknown driver to fail")
	}
}

func TestPostgresConfig_CarriesBouncerFlag(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{
		Driver:         config.DriverPostgres,
		URL:            "postgres://events@localhost:6432/events",
		MaxConnections: 7,
		ViaBouncer:     true,
	}}
	pc := postgresConfig(cfg)
	if pc.DSN != cfg.Database.URL || pc.MaxConns != 7 || !pc.ViaBouncer {
		t.Errorf("unexpected postgres config %+v", pc)
	}
}

func TestPassGuardSelection(t *testing.T) {
	a := &app{cfg: &config.Config{}}
	a.cfg.Ingest.Serialize = config.SerializeNone
	if _, ok := a.passGuard().(service.NoGuard); !ok {
		t.Errorf("expected NoGuard, got %T", a.passGuard())
	}
	a.cfg.Ingest.Serialize = config.SerializeLocal
	if _, ok := a.passGuard().(*service.LocalGuard); !ok {
		t.Errorf("expected *LocalGuard, got %T", a.passGuard())
	}
}

func TestConfigCommand_PrintsYAML(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config"})
	t.Setenv("EVENTS__PORT", "9999")
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(out.String(), "port: 9999") {
		t.Errorf("expected port in dump, got:\n%s", out.String())
	}
}
