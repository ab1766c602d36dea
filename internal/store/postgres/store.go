// Package postgres provides a model.EventStore backed by PostgreSQL through
// a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"event-catalog/internal/model"
)

// Config configures the Postgres store.
type Config struct {
	DSN        string
	MaxConns   int
	ViaBouncer bool // simple protocol, for pgbouncer transaction pooling
}

// Store is a pooled Postgres event store. Natural order is the seq identity
// column, i.e. insertion order. TIMESTAMPTZ keeps microsecond precision.
type Store struct {
	pool *pgxpool.Pool
}

var _ model.EventStore = (*Store)(nil)

// New connects the pool and ensures the events table exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	pcfg, err := poolConfig(cfg)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := createSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}

	log.Printf("[postgres] event store ready (max_conns=%d, via_bouncer=%v)", pcfg.MaxConns, cfg.ViaBouncer)
	return &Store{pool: pool}, nil
}

func poolConfig(cfg Config) (*pgxpool.Config, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres dsn parse: %w", err)
	}
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 2
	}
	pcfg.MaxConns = int32(maxConns)
	if cfg.ViaBouncer {
		pcfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}
	return pcfg, nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id         UUID        PRIMARY KEY,
		title      TEXT        NOT NULL,
		start_time TIMESTAMPTZ NOT NULL,
		end_time   TIMESTAMPTZ NOT NULL,
		min_price  BIGINT      NOT NULL,
		max_price  BIGINT      NOT NULL,
		seq        BIGINT      GENERATED ALWAYS AS IDENTITY
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_title ON events (title)`,
	`CREATE INDEX IF NOT EXISTS idx_events_window ON events (start_time, end_time)`,
}

func createSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const selectEvents = `SELECT id::text, title, start_time, end_time, min_price, max_price FROM events`

func (s *Store) FindAll(ctx context.Context) ([]model.Event, error) {
	rows, err := s.pool.Query(ctx, selectEvents+` ORDER BY seq`)
	if err != nil {
		return nil, storeErr("query all events", err)
	}
	return collectEvents(rows)
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (model.Event, bool, error) {
	row := s.pool.QueryRow(ctx, selectEvents+` WHERE id = $1::uuid`, id.String())
	return scanOptional(row, "find event by id")
}

func (s *Store) FindByTitle(ctx context.Context, title string) (model.Event, bool, error) {
	row := s.pool.QueryRow(ctx, selectEvents+` WHERE title = $1 ORDER BY seq LIMIT 1`, title)
	return scanOptional(row, "find event by title")
}

func (s *Store) FindBetween(ctx context.Context, start, end time.Time, limit, offset uint64) ([]model.Event, error) {
	lim, off, ok := model.SQLPage(limit, offset)
	if !ok {
		return []model.Event{}, nil
	}

	rows, err := s.pool.Query(ctx, selectEvents+`
		WHERE start_time >= $1 AND end_time <= $2
		ORDER BY seq
		LIMIT $3 OFFSET $4
	`, start, end, lim, off)
	if err != nil {
		return nil, storeErr("query events between", err)
	}
	return collectEvents(rows)
}

func (s *Store) Save(ctx context.Context, req model.SaveRequest) (model.Event, error) {
	r := fromModel(model.NewEvent(req))
	_, err := s.pool.Exec(ctx, `
		INSERT INTO events (id, title, start_time, end_time, min_price, max_price)
		VALUES ($1::uuid, $2, $3, $4, $5, $6)
	`, r.args()...)
	if err != nil {
		return model.Event{}, storeErr("insert event", err)
	}
	return s.reload(ctx, r.ID, "save event")
}

// Upsert is a single INSERT .. ON CONFLICT statement, atomic per id.
func (s *Store) Upsert(ctx context.Context, e model.Event) (model.Event, error) {
	r := fromModel(e)
	_, err := s.pool.Exec(ctx, `
		INSERT INTO events (id, title, start_time, end_time, min_price, max_price)
		VALUES ($1::uuid, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET title = $2, start_time = $3, end_time = $4, min_price = $5, max_price = $6
	`, r.args()...)
	if err != nil {
		return model.Event{}, storeErr("upsert event", err)
	}
	return s.reload(ctx, r.ID, "upsert event")
}

func (s *Store) reload(ctx context.Context, id string, action string) (model.Event, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return model.Event{}, storeErr(action, err)
	}
	e, ok, err := s.FindByID(ctx, parsed)
	if err != nil {
		return model.Event{}, err
	}
	if !ok {
		return model.Event{}, storeErr(action, fmt.Errorf("event %s not found after write", id))
	}
	return e, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanOptional(row pgx.Row, action string) (model.Event, bool, error) {
	var r eventRow
	err := row.Scan(&r.ID, &r.Title, &r.StartTime, &r.EndTime, &r.MinCents, &r.MaxCents)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Event{}, false, nil
	}
	if err != nil {
		return model.Event{}, false, storeErr(action, err)
	}
	e, err := r.toModel()
	if err != nil {
		return model.Event{}, false, storeErr(action, err)
	}
	return e, true, nil
}

func collectEvents(rows pgx.Rows) ([]model.Event, error) {
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var r eventRow
		if err := rows.Scan(&r.ID, &r.Title, &r.StartTime, &r.EndTime, &r.MinCents, &r.MaxCents); err != nil {
			return nil, storeErr("scan event", err)
		}
		e, err := r.toModel()
		if err != nil {
			return nil, storeErr("scan event", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("iterate events", err)
	}
	return events, nil
}

func storeErr(action string, err error) error {
	return fmt.Errorf("%w: postgres %s: %w", model.ErrStore, action, err)
}
