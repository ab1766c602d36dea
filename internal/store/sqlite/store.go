// Package sqlite provides a model.EventStore backed by an embedded SQLite
// database. Prices are stored in minor currency units, timestamps as
// fixed-width UTC text.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"event-catalog/internal/model"
)

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to the database file, e.g. "data/events.db"
}

// Store is a single-connection SQLite event store. Natural order is rowid,
// i.e. insertion order; upserts keep the original rowid.
type Store struct {
	db *sql.DB
}

var _ model.EventStore = (*Store)(nil)

// DB returns the underlying sql.DB.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database with WAL mode and creates the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer; busy_timeout covers readers racing the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened event store at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id         TEXT    NOT NULL PRIMARY KEY,
			title      TEXT    NOT NULL,
			start_time TEXT    NOT NULL,
			end_time   TEXT    NOT NULL,
			min_price  INTEGER NOT NULL,
			max_price  INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_events_title ON events (title);
		CREATE INDEX IF NOT EXISTS idx_events_window ON events (start_time, end_time);
	`)
	return err
}

const selectEvents = `SELECT id, title, start_time, end_time, min_price, max_price FROM events`

func (s *Store) FindAll(ctx context.Context) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectEvents+` ORDER BY rowid`)
	if err != nil {
		return nil, storeErr("query all events", err)
	}
	return scanEvents(rows)
}

func (s *Store) FindByID(ctx context.Context, id uuid.UUID) (model.Event, bool, error) {
	row := s.db.QueryRowContext(ctx, selectEvents+` WHERE id = ?`, id.String())
	return scanOptional(row, "find event by id")
}

func (s *Store) FindByTitle(ctx context.Context, title string) (model.Event, bool, error) {
	row := s.db.QueryRowContext(ctx, selectEvents+` WHERE title = ? ORDER BY rowid LIMIT 1`, title)
	return scanOptional(row, "find event by title")
}

func (s *Store) FindBetween(ctx context.Context, start, end time.Time, limit, offset uint64) ([]model.Event, error) {
	lim, off, ok := model.SQLPage(limit, offset)
	if !ok {
		return []model.Event{}, nil
	}

	rows, err := s.db.QueryContext(ctx, selectEvents+`
		WHERE start_time >= ? AND end_time <= ?
		ORDER BY rowid
		LIMIT ? OFFSET ?
	`, encodeTime(start), encodeTime(end), lim, off)
	if err != nil {
		return nil, storeErr("query events between", err)
	}
	return scanEvents(rows)
}

func (s *Store) Save(ctx context.Context, req model.SaveRequest) (model.Event, error) {
	e := model.NewEvent(req)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, title, start_time, end_time, min_price, max_price)
		VALUES (?, ?, ?, ?, ?, ?)
	`, eventArgs(e)...)
	if err != nil {
		return model.Event{}, storeErr("insert event", err)
	}
	return s.reload(ctx, e.ID, "save event")
}

func (s *Store) Upsert(ctx context.Context, e model.Event) (model.Event, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, title, start_time, end_time, min_price, max_price)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			min_price = excluded.min_price,
			max_price = excluded.max_price
	`, eventArgs(e)...)
	if err != nil {
		return model.Event{}, storeErr("upsert event", err)
	}
	return s.reload(ctx, e.ID, "upsert event")
}

// reload re-reads a just-written row so callers get exactly what is durable.
func (s *Store) reload(ctx context.Context, id uuid.UUID, action string) (model.Event, error) {
	e, ok, err := s.FindByID(ctx, id)
	if err != nil {
		return model.Event{}, err
	}
	if !ok {
		return model.Event{}, storeErr(action, fmt.Errorf("event %s not found after write", id))
	}
	return e, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func eventArgs(e model.Event) []any {
	return []any{
		e.ID.String(),
		e.Title,
		encodeTime(e.StartTime),
		encodeTime(e.EndTime),
		model.ToMinorUnits(e.MinPrice),
		model.ToMinorUnits(e.MaxPrice),
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(sc scanner) (model.Event, error) {
	var (
		e                  model.Event
		id                 string
		start, end         string
		minCents, maxCents int64
	)
	if err := sc.Scan(&id, &e.Title, &start, &end, &minCents, &maxCents); err != nil {
		return model.Event{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return model.Event{}, fmt.Errorf("parse id %q: %w", id, err)
	}
	e.ID = parsed
	if e.StartTime, err = decodeTime(start); err != nil {
		return model.Event{}, err
	}
	if e.EndTime, err = decodeTime(end); err != nil {
		return model.Event{}, err
	}
	e.MinPrice = model.FromMinorUnits(minCents)
	e.MaxPrice = model.FromMinorUnits(maxCents)
	return e, nil
}

func scanOptional(row *sql.Row, action string) (model.Event, bool, error) {
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, false, nil
	}
	if err != nil {
		return model.Event{}, false, storeErr(action, err)
	}
	return e, true, nil
}

func scanEvents(rows *sql.Rows) ([]model.Event, error) {
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
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

// storedTimeLayout sorts lexically in time order for years 0000 to 9999.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z"

var (
	minStoredTime = time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC)
	maxStoredTime = time.Date(9999, time.December, 31, 23, 59, 59, 999999999, time.UTC)
)

// encodeTime formats t in UTC, clamped to the four-digit-year range.
func encodeTime(t time.Time) string {
	t = t.UTC()
	if t.Before(minStoredTime) {
		t = minStoredTime
	} else if t.After(maxStoredTime) {
		t = maxStoredTime
	}
	return t.Format(storedTimeLayout)
}

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(storedTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", s, err)
	}
	return t, nil
}

func storeErr(action string, err error) error {
	return fmt.Errorf("%w: sqlite %s: %w", model.ErrStore, action, err)
}
