package sqlite

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"event-catalog/internal/model"
)

var nov12 = time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{DBPath: filepath.Join(t.TempDir(), "events.db")})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func req(title string, start time.Time, d time.Duration, minPrice, maxPrice float64) model.SaveRequest {
	return model.SaveRequest{Title: title, StartTime: start, EndTime: start.Add(d), MinPrice: minPrice, MaxPrice: maxPrice}
}

func TestSave_RoundTripByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	r := req("Quevedo", nov12.Add(22*time.Hour), time.Hour, 15.99, 39.99)

	saved, err := s.Save(ctx, r)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, ok, err := s.FindByID(ctx, saved.ID)
	if err != nil || !ok {
		t.Fatalf("FindByID: ok=%v err=%v", ok, err)
	}
	want := model.Event{ID: saved.ID, Title: r.Title, StartTime: r.StartTime, EndTime: r.EndTime, MinPrice: 15.99, MaxPrice: 39.99}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %+v, got %+v", want, got)
	}
	if !reflect.DeepEqual(saved, want) {
		t.Errorf("expected Save to return the stored row %+v, got %+v", want, saved)
	}
}

func TestSave_PricesAreStoredInMinorUnits(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saved, err := s.Save(ctx, req("Tool", nov12, time.Hour, 199.99, 199.999))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	var minCents, maxCents int64
	err = s.DB().QueryRow(`SELECT min_price, max_price FROM events WHERE id = ?`, saved.ID.String()).Scan(&minCents, &maxCents)
	if err != nil {
		t.Fatalf("raw select: %v", err)
	}
	if minCents != 19999 || maxCents != 20000 {
		t.Errorf("expected (19999, 20000) cents, got (%d, %d)", minCents, maxCents)
	}
	if saved.MaxPrice != 200 {
		t.Errorf("expected read-after-write to reflect rounding, got %v", saved.MaxPrice)
	}
}

func TestSave_NonUTCTimesComeBackAsSameInstant(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	madrid := time.FixedZone("CET", 3600)
	start := time.Date(2025, 11, 12, 23, 0, 0, 0, madrid)

	saved, err := s.Save(ctx, req("Quevedo", start, time.Hour, 1, 2))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !saved.StartTime.Equal(start) || saved.StartTime.Location() != time.UTC {
		t.Errorf("expected %v in UTC, got %v", start, saved.StartTime)
	}
}

func TestFindByID_NotFoundIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.FindByID(context.Background(), uuid.New())
	if err != nil || ok {
		t.Errorf("expected (false, nil), got (%v, %v)", ok, err)
	}
}

func TestFindByTitle_FirstInsertedWins(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first, _ := s.Save(ctx, req("Tool", nov12, time.Hour, 1, 2))
	s.Save(ctx, req("Tool", nov12.Add(time.Hour), time.Hour, 1, 2))

	got, ok, err := s.FindByTitle(ctx, "Tool")
	if err != nil || !ok {
		t.Fatalf("FindByTitle: ok=%v err=%v", ok, err)
	}
	if got.ID != first.ID {
		t.Errorf("expected %s, got %s", first.ID, got.ID)
	}

	if _, ok, err := s.FindByTitle(ctx, "Nirvana"); ok || err != nil {
		t.Errorf("expected (false, nil) for unknown title, got (%v, %v)", ok, err)
	}
}

func TestUpsert_UpdatesInPlaceAndIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, _ := s.Save(ctx, req("A", nov12, time.Hour, 1, 2))
	b, _ := s.Save(ctx, req("B", nov12, time.Hour, 1, 2))

	a.StartTime = nov12.Add(2 * time.Hour)
	a.EndTime = nov12.Add(3 * time.Hour)
	a.MinPrice, a.MaxPrice = 75.95, 209.99

	got, err := s.Upsert(ctx, a)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !reflect.DeepEqual(got, a) {
		t.Errorf("expected %+v, got %+v", a, got)
	}

	once, _ := s.FindAll(ctx)
	if _, err := s.Upsert(ctx, a); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	twice, _ := s.FindAll(ctx)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("expected identical state, got %+v vs %+v", once, twice)
	}
	if len(twice) != 2 || twice[0].ID != a.ID || twice[1].ID != b.ID {
		t.Errorf("expected upsert to keep insertion order, got %+v", twice)
	}
}

func TestUpsert_CreatesWhenAbsent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	e := model.Event{
		ID:        uuid.MustParse("3fa85f64-5717-4562-b3fc-2c963f66afa6"),
		Title:     "Quevedo",
		StartTime: nov12.Add(22 * time.Hour),
		EndTime:   nov12.Add(23 * time.Hour),
		MinPrice:  15.99,
		MaxPrice:  39.99,
	}

	got, err := s.Upsert(ctx, e)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !reflect.DeepEqual(got, e) {
		t.Errorf("expected %+v, got %+v", e, got)
	}
}

func TestFindBetween_FiltersAndPaginates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	var inside []model.Event
	for i := 0; i < 5; i++ {
		e, err := s.Save(ctx, req("in", nov12.Add(time.Duration(i)*time.Hour), 30*time.Minute, 1, 2))
		if err != nil {
			t.Fatalf("Save: %v", err)
		}
		inside = append(inside, e)
	}
	s.Save(ctx, req("before", nov12.Add(-time.Hour), 30*time.Minute, 1, 2))
	s.Save(ctx, req("after", nov12.Add(23*time.Hour), 2*time.Hour, 1, 2))

	start, end := nov12, nov12.Add(24*time.Hour)

	page, err := s.FindBetween(ctx, start, end, 2, 1)
	if err != nil {
		t.Fatalf("FindBetween: %v", err)
	}
	if len(page) != 2 || page[0].ID != inside[1].ID || page[1].ID != inside[2].ID {
		t.Errorf("expected events 1 and 2, got %+v", page)
	}

	all, _ := s.FindBetween(ctx, start, end, 100, 0)
	if len(all) != 5 {
		t.Errorf("expected 5 events, got %d", len(all))
	}

	empty, err := s.FindBetween(ctx, start, end, 0, 0)
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty page for limit 0, got %v (%v)", empty, err)
	}
}

func TestFindBetween_HugeLimitAndOffset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	s.Save(ctx, req("A", nov12, time.Hour, 1, 2))
	s.Save(ctx, req("B", nov12, time.Hour, 1, 2))

	all, err := s.FindBetween(ctx, nov12, nov12.Add(time.Hour), math.MaxUint64, 0)
	if err != nil || len(all) != 2 {
		t.Errorf("expected both events for a huge limit, got %d (%v)", len(all), err)
	}

	none, err := s.FindBetween(ctx, nov12, nov12.Add(time.Hour), 10, 1<<63)
	if err != nil || len(none) != 0 {
		t.Errorf("expected empty page for a huge offset, got %d (%v)", len(none), err)
	}
}

func TestFindBetween_FarFutureEndBound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	quevedo, _ := s.Save(ctx, req("Quevedo", nov12.Add(22*time.Hour), time.Hour, 15.99, 39.99))

	for _, end := range []time.Time{
		time.Date(2300, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC),
	} {
		page, err := s.FindBetween(ctx, time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC), end, 10, 0)
		if err != nil {
			t.Fatalf("FindBetween(end=%v): %v", end, err)
		}
		if len(page) != 1 || page[0].ID != quevedo.ID {
			t.Errorf("end=%v: expected Quevedo, got %+v", end, page)
		}
	}
}

func TestSave_FarFutureTimesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	start := time.Date(2500, 6, 30, 21, 0, 0, 123456789, time.UTC)

	saved, err := s.Save(ctx, req("Camela", start, time.Hour, 15, 30))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !saved.StartTime.Equal(start) || !saved.EndTime.Equal(start.Add(time.Hour)) {
		t.Errorf("expected %v to round-trip, got %v - %v", start, saved.StartTime, saved.EndTime)
	}

	page, _ := s.FindBetween(ctx, nov12, nov12.Add(24*time.Hour), 10, 0)
	if len(page) != 0 {
		t.Errorf("expected year-2500 event outside a 2025 window, got %+v", page)
	}
}

func TestEncodeTime_SortsAndClamps(t *testing.T) {
	early := encodeTime(time.Date(999, 1, 1, 0, 0, 0, 0, time.UTC))
	late := encodeTime(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if !(early < late) {
		t.Errorf("expected %q < %q", early, late)
	}
	if got := encodeTime(time.Date(12000, 1, 1, 0, 0, 0, 0, time.UTC)); got != "9999-12-31T23:59:59.999999999Z" {
		t.Errorf("expected clamp to year 9999, got %q", got)
	}
	if got := encodeTime(time.Date(-5, 1, 1, 0, 0, 0, 0, time.UTC)); got != "0000-01-01T00:00:00.000000000Z" {
		t.Errorf("expected clamp to year 0, got %q", got)
	}
}

func TestClosedStoreReportsStoreError(t *testing.T) {
	s := newTestStore(t)
	s.Close()

	if _, err := s.Save(context.Background(), req("x", nov12, time.Hour, 1, 2)); !errors.Is(err, model.ErrStore) {
		t.Errorf("expected ErrStore from Save, got %v", err)
	}
	if _, _, err := s.FindByTitle(context.Background(), "x"); !errors.Is(err, model.ErrStore) {
		t.Errorf("expected ErrStore from FindByTitle, got %v", err)
	}
}
