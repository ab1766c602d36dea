package service

import (
	"sync"
	"time"
)

// PassSummary is the JSON view of a finished pass.
type PassSummary struct {
	ID         string    `json:"id"`
	Outcome    string    `json:"outcome"`
	FinishedAt time.Time `json:"finished_at"`
	Fetched    int       `json:"fetched"`
	Inserted   int       `json:"inserted"`
	Updated    int       `json:"updated"`
	Failed     int       `json:"failed"`
	DurationMs int64     `json:"duration_ms"`
}

// PassHistory is a fixed-size circular buffer of recent pass summaries.
// The oldest entry is overwritten when full. Safe for concurrent use.
type PassHistory struct {
	mu   sync.RWMutex
	buf  []PassSummary
	pos  int // next write position
	full bool
}

// NewPassHistory keeps the last capacity passes (default 20).
func NewPassHistory(capacity int) *PassHistory {
	if capacity <= 0 {
		capacity = 20
	}
	return &PassHistory{buf: make([]PassSummary, capacity)}
}

// Record stores r finished at at. It fits WithPassObserver.
func (h *PassHistory) Record(r PassReport, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf[h.pos] = PassSummary{
		ID:         r.ID,
		Outcome:    r.Outcome,
		FinishedAt: at,
		Fetched:    r.Fetched,
		Inserted:   r.Inserted,
		Updated:    r.Updated,
		Failed:     len(r.Failures),
		DurationMs: r.Duration.Milliseconds(),
	}
	h.pos = (h.pos + 1) % len(h.buf)
	if h.pos == 0 {
		h.full = true
	}
}

// Recent returns up to n summaries, newest first. n <= 0 returns all.
func (h *PassHistory) Recent(n int) []PassSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := h.pos
	if h.full {
		count = len(h.buf)
	}
	if n <= 0 || n > count {
		n = count
	}

	out := make([]PassSummary, 0, n)
	for i := 0; i < n; i++ {
		idx := (h.pos - 1 - i + len(h.buf)) % len(h.buf)
		out = append(out, h.buf[idx])
	}
	return out
}
