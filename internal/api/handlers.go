package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"event-catalog/internal/logger"
)

type handlers struct {
	search        Searcher
	ingest        Ingester
	passes        PassLister
	searchTimeout time.Duration
}

func (h *handlers) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "Hello, world!")
}

type searchQuery struct {
	start, end    time.Time
	limit, offset uint64
}

// parseSearchQuery requires start_time, end_time (RFC 3339) and limit.
// offset defaults to 0.
func parseSearchQuery(r *http.Request) (searchQuery, error) {
	var (
		q   searchQuery
		err error
	)
	v := r.URL.Query()

	if q.start, err = time.Parse(time.RFC3339, v.Get("start_time")); err != nil {
		return q, err
	}
	if q.end, err = time.Parse(time.RFC3339, v.Get("end_time")); err != nil {
		return q, err
	}
	if q.limit, err = strconv.ParseUint(v.Get("limit"), 10, 64); err != nil {
		return q, err
	}
	if raw := v.Get("offset"); raw != "" {
		if q.offset, err = strconv.ParseUint(raw, 10, 64); err != nil {
			return q, err
		}
	}
	return q, nil
}

func (h *handlers) searchEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, err := parseSearchQuery(r)
	if err != nil {
		slog.DebugContext(ctx, "search query params are invalid", "query", r.URL.RawQuery, "error", err)
		writeError(w, http.StatusBadRequest, CodeMissingParams, "Missing required params")
		return
	}

	if h.searchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.searchTimeout)
		defer cancel()
	}

	page, err := h.search.Search(ctx, q.start, q.end, q.limit, q.offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeSearchFailed, "Unexpected error when searching events.")
		return
	}
	writeData(w, newSearchData(page.Events), searchMeta{Limit: page.Limit, Offset: page.Offset})
}

func (h *handlers) triggerIngest(w http.ResponseWriter, r *http.Request) {
	if err := h.ingest.Trigger(r.Context()); err != nil {
		slog.ErrorContext(r.Context(), "event ingestion could not be started", "error", err)
		writeError(w, http.StatusInternalServerError, CodeIngestionNotStarted, "Unexpected error when starting event ingestion.")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *handlers) getEvent(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, CodeNotFound, "Event not found")
		return
	}

	e, ok, err := h.search.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, CodeSearchFailed, "Unexpected error when searching events.")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, CodeNotFound, "Event not found")
		return
	}
	writeData(w, newEventView(e), nil)
}

// listPasses returns the most recent passes; ?limit=n caps the count.
func (h *handlers) listPasses(w http.ResponseWriter, r *http.Request) {
	n := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, CodeMissingParams, "Missing required params")
			return
		}
		n = v
	}
	writeData(w, h.passes.Recent(n), nil)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// withRequestLog tags each request with a trace id and logs its outcome.
func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		began := time.Now()
		ctx := logger.WithTraceID(r.Context(), logger.GenerateTraceID("req", began))
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(ctx))

		level := slog.LevelDebug
		if rec.status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(began).String(),
		)
	})
}
