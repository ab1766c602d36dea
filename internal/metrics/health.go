package metrics

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is anything whose reachability can be checked (event store, Redis).
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthStatus tracks dependency health and the last ingestion pass.
type HealthStatus struct {
	mu sync.RWMutex

	StoreOK        bool
	StoreLatencyMs float64
	RedisOK        bool
	RedisLatencyMs float64
	LastCheckAt    time.Time
	StartedAt      time.Time

	LastPassAt      time.Time
	LastPassOutcome string

	store Pinger
	redis Pinger // optional
}

// NewHealthStatus returns a health status probing store and, if non-nil, redis.
func NewHealthStatus(store, redis Pinger) *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
		store:     store,
		redis:     redis,
	}
}

// SetLastPass records when the last ingestion pass ended and how.
func (h *HealthStatus) SetLastPass(at time.Time, outcome string) {
	h.mu.Lock()
	h.LastPassAt = at
	h.LastPassOutcome = outcome
	h.mu.Unlock()
}

// Check pings every dependency once.
func (h *HealthStatus) Check(ctx context.Context) {
	storeOK, storeMs := ping(ctx, h.store)

	var redisOK bool
	var redisMs float64
	if h.redis != nil {
		redisOK, redisMs = ping(ctx, h.redis)
	}

	h.mu.Lock()
	h.StoreOK = storeOK
	h.StoreLatencyMs = storeMs
	h.RedisOK = redisOK
	h.RedisLatencyMs = redisMs
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

func ping(ctx context.Context, p Pinger) (bool, float64) {
	if p == nil {
		return false, 0
	}
	start := time.Now()
	err := p.Ping(ctx)
	return err == nil, float64(time.Since(start).Microseconds()) / 1000.0
}

// StartLivenessChecker pings dependencies immediately and then every interval.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			h.Check(checkCtx)
			cancel()

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overall := "healthy"
	code := http.StatusOK
	if !h.StoreOK {
		overall = "unhealthy"
		code = http.StatusServiceUnavailable
	} else if h.redis != nil && !h.RedisOK {
		overall = "degraded"
	}

	status := struct {
		Status          string   `json:"status"`
		Uptime          string   `json:"uptime"`
		StoreOK         bool     `json:"store_ok"`
		StoreLatencyMs  float64  `json:"store_latency_ms"`
		RedisOK         *bool    `json:"redis_ok,omitempty"`
		RedisLatencyMs  *float64 `json:"redis_latency_ms,omitempty"`
		LastCheckAt     string   `json:"last_check_at"`
		LastPassAt      string   `json:"last_pass_at,omitempty"`
		LastPassOutcome string   `json:"last_pass_outcome,omitempty"`
	}{
		Status:          overall,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		StoreOK:         h.StoreOK,
		StoreLatencyMs:  h.StoreLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
		LastPassOutcome: h.LastPassOutcome,
	}
	if h.redis != nil {
		ok, ms := h.RedisOK, h.RedisLatencyMs
		status.RedisOK = &ok
		status.RedisLatencyMs = &ms
	}
	if !h.LastPassAt.IsZero() {
		status.LastPassAt = h.LastPassAt.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	if code != http.StatusOK {
		w.WriteHeader(code)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates a metrics and health server over gatherer.
func NewServer(addr string, gatherer prometheus.Gatherer, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", health)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
