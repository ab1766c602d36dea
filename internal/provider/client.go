// Package provider fetches the third-party plan feed over HTTP and maps it
// into model.ProviderEvent values.
package provider

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"event-catalog/internal/model"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultMaxFailures = 5
	defaultCooldown    = 30 * time.Second
	maxFeedBytes       = 32 << 20
)

// ErrFetch is the single failure class of Fetch: unreachable provider,
// non-2xx status, undecodable body or an open circuit breaker.
var ErrFetch = errors.New("failed to fetch events from provider")

// Config configures the HTTP provider client.
type Config struct {
	BaseURL string        // e.g. "http://provider.local:9000"
	APIPath string        // e.g. "/api/events"
	Timeout time.Duration // per-request timeout, default 10s

	// Circuit breaker; MaxFailures < 0 disables it.
	MaxFailures int
	Cooldown    time.Duration
}

// Client is a model.ProviderClient backed by one HTTP GET per fetch.
type Client struct {
	url     string
	client  *http.Client
	breaker *CircuitBreaker
}

var _ model.ProviderClient = (*Client)(nil)

// NewClient validates the feed URL and builds a client.
func NewClient(cfg Config) (*Client, error) {
	raw := cfg.BaseURL + cfg.APIPath
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("provider: invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("provider: unsupported url scheme in %q", raw)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}
	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}

	breaker := NewCircuitBreaker(maxFailures, cooldown)
	breaker.OnStateChange = func(from, to BreakerState) {
		slog.Warn("provider circuit breaker state change", "from", from.String(), "to", to.String())
	}

	return &Client{
		url:     u.String(),
		client:  &http.Client{Timeout: timeout},
		breaker: breaker,
	}, nil
}

// Breaker exposes the circuit breaker for health reporting.
func (c *Client) Breaker() *CircuitBreaker { return c.breaker }

// Fetch requests the feed once and maps every plan into a ProviderEvent.
// Plans with bad dates or no valid price are dropped with a warning.
func (c *Client) Fetch(ctx context.Context) ([]model.ProviderEvent, error) {
	var doc planList
	err := c.breaker.Do(func() error {
		return c.get(ctx, &doc)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}

	events, dropped := doc.Events()
	for _, pe := range dropped {
		slog.WarnContext(ctx, "failed to map provider plan",
			"base_plan_id", pe.BasePlanID,
			"plan_id", pe.PlanID,
			"title", pe.Title,
			"error", pe.Err,
		)
	}
	return events, nil
}

func (c *Client) get(ctx context.Context, doc *planList) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := xml.NewDecoder(io.LimitReader(resp.Body, maxFeedBytes)).Decode(doc); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}
