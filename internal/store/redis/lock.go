// Package redis provides a Redis-backed lock that keeps ingestion passes
// from overlapping across processes.
package redis

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

const (
	defaultLockKey = "lock:ingest"
	defaultLockTTL = 10 * time.Minute
)

// releaseScript deletes the key only if it still holds our token, so a pass
// that outlived its TTL cannot release a lock taken by another pass.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Config configures the Redis connection and lock.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
	Key      string        // default "lock:ingest"
	TTL      time.Duration // upper bound on a pass holding the lock, default 10m
}

// PassLock is a SET NX PX lock with a per-acquisition token.
type PassLock struct {
	client *goredis.Client
	key    string
	ttl    time.Duration
}

// Client returns the underlying Redis client for health checks.
func (l *PassLock) Client() *goredis.Client { return l.client }

// New connects to Redis and pings the server.
func New(cfg Config) (*PassLock, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return NewWithClient(client, cfg.Key, cfg.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *goredis.Client, key string, ttl time.Duration) *PassLock {
	if key == "" {
		key = defaultLockKey
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &PassLock{client: client, key: key, ttl: ttl}
}

// TryAcquire takes the lock without waiting. ok is false when another pass
// holds it. release must be called once the pass is over.
func (l *PassLock) TryAcquire(ctx context.Context) (release func(), ok bool, err error) {
	token := uuid.NewString()
	ok, err = l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx %s: %w", l.key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release = func() {
		// The pass context may be gone by now.
		rctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{l.key}, token).Err(); err != nil {
			slog.Warn("failed to release ingestion lock", "key", l.key, "error", err)
		}
	}
	return release, true, nil
}

// Close closes the Redis client.
func (l *PassLock) Close() error {
	return l.client.Close()
}
