package service

import (
	"context"
	"sync"
)

// PassGuard decides whether an ingestion pass may start. release must be
// called when the pass ends; it is nil when ok is false.
type PassGuard interface {
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}

// NoGuard lets every pass run, so concurrent passes are fully independent
// and may race on the same title.
type NoGuard struct{}

func (NoGuard) TryAcquire(context.Context) (func(), bool, error) {
	return func() {}, true, nil
}

// LocalGuard allows at most one pass at a time within this process.
type LocalGuard struct {
	mu sync.Mutex
}

func (g *LocalGuard) TryAcquire(context.Context) (func(), bool, error) {
	if !g.mu.TryLock() {
		return nil, false, nil
	}
	return g.mu.Unlock, true, nil
}
