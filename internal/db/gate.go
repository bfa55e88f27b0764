package db

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"
)

var ErrPoolTimeout = errors.New("timed out waiting for a database connection")

// Gate bounds concurrent database work to the pool size so requests queue
// here, with a deadline, instead of inside database/sql.
type Gate struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

func NewGate(size int, timeout time.Duration) *Gate {
	if size < 1 {
		size = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(size)), timeout: timeout}
}

// Acquire waits up to the gate timeout for a slot. The returned func
// releases it.
func (g *Gate) Acquire(ctx context.Context) (func(), error) {
	waitCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if err := g.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, ErrPoolTimeout
	}
	return func() { g.sem.Release(1) }, nil
}
