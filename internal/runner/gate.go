package runner

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// capacityGate bounds how many tasks may be awaiting network I/O at once.
type capacityGate struct {
	sem *semaphore.Weighted
}

func newCapacityGate(size int) *capacityGate {
	if size < 1 {
		size = 1
	}
	return &capacityGate{sem: semaphore.NewWeighted(int64(size))}
}

func (g *capacityGate) acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

func (g *capacityGate) release() {
	g.sem.Release(1)
}
