package runner

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/torosent/httpstorm/internal/metrics"
)

// StopReason explains why a run ended.
type StopReason string

const (
	StopNone        StopReason = ""
	StopCeiling     StopReason = "request ceiling reached"
	StopDuration    StopReason = "duration elapsed"
	StopInterrupted StopReason = "interrupted"
)

// Governor holds the run limits and the shared stop state.
type Governor struct {
	concurrency int
	rate        int
	ceiling     int64
	duration    time.Duration

	reserved atomic.Int64
	stopped  atomic.Bool
	done     chan struct{}
	once     sync.Once
	reason   atomic.Value // StopReason
}

// NewGovernor returns a governor for the given limits. A nonzero ceiling
// disables the duration limit.
func NewGovernor(concurrency, rps, ceiling int, duration time.Duration) *Governor {
	if concurrency < 1 {
		concurrency = 1
	}
	if ceiling > 0 {
		duration = 0
	}
	return &Governor{
		concurrency: concurrency,
		rate:        rps,
		ceiling:     int64(ceiling),
		duration:    duration,
		done:        make(chan struct{}),
	}
}

// PacingInterval is the per-issuer gap N/RPS, or zero when unpaced.
func (g *Governor) PacingInterval() time.Duration {
	if g.rate <= 0 {
		return 0
	}
	return time.Duration(float64(g.concurrency) / float64(g.rate) * float64(time.Second))
}

// ShouldStop reports whether the run must end given the latest snapshot and
// the time since start.
func (g *Governor) ShouldStop(snap metrics.Snapshot, elapsed time.Duration) bool {
	if g.stopped.Load() {
		return true
	}
	if g.ceiling > 0 {
		return snap.Total >= g.ceiling
	}
	return g.duration > 0 && elapsed >= g.duration
}

// limitReason is the reason used when a configured limit ends the run.
func (g *Governor) limitReason() StopReason {
	if g.ceiling > 0 {
		return StopCeiling
	}
	return StopDuration
}

// Reserve claims one attempt slot. It returns false once the run is stopped
// or every slot under the ceiling has been claimed.
func (g *Governor) Reserve() bool {
	if g.stopped.Load() {
		return false
	}
	if g.ceiling == 0 {
		g.reserved.Add(1)
		return true
	}
	for {
		n := g.reserved.Load()
		if n >= g.ceiling {
			return false
		}
		if g.reserved.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Reserved reports how many slots have been claimed.
func (g *Governor) Reserved() int64 {
	return g.reserved.Load()
}

// Exhausted reports whether all ceiling slots are claimed.
func (g *Governor) Exhausted() bool {
	return g.ceiling > 0 && g.reserved.Load() >= g.ceiling
}

// Stop ends the run. Only the first reason is kept.
func (g *Governor) Stop(reason StopReason) {
	g.once.Do(func() {
		g.reason.Store(reason)
		g.stopped.Store(true)
		close(g.done)
	})
}

// Stopped reports whether Stop was called.
func (g *Governor) Stopped() bool {
	return g.stopped.Load()
}

// Done is closed when the run is stopped.
func (g *Governor) Done() <-chan struct{} {
	return g.done
}

// Reason returns the first reason passed to Stop.
func (g *Governor) Reason() StopReason {
	if r, ok := g.reason.Load().(StopReason); ok {
		return r
	}
	return StopNone
}
