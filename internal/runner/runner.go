package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Result captures execution summary.
type Result struct {
	Total      int64
	Abandoned  int64 // goroutines still running when the grace period expired
	StopReason StopReason
	Duration   time.Duration
}

// Runner coordinates concurrent execution with rate limiting.
type Runner struct {
	opt      Options
	governor *Governor
	limiter  *rate.Limiter
	active   atomic.Int64
	issued   atomic.Int64
}

func New(opt Options) *Runner {
	opt.normalize()
	return &Runner{
		opt:      opt,
		governor: NewGovernor(opt.Concurrency, opt.RatePerSecond, opt.TotalRequests, opt.Duration),
		limiter:  opt.LimiterFactory(opt.RatePerSecond),
	}
}

// Governor exposes the stop state, e.g. for a signal handler.
func (r *Runner) Governor() *Governor {
	return r.governor
}

// Run dispatches requests until a limit is reached or ctx is cancelled. It
// blocks until in-flight requests finish or the grace period expires.
func (r *Runner) Run(ctx context.Context) Result {
	start := time.Now()
	log := r.opt.Logger

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-r.governor.Done():
		case <-runCtx.Done():
		}
		cancel()
	}()

	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		r.watch(ctx, start)
	}()

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		if r.opt.Mode == ModeTasks {
			r.runTasks(runCtx)
		} else {
			r.runWorkers(runCtx)
		}
	}()

	var abandoned int64
	select {
	case <-finished:
	case <-r.governor.Done():
		if r.governor.Reason() == StopCeiling {
			<-finished
			break
		}
		grace := time.NewTimer(r.opt.GracePeriod)
		select {
		case <-finished:
		case <-grace.C:
			abandoned = r.active.Load()
			log.Warn("grace period expired; abandoning in-flight requests",
				zap.Int64("abandoned", abandoned),
				zap.Duration("grace", r.opt.GracePeriod))
		}
		grace.Stop()
	}

	if r.governor.Exhausted() {
		r.governor.Stop(StopCeiling)
	} else {
		r.governor.Stop(StopInterrupted)
	}
	<-watchDone

	return Result{
		Total:      r.issued.Load(),
		Abandoned:  abandoned,
		StopReason: r.governor.Reason(),
		Duration:   time.Since(start),
	}
}

// watch evaluates the stop condition until the governor stops.
func (r *Runner) watch(ctx context.Context, start time.Time) {
	var deadline <-chan time.Time
	if r.opt.Duration > 0 {
		timer := time.NewTimer(r.opt.Duration)
		defer timer.Stop()
		deadline = timer.C
	}
	ticker := time.NewTicker(r.opt.WatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.governor.Done():
			return
		case <-ctx.Done():
			r.governor.Stop(StopInterrupted)
			return
		case <-deadline:
			r.governor.Stop(StopDuration)
			return
		case <-ticker.C:
			if r.governor.ShouldStop(r.opt.Recorder.Snapshot(), time.Since(start)) {
				r.governor.Stop(r.governor.limitReason())
				return
			}
		}
	}
}

// issue performs one reserved attempt and records it.
func (r *Runner) issue(ctx context.Context) {
	outcome := r.opt.Issuer.Issue(ctx)
	r.opt.Recorder.Record(outcome)
	r.issued.Add(1)
}

// runWorkers starts one goroutine per concurrency unit. Each loops: check
// stop, pace, reserve a slot, issue, record.
func (r *Runner) runWorkers(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(r.opt.Concurrency)
	for i := 0; i < r.opt.Concurrency; i++ {
		arrival := r.newArrivalController(i, r.opt.Concurrency)
		go func(id int) {
			defer wg.Done()
			r.active.Add(1)
			defer r.active.Add(-1)
			r.worker(ctx, id, arrival)
		}(i)
	}
	wg.Wait()
}

func (r *Runner) worker(ctx context.Context, id int, arrival arrivalController) {
	var count int64
	for !r.governor.Stopped() {
		if arrival != nil {
			if err := arrival.Wait(ctx); err != nil {
				return
			}
		}
		if !r.governor.Reserve() {
			return
		}
		r.issue(ctx)
		count++
		if count%progressEvery == 0 {
			r.opt.Logger.Debug("worker progress", zap.Int("worker", id), zap.Int64("requests", count))
		}
	}
}

// runTasks keeps up to TaskBuffer x Concurrency tasks in flight from a single
// dispatcher. A weighted semaphore of size Concurrency gates how many of them
// wait on the network at once. The dispatcher wakes on task completion rather
// than polling.
func (r *Runner) runTasks(ctx context.Context) {
	gate := newCapacityGate(r.opt.Concurrency)
	buffer := r.opt.Concurrency * r.opt.TaskBuffer
	completed := make(chan struct{}, buffer)
	arrival := r.newArrivalController(0, 1)

	var wg sync.WaitGroup
	inFlight := 0

dispatch:
	for !r.governor.Stopped() {
		for inFlight >= buffer {
			select {
			case <-completed:
				inFlight--
			case <-ctx.Done():
				break dispatch
			}
		}
		// Reap finished tasks without blocking.
	reap:
		for {
			select {
			case <-completed:
				inFlight--
			default:
				break reap
			}
		}

		if arrival != nil {
			if err := arrival.Wait(ctx); err != nil {
				break
			}
		}
		if !r.governor.Reserve() {
			break
		}

		inFlight++
		wg.Add(1)
		r.active.Add(1)
		go func() {
			defer wg.Done()
			defer r.active.Add(-1)
			defer func() { completed <- struct{}{} }()
			r.task(ctx, gate)
		}()
	}
	wg.Wait()
}

func (r *Runner) task(ctx context.Context, gate *capacityGate) {
	// Queued tasks are dropped once the run stops.
	if err := gate.acquire(ctx); err != nil {
		return
	}
	defer gate.release()
	r.issue(ctx)
}
