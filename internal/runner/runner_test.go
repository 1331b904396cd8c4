package runner_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/httpstorm/internal/metrics"
	"github.com/torosent/httpstorm/internal/runner"
)

// fakeIssuer simulates a request with fixed latency.
type fakeIssuer struct {
	latency  time.Duration
	status   int
	calls    int64
	inFlight int64
	peak     int64
}

func (f *fakeIssuer) Issue(ctx context.Context) metrics.Outcome {
	atomic.AddInt64(&f.calls, 1)
	cur := atomic.AddInt64(&f.inFlight, 1)
	for {
		peak := atomic.LoadInt64(&f.peak)
		if cur <= peak || atomic.CompareAndSwapInt64(&f.peak, peak, cur) {
			break
		}
	}
	defer atomic.AddInt64(&f.inFlight, -1)

	if f.latency > 0 {
		time.Sleep(f.latency)
	}
	status := f.status
	if status == 0 {
		status = 200
	}
	return metrics.Completed(status, f.latency, 10, 0)
}

// blockingIssuer never returns until released.
type blockingIssuer struct {
	release chan struct{}
}

func (b *blockingIssuer) Issue(ctx context.Context) metrics.Outcome {
	<-b.release
	return metrics.TimedOut()
}

func modes() []runner.Mode {
	return []runner.Mode{runner.ModeWorkers, runner.ModeTasks}
}

// TestRunnerCeilingIsExact ensures a request ceiling is a hard cap in both modes.
func TestRunnerCeilingIsExact(t *testing.T) {
	for _, mode := range modes() {
		t.Run(string(mode), func(t *testing.T) {
			issuer := &fakeIssuer{latency: time.Millisecond}
			collector := metrics.NewCollector()
			r := runner.New(runner.Options{
				Concurrency:   10,
				TotalRequests: 100,
				Mode:          mode,
				Issuer:        issuer,
				Recorder:      collector,
			})
			res := r.Run(context.Background())

			if res.Total != 100 {
				t.Fatalf("Result.Total = %d, want 100", res.Total)
			}
			if got := atomic.LoadInt64(&issuer.calls); got != 100 {
				t.Fatalf("issuer called %d times, want 100", got)
			}
			snap := collector.Snapshot()
			if snap.Total != 100 {
				t.Fatalf("snapshot total = %d, want 100", snap.Total)
			}
			if snap.Successes+snap.Failures != snap.Total {
				t.Errorf("partition broken: %d + %d != %d", snap.Successes, snap.Failures, snap.Total)
			}
			if res.StopReason != runner.StopCeiling {
				t.Errorf("StopReason = %q, want %q", res.StopReason, runner.StopCeiling)
			}
			if res.Abandoned != 0 {
				t.Errorf("Abandoned = %d, want 0", res.Abandoned)
			}
		})
	}
}

// TestRunnerCeilingIgnoresDuration ensures duration is ignored once a ceiling is set.
func TestRunnerCeilingIgnoresDuration(t *testing.T) {
	issuer := &fakeIssuer{latency: 5 * time.Millisecond}
	r := runner.New(runner.Options{
		Concurrency:   2,
		TotalRequests: 30,
		Duration:      10 * time.Millisecond,
		Issuer:        issuer,
		Recorder:      metrics.NewCollector(),
	})
	res := r.Run(context.Background())
	if res.Total != 30 {
		t.Fatalf("Result.Total = %d, want 30", res.Total)
	}
}

// TestRunnerHonorsDuration checks elapsed time lands between the limit and
// the limit plus one grace period.
func TestRunnerHonorsDuration(t *testing.T) {
	const limit = 2 * time.Second
	const grace = time.Second
	for _, mode := range modes() {
		t.Run(string(mode), func(t *testing.T) {
			issuer := &fakeIssuer{latency: 5 * time.Millisecond}
			r := runner.New(runner.Options{
				Concurrency: 5,
				Duration:    limit,
				GracePeriod: grace,
				Mode:        mode,
				Issuer:      issuer,
				Recorder:    metrics.NewCollector(),
			})
			res := r.Run(context.Background())

			if res.Duration < limit || res.Duration > limit+grace {
				t.Fatalf("elapsed %s outside [%s, %s]", res.Duration, limit, limit+grace)
			}
			if res.StopReason != runner.StopDuration {
				t.Errorf("StopReason = %q, want %q", res.StopReason, runner.StopDuration)
			}
			if res.Total <= 0 {
				t.Fatal("expected some requests executed")
			}
			if res.Total != atomic.LoadInt64(&issuer.calls) {
				t.Errorf("Total %d != calls %d", res.Total, issuer.calls)
			}
		})
	}
}

// TestRunnerStopsOnCancel ensures operator cancellation ends an unlimited run.
func TestRunnerStopsOnCancel(t *testing.T) {
	for _, mode := range modes() {
		t.Run(string(mode), func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			r := runner.New(runner.Options{
				Concurrency: 4,
				Mode:        mode,
				Issuer:      &fakeIssuer{latency: time.Millisecond},
				Recorder:    metrics.NewCollector(),
			})
			start := time.Now()
			res := r.Run(ctx)
			if elapsed := time.Since(start); elapsed > time.Second {
				t.Fatalf("run took %s after cancellation", elapsed)
			}
			if res.StopReason != runner.StopInterrupted {
				t.Errorf("StopReason = %q, want %q", res.StopReason, runner.StopInterrupted)
			}
		})
	}
}

// TestRunnerGovernorStop ensures an external Stop ends the run.
func TestRunnerGovernorStop(t *testing.T) {
	r := runner.New(runner.Options{
		Concurrency: 2,
		Issuer:      &fakeIssuer{latency: time.Millisecond},
		Recorder:    metrics.NewCollector(),
	})
	time.AfterFunc(50*time.Millisecond, func() { r.Governor().Stop(runner.StopInterrupted) })
	res := r.Run(context.Background())
	if res.StopReason != runner.StopInterrupted {
		t.Errorf("StopReason = %q", res.StopReason)
	}
}

// TestRunnerAbandonsStuckWorkers ensures the grace period bounds the join.
func TestRunnerAbandonsStuckWorkers(t *testing.T) {
	issuer := &blockingIssuer{release: make(chan struct{})}
	t.Cleanup(func() { close(issuer.release) })

	r := runner.New(runner.Options{
		Concurrency: 3,
		Duration:    50 * time.Millisecond,
		GracePeriod: 50 * time.Millisecond,
		Issuer:      issuer,
		Recorder:    metrics.NewCollector(),
	})
	start := time.Now()
	res := r.Run(context.Background())

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("run took %s despite grace period", elapsed)
	}
	if res.Abandoned != 3 {
		t.Errorf("Abandoned = %d, want 3", res.Abandoned)
	}
}

// TestRateLimiterCapsThroughput ensures the shared limiter restricts RPS.
func TestRateLimiterCapsThroughput(t *testing.T) {
	issuer := &fakeIssuer{}
	rateLimit := 100
	duration := 500 * time.Millisecond
	r := runner.New(runner.Options{
		Concurrency:   20,
		Duration:      duration,
		RatePerSecond: rateLimit,
		Issuer:        issuer,
		Recorder:      metrics.NewCollector(),
		LimiterFactory: func(rps int) *rate.Limiter {
			return rate.NewLimiter(rate.Limit(rps), 1)
		},
	})
	res := r.Run(context.Background())
	maxExpected := int64(float64(rateLimit)*duration.Seconds()*1.2) + 1
	if res.Total > maxExpected {
		t.Fatalf("rate limiter exceeded: total=%d max=%d", res.Total, maxExpected)
	}
	if res.Total < 20 {
		t.Fatalf("rate limiter too strict: total=%d", res.Total)
	}
}

// TestIntervalArrivalPacesEachWorker checks the per-worker N/RPS sleep.
func TestIntervalArrivalPacesEachWorker(t *testing.T) {
	issuer := &fakeIssuer{}
	r := runner.New(runner.Options{
		Concurrency:   2,
		RatePerSecond: 20, // each worker waits 100ms
		Duration:      550 * time.Millisecond,
		ArrivalModel:  runner.ArrivalModelInterval,
		Issuer:        issuer,
		Recorder:      metrics.NewCollector(),
	})
	res := r.Run(context.Background())
	if res.Total < 6 || res.Total > 12 {
		t.Fatalf("total = %d, want about 10", res.Total)
	}
}

// TestTaskModeRespectsCapacityGate ensures at most Concurrency tasks issue at once.
func TestTaskModeRespectsCapacityGate(t *testing.T) {
	issuer := &fakeIssuer{latency: 2 * time.Millisecond}
	r := runner.New(runner.Options{
		Concurrency:   3,
		TotalRequests: 90,
		TaskBuffer:    5,
		Mode:          runner.ModeTasks,
		Issuer:        issuer,
		Recorder:      metrics.NewCollector(),
	})
	res := r.Run(context.Background())
	if res.Total != 90 {
		t.Fatalf("Total = %d, want 90", res.Total)
	}
	if peak := atomic.LoadInt64(&issuer.peak); peak > 3 {
		t.Fatalf("peak in-flight = %d, want <= 3", peak)
	}
}

// TestWorkerModeUsesAllWorkers ensures every worker issues concurrently.
func TestWorkerModeUsesAllWorkers(t *testing.T) {
	issuer := &fakeIssuer{latency: 5 * time.Millisecond}
	r := runner.New(runner.Options{
		Concurrency:   4,
		TotalRequests: 40,
		Issuer:        issuer,
		Recorder:      metrics.NewCollector(),
	})
	r.Run(context.Background())
	if peak := atomic.LoadInt64(&issuer.peak); peak < 2 || peak > 4 {
		t.Fatalf("peak in-flight = %d, want between 2 and 4", peak)
	}
}

// TestRecorderSeesFailures ensures outcomes flow to the recorder unchanged.
func TestRecorderSeesFailures(t *testing.T) {
	collector := metrics.NewCollector()
	var mu sync.Mutex
	n := 0
	issuer := runner.IssuerFunc(func(context.Context) metrics.Outcome {
		mu.Lock()
		defer mu.Unlock()
		n++
		if n%2 == 0 {
			return metrics.Failed("connection_refused")
		}
		return metrics.TimedOut()
	})
	r := runner.New(runner.Options{
		Concurrency:   3,
		TotalRequests: 20,
		Issuer:        issuer,
		Recorder:      collector,
	})
	r.Run(context.Background())

	snap := collector.Snapshot()
	if snap.Total != 20 || snap.Failures != 20 || snap.Successes != 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.Timeouts != 10 || snap.Errors["connection_refused"] != 10 {
		t.Errorf("timeouts=%d refused=%d, want 10/10", snap.Timeouts, snap.Errors["connection_refused"])
	}
}
