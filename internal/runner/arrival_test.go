package runner

import (
	"context"
	"testing"
	"time"
)

func TestPoissonArrivalNextDelayUsesSampler(t *testing.T) {
	ctrl := &poissonArrival{rate: 200, sample: func() float64 { return 1 }}
	delay := ctrl.nextDelay()
	expected := time.Second / 200
	if delay != expected {
		t.Fatalf("expected delay %s, got %s", expected, delay)
	}
}

func TestPoissonArrivalWaitCancelledContext(t *testing.T) {
	ctrl := &poissonArrival{rate: 0.000001, sample: func() float64 { return 1 }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ctrl.Wait(ctx); err == nil {
		t.Fatalf("expected context error when cancelled")
	}
}

func TestIntervalArrivalWaitsFixedGap(t *testing.T) {
	ctrl := &intervalArrival{interval: 20 * time.Millisecond}
	start := time.Now()
	if err := ctrl.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("waited %s, want >= 20ms", elapsed)
	}
}

func TestNewArrivalController(t *testing.T) {
	tests := []struct {
		name  string
		model ArrivalModel
		rps   int
		check func(*testing.T, arrivalController)
	}{
		{
			name:  "unpaced",
			model: ArrivalModelUniform,
			rps:   0,
			check: func(t *testing.T, c arrivalController) {
				if c != nil {
					t.Errorf("expected nil controller without a rate, got %T", c)
				}
			},
		},
		{
			name:  "interval divides rate across lanes",
			model: ArrivalModelInterval,
			rps:   100,
			check: func(t *testing.T, c arrivalController) {
				ctrl, ok := c.(*intervalArrival)
				if !ok {
					t.Fatalf("got %T, want *intervalArrival", c)
				}
				// 10 lanes at 100 RPS: each lane waits 10/100 s.
				if ctrl.interval != 100*time.Millisecond {
					t.Errorf("interval = %s, want 100ms", ctrl.interval)
				}
			},
		},
		{
			name:  "poisson per-lane rate",
			model: ArrivalModelPoisson,
			rps:   100,
			check: func(t *testing.T, c arrivalController) {
				ctrl, ok := c.(*poissonArrival)
				if !ok {
					t.Fatalf("got %T, want *poissonArrival", c)
				}
				if ctrl.rate != 10 {
					t.Errorf("rate = %v, want 10", ctrl.rate)
				}
			},
		},
		{
			name:  "uniform shares the limiter",
			model: ArrivalModelUniform,
			rps:   100,
			check: func(t *testing.T, c arrivalController) {
				ctrl, ok := c.(*uniformArrival)
				if !ok {
					t.Fatalf("got %T, want *uniformArrival", c)
				}
				if ctrl.limiter == nil {
					t.Error("limiter not set")
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(Options{Concurrency: 10, RatePerSecond: tt.rps, ArrivalModel: tt.model})
			tt.check(t, r.newArrivalController(0, 10))
		})
	}
}

func TestIntervalArrivalFollowsGovernor(t *testing.T) {
	r := New(Options{Concurrency: 10, RatePerSecond: 100, ArrivalModel: ArrivalModelInterval})

	worker := r.newArrivalController(3, 10).(*intervalArrival)
	if worker.interval != r.Governor().PacingInterval() {
		t.Errorf("worker interval = %s, want governor pacing %s", worker.interval, r.Governor().PacingInterval())
	}

	// The task dispatcher is a single lane carrying the whole rate.
	dispatcher := r.newArrivalController(0, 1).(*intervalArrival)
	if dispatcher.interval != 10*time.Millisecond {
		t.Errorf("dispatcher interval = %s, want 10ms", dispatcher.interval)
	}
}

func TestUniformArrivalControllersShareLimiter(t *testing.T) {
	r := New(Options{Concurrency: 4, RatePerSecond: 50})
	a := r.newArrivalController(0, 4).(*uniformArrival)
	b := r.newArrivalController(1, 4).(*uniformArrival)
	if a.limiter != b.limiter {
		t.Error("uniform controllers should share one limiter")
	}
}

func TestCapacityGate(t *testing.T) {
	gate := newCapacityGate(2)
	ctx := context.Background()
	if err := gate.acquire(ctx); err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if err := gate.acquire(ctx); err != nil {
		t.Fatalf("second acquire: %v", err)
	}

	full, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	if err := gate.acquire(full); err == nil {
		t.Fatal("gate admitted more than its size")
	}

	cancelled, stop := context.WithCancel(ctx)
	stop()
	if err := gate.acquire(cancelled); err == nil {
		t.Fatal("acquire with a cancelled context should fail on a full gate")
	}

	gate.release()
	freed, cancelFreed := context.WithTimeout(ctx, time.Second)
	defer cancelFreed()
	if err := gate.acquire(freed); err != nil {
		t.Fatalf("released slot not available: %v", err)
	}
}
