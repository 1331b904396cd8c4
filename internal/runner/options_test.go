package runner

import (
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/httpstorm/internal/config"
)

func TestOptionsNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    Options
		validate func(*testing.T, Options)
	}{
		{
			name:  "defaults",
			input: Options{},
			validate: func(t *testing.T, o Options) {
				if o.Concurrency != 1 {
					t.Errorf("Concurrency = %d, want 1", o.Concurrency)
				}
				if o.Mode != ModeWorkers {
					t.Errorf("Mode = %q, want %q", o.Mode, ModeWorkers)
				}
				if o.ArrivalModel != ArrivalModelUniform {
					t.Errorf("ArrivalModel = %q, want %q", o.ArrivalModel, ArrivalModelUniform)
				}
				if o.TaskBuffer != DefaultTaskBuffer {
					t.Errorf("TaskBuffer = %d, want %d", o.TaskBuffer, DefaultTaskBuffer)
				}
				if o.GracePeriod != DefaultGracePeriod {
					t.Errorf("GracePeriod = %v", o.GracePeriod)
				}
				if o.RandomSeed == 0 {
					t.Error("RandomSeed should be non-zero")
				}
				if o.LimiterFactory == nil || o.Logger == nil {
					t.Error("LimiterFactory and Logger should be set")
				}
			},
		},
		{
			name: "negative values corrected",
			input: Options{
				Concurrency:   -5,
				TotalRequests: -10,
				RatePerSecond: -1,
				Duration:      -time.Second,
			},
			validate: func(t *testing.T, o Options) {
				if o.Concurrency != 1 {
					t.Errorf("Concurrency = %d, want 1", o.Concurrency)
				}
				if o.TotalRequests != 0 {
					t.Errorf("TotalRequests = %d, want 0", o.TotalRequests)
				}
				if o.RatePerSecond != 0 {
					t.Errorf("RatePerSecond = %d, want 0", o.RatePerSecond)
				}
				if o.Duration != 0 {
					t.Errorf("Duration = %v, want 0", o.Duration)
				}
			},
		},
		{
			name: "ceiling overrides duration",
			input: Options{
				TotalRequests: 100,
				Duration:      10 * time.Second,
			},
			validate: func(t *testing.T, o Options) {
				if o.Duration != 0 {
					t.Errorf("Duration = %v, want 0 when a ceiling is set", o.Duration)
				}
			},
		},
		{
			name: "preserve valid values",
			input: Options{
				Concurrency:   10,
				RatePerSecond: 50,
				Mode:          ModeTasks,
				ArrivalModel:  ArrivalModelPoisson,
				RandomSeed:    12345,
			},
			validate: func(t *testing.T, o Options) {
				if o.Concurrency != 10 || o.RatePerSecond != 50 {
					t.Errorf("Concurrency/RPS = %d/%d", o.Concurrency, o.RatePerSecond)
				}
				if o.Mode != ModeTasks {
					t.Errorf("Mode = %q", o.Mode)
				}
				if o.ArrivalModel != ArrivalModelPoisson {
					t.Errorf("ArrivalModel = %q, want %q", o.ArrivalModel, ArrivalModelPoisson)
				}
				if o.RandomSeed != 12345 {
					t.Errorf("RandomSeed = %d, want 12345", o.RandomSeed)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.input
			opts.normalize()
			tt.validate(t, opts)
		})
	}
}

func TestDefaultLimiterFactory(t *testing.T) {
	opts := Options{}
	opts.normalize()

	unbounded := opts.LimiterFactory(0)
	if unbounded.Limit() != rate.Inf || !unbounded.Allow() {
		t.Error("unbounded limiter should always allow")
	}
	paced := opts.LimiterFactory(10)
	if paced.Burst() != 1 {
		t.Errorf("Burst() = %d, want 1", paced.Burst())
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Concurrency = 7
	cfg.Rate = 70
	cfg.Total = 500
	cfg.Mode = config.ModeTasks
	cfg.TaskBuffer = 4
	cfg.Arrival.Model = config.ArrivalModelInterval
	cfg.GracefulShutdown = 2 * time.Second
	cfg.Seed = 9

	opts := OptionsFromConfig(cfg)
	if opts.Concurrency != 7 || opts.RatePerSecond != 70 || opts.TotalRequests != 500 {
		t.Errorf("limits = %+v", opts)
	}
	if opts.Mode != ModeTasks {
		t.Errorf("Mode = %q, want tasks", opts.Mode)
	}
	if opts.TaskBuffer != 4 {
		t.Errorf("TaskBuffer = %d", opts.TaskBuffer)
	}
	if opts.ArrivalModel != ArrivalModelInterval {
		t.Errorf("ArrivalModel = %q", opts.ArrivalModel)
	}
	if opts.GracePeriod != 2*time.Second || opts.RandomSeed != 9 {
		t.Errorf("GracePeriod/Seed = %v/%d", opts.GracePeriod, opts.RandomSeed)
	}
}
