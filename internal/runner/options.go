package runner

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/torosent/httpstorm/internal/config"
	"github.com/torosent/httpstorm/internal/metrics"
)

// Issuer performs a single request attempt.
type Issuer interface {
	Issue(ctx context.Context) metrics.Outcome
}

// IssuerFunc adapts a function to the Issuer interface.
type IssuerFunc func(ctx context.Context) metrics.Outcome

func (f IssuerFunc) Issue(ctx context.Context) metrics.Outcome { return f(ctx) }

// Recorder accumulates outcomes and exposes snapshots of them.
type Recorder interface {
	Record(o metrics.Outcome)
	Snapshot() metrics.Snapshot
}

// Mode selects the dispatch model.
type Mode string

const (
	ModeWorkers Mode = "workers"
	ModeTasks   Mode = "tasks"
)

// ArrivalModel selects how requests are paced when a rate is set.
type ArrivalModel string

const (
	// ArrivalModelUniform shares one token bucket across all issuers.
	ArrivalModelUniform ArrivalModel = "uniform"
	// ArrivalModelInterval sleeps a fixed concurrency/RPS interval per issuer.
	ArrivalModelInterval ArrivalModel = "interval"
	// ArrivalModelPoisson draws exponential gaps per issuer.
	ArrivalModelPoisson ArrivalModel = "poisson"
)

const (
	DefaultTaskBuffer    = 20
	DefaultGracePeriod   = 5 * time.Second
	DefaultWatchInterval = 100 * time.Millisecond
	progressEvery        = 100
)

// Options configure the Runner.
type Options struct {
	Concurrency   int           // workers, or the capacity gate size in task mode
	TotalRequests int           // request ceiling (0 means unlimited)
	Duration      time.Duration // time limit (0 means none; ignored when TotalRequests > 0)
	RatePerSecond int           // aggregate target rate (0 means unbounded)
	Mode          Mode
	TaskBuffer    int // in-flight tasks per capacity slot in task mode
	ArrivalModel  ArrivalModel
	GracePeriod   time.Duration // how long to wait for in-flight work after a stop
	WatchInterval time.Duration // how often the stop condition is evaluated
	Issuer        Issuer        // required
	Recorder      Recorder      // required
	Logger        *zap.Logger
	RandomSeed    int64

	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
	PoissonSampler func() float64              // optional injection for tests
}

// OptionsFromConfig maps a validated config onto runner options.
func OptionsFromConfig(cfg *config.Config) Options {
	mode := ModeWorkers
	if cfg.Async() {
		mode = ModeTasks
	}
	return Options{
		Concurrency:   cfg.Concurrency,
		TotalRequests: cfg.Total,
		Duration:      cfg.Duration,
		RatePerSecond: cfg.Rate,
		Mode:          mode,
		TaskBuffer:    cfg.TaskBuffer,
		ArrivalModel:  ArrivalModel(cfg.Arrival.Model),
		GracePeriod:   cfg.GracefulShutdown,
		RandomSeed:    cfg.Seed,
	}
}

func (o *Options) normalize() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.TotalRequests < 0 {
		o.TotalRequests = 0
	}
	if o.TotalRequests > 0 {
		o.Duration = 0
	}
	if o.Duration < 0 {
		o.Duration = 0
	}
	if o.RatePerSecond < 0 {
		o.RatePerSecond = 0
	}
	if o.Mode == "" {
		o.Mode = ModeWorkers
	}
	if o.TaskBuffer <= 0 {
		o.TaskBuffer = DefaultTaskBuffer
	}
	if o.ArrivalModel == "" {
		o.ArrivalModel = ArrivalModelUniform
	}
	if o.GracePeriod <= 0 {
		o.GracePeriod = DefaultGracePeriod
	}
	if o.WatchInterval <= 0 {
		o.WatchInterval = DefaultWatchInterval
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.RandomSeed == 0 {
		o.RandomSeed = time.Now().UnixNano()
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return rate.NewLimiter(rate.Inf, 0)
			}
			// Burst of one keeps the aggregate spacing even.
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}
