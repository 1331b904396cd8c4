package runner

import (
	"context"
	"math"
	"math/rand"
	"time"

	"golang.org/x/time/rate"
)

type arrivalController interface {
	Wait(ctx context.Context) error
}

// newArrivalController returns the pacer for one issuing lane. lanes is the
// number of lanes sharing the aggregate rate. Uniform pacing ignores lanes
// and returns the shared limiter.
func (r *Runner) newArrivalController(lane, lanes int) arrivalController {
	if r.opt.RatePerSecond <= 0 {
		return nil
	}
	perLane := float64(r.opt.RatePerSecond) / float64(lanes)

	switch r.opt.ArrivalModel {
	case ArrivalModelInterval:
		interval := r.governor.PacingInterval()
		if lanes != r.opt.Concurrency {
			interval = interval * time.Duration(lanes) / time.Duration(r.opt.Concurrency)
		}
		return &intervalArrival{interval: interval}
	case ArrivalModelPoisson:
		sampler := r.opt.PoissonSampler
		if sampler == nil {
			seeded := rand.New(rand.NewSource(r.opt.RandomSeed + int64(lane)))
			sampler = seeded.ExpFloat64
		}
		return &poissonArrival{rate: perLane, sample: sampler}
	default:
		return &uniformArrival{limiter: r.limiter}
	}
}

// uniformArrival delegates pacing to a shared rate.Limiter.
type uniformArrival struct {
	limiter *rate.Limiter
}

func (u *uniformArrival) Wait(ctx context.Context) error {
	if u == nil || u.limiter == nil {
		return nil
	}
	return u.limiter.Wait(ctx)
}

// intervalArrival sleeps a fixed gap before every request.
type intervalArrival struct {
	interval time.Duration
}

func (i *intervalArrival) Wait(ctx context.Context) error {
	return sleepCtx(ctx, i.interval)
}

// poissonArrival samples exponential inter-arrival times to approximate a
// Poisson process. Each lane owns its sampler.
type poissonArrival struct {
	rate   float64
	sample func() float64
}

func (p *poissonArrival) Wait(ctx context.Context) error {
	return sleepCtx(ctx, p.nextDelay())
}

func (p *poissonArrival) nextDelay() time.Duration {
	if p == nil || p.rate <= 0 || p.sample == nil {
		return 0
	}
	delay := float64(time.Second) * p.sample() / p.rate
	if delay > math.MaxInt64 {
		delay = math.MaxInt64
	}
	return time.Duration(delay)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
