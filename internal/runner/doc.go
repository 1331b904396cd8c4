// Package runner provides the dispatch engine of httpstorm.
//
// The runner package drives an [Issuer] under operator limits:
//   - Concurrency (workers, or the capacity gate in task mode)
//   - Rate limiting (aggregate requests per second)
//   - Duration-based and count-based termination
//   - Arrival models (shared token bucket, fixed interval, Poisson)
//
// # Basic Usage
//
//	opts := runner.OptionsFromConfig(cfg)
//	opts.Issuer = issuer
//	opts.Recorder = collector
//	r := runner.New(opts)
//	result := r.Run(ctx)
//
// # Dispatch Modes
//
// [ModeWorkers] starts one goroutine per concurrency unit; each loops over
// stop check, pacing, slot reservation, issue and record. [ModeTasks] runs a
// single dispatcher that keeps up to TaskBuffer x Concurrency tasks in flight
// and admits at most Concurrency of them to the network at a time.
//
// # Stopping
//
// The [Governor] owns the stop flag. A request ceiling is a hard cap: slots
// are reserved before each attempt, so a ceiling run issues exactly that many
// requests. Once stopped, in-flight requests finish on their own timeout; the
// runner waits up to GracePeriod for them and reports the rest as abandoned.
//
// # Middleware
//
//   - [WithLogging]: log failed attempts
package runner
