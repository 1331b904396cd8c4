// Package metrics aggregates request outcomes for a load run.
//
// Every issued request produces exactly one [Outcome]. Workers hand outcomes
// to a shared [Collector], which applies all counter updates for a record
// under a single lock:
//
//	collector := metrics.NewCollector()
//	collector.Start()
//
//	collector.Record(metrics.Completed(200, 12*time.Millisecond, 512, 0))
//	collector.Record(metrics.TimedOut())
//	collector.Record(metrics.Failed("connection_refused"))
//
//	snap := collector.Snapshot()
//
// A [Snapshot] is a value copy. Readers never observe a record half applied,
// so Successes+Failures always equals Total.
//
// Latency is kept in a bounded HDR histogram, so memory stays flat for runs
// of any length while still answering percentile queries.
package metrics
