package output

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/torosent/httpstorm/internal/metrics"
)

// DefaultLiveInterval is the period between live statistics blocks.
const DefaultLiveInterval = 5 * time.Second

const liveErrorRows = 5

// RPSPoint is one live tick of the run history.
type RPSPoint struct {
	Timestamp    time.Time `json:"timestamp"`
	Total        int64     `json:"total"`
	CurrentRPS   float64   `json:"current_rps"`
	AverageRPS   float64   `json:"average_rps"`
	P50LatencyMs float64   `json:"p50_latency_ms"`
	P95LatencyMs float64   `json:"p95_latency_ms"`
	P99LatencyMs float64   `json:"p99_latency_ms"`
}

// LiveReporter prints a statistics block at a fixed interval while a run is
// in progress and keeps the per-tick RPS history.
type LiveReporter struct {
	source   metrics.SnapshotSource
	target   string
	interval time.Duration
	writer   io.Writer
	done     chan struct{}
	finished chan struct{}
	active   int32

	mu        sync.Mutex
	lastTotal int64
	history   []RPSPoint
}

// NewLiveReporter creates a reporter that snapshots source every interval.
func NewLiveReporter(source metrics.SnapshotSource, target string, interval time.Duration, writer io.Writer) *LiveReporter {
	if writer == nil {
		writer = io.Discard
	}
	if interval <= 0 {
		interval = DefaultLiveInterval
	}
	return &LiveReporter{
		source:   source,
		target:   target,
		interval: interval,
		writer:   writer,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

// Start begins printing live blocks in a background goroutine.
func (p *LiveReporter) Start() {
	if !atomic.CompareAndSwapInt32(&p.active, 0, 1) {
		return // already running
	}
	go p.run()
}

// Stop halts live updates and waits for the reporting goroutine to exit.
func (p *LiveReporter) Stop() {
	if atomic.CompareAndSwapInt32(&p.active, 1, 0) {
		close(p.done)
		<-p.finished
	}
}

// History returns a copy of the RPS history recorded so far.
func (p *LiveReporter) History() []RPSPoint {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]RPSPoint(nil), p.history...)
}

func (p *LiveReporter) run() {
	defer close(p.finished)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			p.tick(now)
		case <-p.done:
			return
		}
	}
}

// tick records one history point and prints a block. Ticks before the first
// recorded attempt print nothing.
func (p *LiveReporter) tick(now time.Time) {
	snap := p.source.Snapshot()
	if snap.Total == 0 {
		return
	}

	p.mu.Lock()
	current := float64(snap.Total-p.lastTotal) / p.interval.Seconds()
	p.lastTotal = snap.Total
	p.history = append(p.history, RPSPoint{
		Timestamp:    now,
		Total:        snap.Total,
		CurrentRPS:   current,
		AverageRPS:   snap.RequestsPerSec,
		P50LatencyMs: snap.P50LatencyMs,
		P95LatencyMs: snap.P95LatencyMs,
		P99LatencyMs: snap.P99LatencyMs,
	})
	p.mu.Unlock()

	writeLiveBlock(p.writer, now, p.target, snap, current)
}

func writeLiveBlock(w io.Writer, now time.Time, target string, snap metrics.Snapshot, current float64) {
	fmt.Fprintf(w, "\n--- Live Stats [%s] ---\n", now.Format("15:04:05"))
	fmt.Fprintf(w, "Target:            %s\n", target)
	fmt.Fprintf(w, "Total Requests:    %d\n", snap.Total)
	fmt.Fprintf(w, "Successful:        %d (%.1f%%)\n", snap.Successes, snap.SuccessRate)
	fmt.Fprintf(w, "Failed:            %d\n", snap.Failures)
	fmt.Fprintf(w, "Timeouts:          %d\n", snap.Timeouts)
	fmt.Fprintf(w, "Current RPS:       %.1f\n", current)
	fmt.Fprintf(w, "Average RPS:       %.1f\n", snap.RequestsPerSec)
	if snap.LatencySamples > 0 {
		fmt.Fprintf(w, "Avg Response:      %s (min %s, max %s)\n",
			formatMs(snap.MeanLatency), formatMs(snap.MinLatency), formatMs(snap.MaxLatency))
	}
	fmt.Fprintf(w, "Bytes Sent:        %s\n", formatBytes(snap.BytesSent))
	fmt.Fprintf(w, "Bytes Received:    %s\n", formatBytes(snap.BytesReceived))

	if rows := metrics.StatusCodeRows(snap.StatusCodes); len(rows) > 0 {
		fmt.Fprintln(w, "Status Codes:")
		for _, row := range rows {
			fmt.Fprintf(w, "  %s: %d (%.1f%%)\n", row.Key, row.Count, percent(row.Count, snap.Total))
		}
	}
	if rows := metrics.TopCounts(snap.Errors, liveErrorRows); len(rows) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, row := range rows {
			fmt.Fprintf(w, "  %s: %d\n", metrics.FriendlyErrorName(row.Key), row.Count)
		}
	}
}
