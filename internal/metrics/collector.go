package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Collector records request outcomes in a thread-safe manner.
type Collector struct {
	mu            sync.Mutex
	hist          *hdrhistogram.Histogram
	total         int64
	successes     int64
	failures      int64
	timeouts      int64
	bytesSent     int64
	bytesReceived int64
	minLatency    time.Duration
	maxLatency    time.Duration
	sumLatency    time.Duration
	statusCodes   map[string]int64
	errorsByKind  map[string]int64
	start         time.Time
}

// Snapshot is a consistent point-in-time view of a Collector.
type Snapshot struct {
	Total         int64            `json:"total"`
	Successes     int64            `json:"successes"`
	Failures      int64            `json:"failures"`
	Timeouts      int64            `json:"timeouts"`
	StatusCodes   map[string]int64 `json:"status_codes,omitempty"`
	Errors        map[string]int64 `json:"errors,omitempty"`
	BytesSent     int64            `json:"bytes_sent"`
	BytesReceived int64            `json:"bytes_received"`

	LatencySamples int64         `json:"latency_samples"`
	MinLatency     time.Duration `json:"-"`
	MaxLatency     time.Duration `json:"-"`
	MeanLatency    time.Duration `json:"-"`
	P50Latency     time.Duration `json:"-"`
	P90Latency     time.Duration `json:"-"`
	P95Latency     time.Duration `json:"-"`
	P99Latency     time.Duration `json:"-"`

	Start          time.Time     `json:"start"`
	Elapsed        time.Duration `json:"-"`
	RequestsPerSec float64       `json:"requests_per_sec"`
	SuccessRate    float64       `json:"success_rate"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64 `json:"min_latency_ms"`
	MaxLatencyMs  float64 `json:"max_latency_ms"`
	MeanLatencyMs float64 `json:"mean_latency_ms"`
	P50LatencyMs  float64 `json:"p50_latency_ms"`
	P90LatencyMs  float64 `json:"p90_latency_ms"`
	P95LatencyMs  float64 `json:"p95_latency_ms"`
	P99LatencyMs  float64 `json:"p99_latency_ms"`
	ElapsedMs     float64 `json:"elapsed_ms"`
}

func NewCollector() *Collector {
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Collector{
		hist:         h,
		statusCodes:  make(map[string]int64),
		errorsByKind: make(map[string]int64),
		start:        time.Now(),
	}
}

// Start marks the beginning of the measured run.
func (c *Collector) Start() {
	c.mu.Lock()
	c.start = time.Now()
	c.mu.Unlock()
}

// Record applies one outcome. All counters move together under the lock.
func (c *Collector) Record(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	switch o.Kind {
	case OutcomeCompleted:
		if o.Successful() {
			c.successes++
		} else {
			c.failures++
		}
		c.statusCodes[strconv.Itoa(o.StatusCode)]++
		c.bytesReceived += o.BytesReceived
		if o.BytesSent > 0 {
			c.bytesSent += o.BytesSent
		}
		c.recordLatency(o.Latency)
	case OutcomeTimedOut:
		c.failures++
		c.timeouts++
	default:
		c.failures++
		kind := o.ErrorKind
		if kind == "" {
			kind = "unknown"
		}
		c.errorsByKind[kind]++
	}
}

func (c *Collector) recordLatency(latency time.Duration) {
	if latency < 0 {
		latency = 0
	}
	us := latency.Microseconds()
	if us < c.hist.LowestTrackableValue() {
		us = c.hist.LowestTrackableValue()
	}
	if us > c.hist.HighestTrackableValue() {
		us = c.hist.HighestTrackableValue()
	}
	_ = c.hist.RecordValue(us)

	c.sumLatency += latency
	if c.hist.TotalCount() == 1 || latency < c.minLatency {
		c.minLatency = latency
	}
	if latency > c.maxLatency {
		c.maxLatency = latency
	}
}

// Snapshot returns the current aggregated statistics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Total:          c.total,
		Successes:      c.successes,
		Failures:       c.failures,
		Timeouts:       c.timeouts,
		BytesSent:      c.bytesSent,
		BytesReceived:  c.bytesReceived,
		LatencySamples: c.hist.TotalCount(),
		Start:          c.start,
		Elapsed:        time.Since(c.start),
	}

	if s.LatencySamples > 0 {
		s.MinLatency = c.minLatency
		s.MaxLatency = c.maxLatency
		s.MeanLatency = time.Duration(int64(c.sumLatency) / s.LatencySamples)
		s.P50Latency = time.Duration(c.hist.ValueAtQuantile(50)) * time.Microsecond
		s.P90Latency = time.Duration(c.hist.ValueAtQuantile(90)) * time.Microsecond
		s.P95Latency = time.Duration(c.hist.ValueAtQuantile(95)) * time.Microsecond
		s.P99Latency = time.Duration(c.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	if len(c.statusCodes) > 0 {
		s.StatusCodes = make(map[string]int64, len(c.statusCodes))
		for k, v := range c.statusCodes {
			s.StatusCodes[k] = v
		}
	}
	if len(c.errorsByKind) > 0 {
		s.Errors = make(map[string]int64, len(c.errorsByKind))
		for k, v := range c.errorsByKind {
			s.Errors[k] = v
		}
	}

	s.finalize()
	return s
}

// WithElapsed returns a copy of s with rate fields recomputed for elapsed.
func (s Snapshot) WithElapsed(elapsed time.Duration) Snapshot {
	s.Elapsed = elapsed
	s.finalize()
	return s
}

func (s *Snapshot) finalize() {
	s.RequestsPerSec = 0
	if s.Elapsed > 0 && s.Total > 0 {
		s.RequestsPerSec = float64(s.Total) / s.Elapsed.Seconds()
	}
	s.SuccessRate = 0
	if s.Total > 0 {
		s.SuccessRate = float64(s.Successes) / float64(s.Total) * 100
	}

	s.MinLatencyMs = toMillis(s.MinLatency)
	s.MaxLatencyMs = toMillis(s.MaxLatency)
	s.MeanLatencyMs = toMillis(s.MeanLatency)
	s.P50LatencyMs = toMillis(s.P50Latency)
	s.P90LatencyMs = toMillis(s.P90Latency)
	s.P95LatencyMs = toMillis(s.P95Latency)
	s.P99LatencyMs = toMillis(s.P99Latency)
	s.ElapsedMs = toMillis(s.Elapsed)
}

// TotalBytes is the sum of bytes sent and received.
func (s Snapshot) TotalBytes() int64 {
	return s.BytesSent + s.BytesReceived
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
