package metrics

import "time"

// OutcomeKind classifies a single request attempt.
type OutcomeKind uint8

const (
	// OutcomeCompleted means an HTTP response was received. The status code
	// decides whether it counts as a success.
	OutcomeCompleted OutcomeKind = iota
	// OutcomeTimedOut means the request exceeded its per-request timeout.
	OutcomeTimedOut
	// OutcomeFailed means the request failed before a response arrived.
	OutcomeFailed
)

// SuccessStatusCeiling is the first status code treated as a failure.
const SuccessStatusCeiling = 400

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompleted:
		return "completed"
	case OutcomeTimedOut:
		return "timeout"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one request attempt.
type Outcome struct {
	Kind          OutcomeKind
	StatusCode    int
	Latency       time.Duration
	BytesReceived int64
	// BytesSent is the payload size. It is only counted for completed attempts.
	BytesSent int64
	ErrorKind string
}

// Completed builds the outcome of a request that received a response.
func Completed(status int, latency time.Duration, received, sent int64) Outcome {
	return Outcome{
		Kind:          OutcomeCompleted,
		StatusCode:    status,
		Latency:       latency,
		BytesReceived: received,
		BytesSent:     sent,
	}
}

// TimedOut builds the outcome of a request that hit its timeout.
func TimedOut() Outcome {
	return Outcome{Kind: OutcomeTimedOut, ErrorKind: "timeout"}
}

// Failed builds the outcome of a request that failed with the given error kind.
func Failed(kind string) Outcome {
	if kind == "" {
		kind = "unknown"
	}
	return Outcome{Kind: OutcomeFailed, ErrorKind: kind}
}

// Successful reports whether the outcome counts toward successes.
func (o Outcome) Successful() bool {
	return o.Kind == OutcomeCompleted && o.StatusCode > 0 && o.StatusCode < SuccessStatusCeiling
}
