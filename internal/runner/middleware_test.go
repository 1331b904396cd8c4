package runner_test

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/torosent/httpstorm/internal/metrics"
	"github.com/torosent/httpstorm/internal/runner"
)

func TestWithLoggingLogsOnlyFailures(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	outcomes := []metrics.Outcome{
		metrics.Completed(200, 0, 0, 0),
		metrics.Completed(500, 0, 0, 0),
		metrics.TimedOut(),
		metrics.Failed("connection_refused"),
	}
	i := 0
	inner := runner.IssuerFunc(func(context.Context) metrics.Outcome {
		o := outcomes[i]
		i++
		return o
	})

	issuer := runner.WithLogging(inner, zap.New(core))
	for range outcomes {
		issuer.Issue(context.Background())
	}

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("got %d log entries, want 3", len(entries))
	}
	if got := entries[0].ContextMap()["status"]; got != int64(500) {
		t.Errorf("status field = %v, want 500", got)
	}
	if got := entries[1].ContextMap()["outcome"]; got != "timeout" {
		t.Errorf("outcome field = %v, want timeout", got)
	}
	if got := entries[2].ContextMap()["error"]; got != "Connection refused" {
		t.Errorf("error field = %v", got)
	}
}

func TestWithLoggingNilLoggerReturnsInner(t *testing.T) {
	inner := runner.IssuerFunc(func(context.Context) metrics.Outcome { return metrics.TimedOut() })
	if got := runner.WithLogging(inner, nil); got == nil {
		t.Fatal("WithLogging returned nil")
	}
}
