package runner

import (
	"context"

	"go.uber.org/zap"

	"github.com/torosent/httpstorm/internal/metrics"
)

// loggingIssuer wraps an Issuer with failure logging.
type loggingIssuer struct {
	inner  Issuer
	logger *zap.Logger
}

// WithLogging wraps an Issuer to log every attempt that does not succeed.
func WithLogging(issuer Issuer, logger *zap.Logger) Issuer {
	if logger == nil {
		return issuer
	}
	return &loggingIssuer{
		inner:  issuer,
		logger: logger,
	}
}

func (l *loggingIssuer) Issue(ctx context.Context) metrics.Outcome {
	out := l.inner.Issue(ctx)
	if out.Successful() {
		return out
	}
	switch out.Kind {
	case metrics.OutcomeCompleted:
		l.logger.Warn("request failed",
			zap.Int("status", out.StatusCode),
			zap.Duration("latency", out.Latency))
	default:
		l.logger.Warn("request failed",
			zap.String("outcome", out.Kind.String()),
			zap.String("error", metrics.FriendlyErrorName(out.ErrorKind)))
	}
	return out
}
