package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/torosent/httpstorm/internal/config"
	"github.com/torosent/httpstorm/internal/dashboard"
	"github.com/torosent/httpstorm/internal/httpclient"
	"github.com/torosent/httpstorm/internal/logging"
	"github.com/torosent/httpstorm/internal/metrics"
	"github.com/torosent/httpstorm/internal/output"
	"github.com/torosent/httpstorm/internal/runner"
	"github.com/torosent/httpstorm/internal/threshold"
	"github.com/torosent/httpstorm/internal/tracing"
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, JSON: cfg.LogJSON, Output: stderr})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	runID := ulid.Make().String()
	logger = logger.With(zap.String("run_id", runID))

	tp, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	issuer, err := httpclient.FromConfig(cfg, tp)
	if err != nil {
		return err
	}
	defer issuer.Close()

	collector := metrics.NewCollector()

	if cfg.MetricsAddr != "" {
		addr, stop, err := serveMetrics(cfg.MetricsAddr, collector, runID, logger)
		if err != nil {
			return err
		}
		defer stop()
		logger.Info("serving metrics", zap.String("addr", addr))
	}

	var wrapped runner.Issuer = issuer
	if cfg.LogErrors {
		wrapped = runner.WithLogging(wrapped, logger)
	}

	opts := runner.OptionsFromConfig(cfg)
	opts.Issuer = wrapped
	opts.Recorder = collector
	opts.Logger = logger
	r := runner.New(opts)

	runCtx, stopRun := context.WithCancel(ctx)
	defer stopRun()

	if !cfg.JSONOutput && !cfg.Dashboard {
		output.PrintBanner(stdout, bannerInfo(cfg, runID))
	}

	var dash *dashboard.Dashboard
	if cfg.Dashboard {
		dash, err = dashboard.New(collector, dashboardConfig(cfg), stopRun)
		if err != nil {
			return err
		}
	}

	liveOut := stdout
	if cfg.JSONOutput || cfg.Dashboard {
		liveOut = io.Discard
	}
	live := output.NewLiveReporter(collector, cfg.TargetURL, cfg.ReportInterval, liveOut)

	logger.Info("run starting",
		zap.String("target", cfg.TargetURL),
		zap.String("mode", string(opts.Mode)),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Int("rps", cfg.Rate),
	)

	collector.Start()
	live.Start()
	if dash != nil {
		dash.Start()
	}
	result := r.Run(runCtx)
	live.Stop()
	if dash != nil {
		dash.Stop()
	}

	logger.Info("run finished",
		zap.String("reason", string(result.StopReason)),
		zap.Int64("total", result.Total),
		zap.Duration("duration", result.Duration),
	)
	if result.Abandoned > 0 {
		logger.Warn("requests still in flight after grace period", zap.Int64("abandoned", result.Abandoned))
	}

	snap := collector.Snapshot().WithElapsed(result.Duration)
	results := threshold.NewEvaluator(thresholds).Evaluate(snap)

	report := output.Report{
		RunID:      runID,
		Target:     cfg.TargetURL,
		Method:     cfg.Method,
		Mode:       string(opts.Mode),
		StopReason: string(result.StopReason),
		Abandoned:  int(result.Abandoned),
		Stats:      snap,
		RPSHistory: live.History(),
		Thresholds: results,
	}

	if cfg.JSONOutput {
		if err := output.PrintJSONReport(stdout, report); err != nil {
			return err
		}
	} else {
		output.PrintReport(stdout, report)
	}

	if cfg.HTMLOutput != "" {
		if err := writeHTMLReport(cfg.HTMLOutput, report); err != nil {
			return err
		}
		if !cfg.JSONOutput {
			fmt.Fprintf(stdout, "\nHTML report written to %s\n", cfg.HTMLOutput)
		}
	}

	if !threshold.AllPassed(results) {
		failed := 0
		for _, res := range results {
			if !res.Pass {
				failed++
			}
		}
		return fmt.Errorf("%d of %d thresholds failed", failed, len(results))
	}
	return nil
}

func writeHTMLReport(path string, report output.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create html report: %w", err)
	}
	if err := output.GenerateHTMLReport(f, report); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// serveMetrics exposes collector snapshots for Prometheus scraping. The
// listener is bound before returning so address errors surface immediately.
func serveMetrics(addr string, source metrics.SnapshotSource, runID string, logger *zap.Logger) (string, func(), error) {
	handler, err := metrics.Handler(source, prometheus.Labels{"run_id": runID})
	if err != nil {
		return "", nil, fmt.Errorf("metrics: %w", err)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("metrics listen %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func bannerInfo(cfg *config.Config, runID string) output.BannerInfo {
	mode := string(runner.ModeWorkers)
	if cfg.Async() {
		mode = string(runner.ModeTasks)
	}
	return output.BannerInfo{
		RunID:        runID,
		Target:       cfg.TargetURL,
		Method:       cfg.Method,
		Duration:     cfg.EffectiveDuration(),
		Requests:     cfg.Total,
		Concurrency:  cfg.Concurrency,
		RPS:          cfg.Rate,
		Timeout:      cfg.Timeout,
		Mode:         mode,
		ArrivalModel: string(cfg.Arrival.Model),
		Stealth:      cfg.Stealth,
		RandomDelay:  cfg.RandomDelay,
	}
}

func dashboardConfig(cfg *config.Config) dashboard.RunConfig {
	return dashboard.RunConfig{
		TargetURL:    cfg.TargetURL,
		Method:       cfg.Method,
		Mode:         string(cfg.Mode),
		ArrivalModel: string(cfg.Arrival.Model),
		Concurrency:  cfg.Concurrency,
		Duration:     cfg.EffectiveDuration(),
		Total:        cfg.Total,
		Rate:         cfg.Rate,
		Timeout:      cfg.Timeout,
		Stealth:      cfg.Stealth,
		RandomDelay:  cfg.RandomDelay,
		ConfigFile:   cfg.ConfigFile,
	}
}
