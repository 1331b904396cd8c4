package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// RegisterFlags registers all CLI flags to a cobra command.
func RegisterFlags(cmd *cobra.Command) {
	configureFlags(cmd.Flags())
}

// newFlagCommand creates a cobra command with all flags configured.
func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "httpstorm [flags] <url>",
		Short:         "HTTP load generator for authorized testing",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(os.Stdout)
	configureFlags(cmd.Flags())
	return cmd
}

// configureFlags sets up all CLI flags on the provided flag set.
func configureFlags(flags *pflag.FlagSet) {
	// Core request flags
	flags.String("target", "", "Target URL (may also be given as the first argument)")
	flags.StringP("method", "m", "GET", "HTTP method to use (GET or POST)")
	flags.StringArrayP("header", "H", nil, "Additional request header in key=value form (repeatable)")
	flags.StringArray("payload", nil, "Candidate POST payload (repeatable)")
	flags.StringArray("user-agent", nil, "Candidate User-Agent string (repeatable, replaces the defaults)")
	flags.StringSlice("proxy", nil, "Proxy URL to route requests through (repeatable)")
	flags.Bool("no-ssl-verify", false, "Disable TLS certificate verification")

	// Load control flags
	flags.IntP("concurrency", "c", DefaultConcurrency, "Number of concurrent workers or in-flight tasks")
	flags.IntP("threads", "t", DefaultConcurrency, "Alias for --concurrency")
	_ = flags.MarkHidden("threads")
	flags.IntP("rps", "r", 0, "Target requests per second (0 means unbounded)")
	flags.IntP("duration", "d", int(DefaultDuration/time.Second), "How long to run the test in seconds (0 means unlimited)")
	flags.IntP("requests", "n", 0, "Total number of requests to send (0 means unlimited, overrides duration)")
	flags.Float64("timeout", DefaultTimeout.Seconds(), "Per-request timeout in seconds")
	flags.Bool("async", false, "Use the cooperative task dispatcher instead of worker goroutines")
	flags.String("mode", string(ModeWorkers), "Dispatch mode: 'workers' or 'tasks'")
	flags.Int("task-buffer", DefaultTaskBuffer, "In-flight task multiple of concurrency in task mode")
	flags.Bool("stealth", false, "Attach randomized forwarding headers")
	flags.Bool("random-delay", false, "Wait a short random delay before each request")
	flags.String("arrival-model", string(ArrivalModelUniform), "Pacing model when --rps is set (uniform, interval or poisson)")
	flags.Duration("graceful-shutdown", DefaultGracefulShutdown, "Max time to wait for in-flight requests after the run stops")
	flags.Int64("seed", 0, "Seed for header, payload and proxy selection (0 picks a random seed)")

	// Output flags
	flags.Duration("report-interval", DefaultReportInterval, "Interval between live statistics blocks")
	flags.Bool("json-output", false, "Emit JSON formatted output")
	flags.String("html-output", "", "Generate HTML report to the specified file path")
	flags.Bool("dashboard", false, "Show live terminal dashboard with metrics")
	flags.Bool("log-errors", false, "Log each failed request to stderr")
	flags.String("log-level", "warn", "Diagnostic log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Write diagnostic logs as JSON")
	flags.String("config", "", "Path to configuration file (JSON or YAML)")
	flags.StringSlice("threshold", nil, "Pass/fail thresholds (repeatable, e.g. 'http_req_duration:p95 < 500')")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")

	// Tracing flags
	flags.String("tracing-endpoint", "", "OTLP collector endpoint (enables tracing)")
	flags.String("tracing-protocol", "grpc", "OTLP protocol: 'grpc' or 'http'")
	flags.String("tracing-service-name", "", "Service name reported on spans")
	flags.Bool("tracing-insecure", false, "Connect to the OTLP endpoint without TLS")
	flags.Float64("tracing-sample-rate", 1.0, "Fraction of requests to trace (0.0-1.0)")
	flags.Bool("tracing-propagate", false, "Inject W3C trace headers even when spans are not exported")
}

// displayHelp prints the help message for a command.
func displayHelp(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Usage: %s\n\nFlags:\n", cmd.UseLine())
	fs := cmd.Flags()
	fs.SetOutput(out)
	fs.PrintDefaults()
}

// applyFlagOverrides applies command-line flag values to the config, overriding
// values from the config file.
func applyFlagOverrides(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("target") {
		val, err := fs.GetString("target")
		if err != nil {
			return err
		}
		cfg.TargetURL = strings.TrimSpace(val)
	}
	if fs.Changed("method") {
		val, err := fs.GetString("method")
		if err != nil {
			return err
		}
		cfg.Method = val
	}
	if fs.Changed("threads") {
		val, err := fs.GetInt("threads")
		if err != nil {
			return err
		}
		cfg.Concurrency = val
	}
	if fs.Changed("concurrency") {
		val, err := fs.GetInt("concurrency")
		if err != nil {
			return err
		}
		cfg.Concurrency = val
	}
	if fs.Changed("rps") {
		val, err := fs.GetInt("rps")
		if err != nil {
			return err
		}
		cfg.Rate = val
	}
	if fs.Changed("duration") {
		val, err := fs.GetInt("duration")
		if err != nil {
			return err
		}
		cfg.Duration = time.Duration(val) * time.Second
	}
	if fs.Changed("requests") {
		val, err := fs.GetInt("requests")
		if err != nil {
			return err
		}
		cfg.Total = val
	}
	if fs.Changed("timeout") {
		val, err := fs.GetFloat64("timeout")
		if err != nil {
			return err
		}
		cfg.Timeout = secondsToDuration(val)
	}
	if fs.Changed("no-ssl-verify") {
		val, err := fs.GetBool("no-ssl-verify")
		if err != nil {
			return err
		}
		cfg.VerifyTLS = !val
	}
	if fs.Changed("mode") {
		val, err := fs.GetString("mode")
		if err != nil {
			return err
		}
		cfg.Mode = DispatchMode(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("async") {
		val, err := fs.GetBool("async")
		if err != nil {
			return err
		}
		if val {
			cfg.Mode = ModeTasks
		} else if cfg.Mode == ModeTasks {
			cfg.Mode = ModeWorkers
		}
	}
	if fs.Changed("task-buffer") {
		val, err := fs.GetInt("task-buffer")
		if err != nil {
			return err
		}
		cfg.TaskBuffer = val
	}
	if fs.Changed("stealth") {
		val, err := fs.GetBool("stealth")
		if err != nil {
			return err
		}
		cfg.Stealth = val
	}
	if fs.Changed("random-delay") {
		val, err := fs.GetBool("random-delay")
		if err != nil {
			return err
		}
		cfg.RandomDelay = val
	}
	if fs.Changed("arrival-model") {
		val, err := fs.GetString("arrival-model")
		if err != nil {
			return err
		}
		cfg.Arrival.Model = ArrivalModel(strings.ToLower(strings.TrimSpace(val)))
	}
	if fs.Changed("graceful-shutdown") {
		val, err := fs.GetDuration("graceful-shutdown")
		if err != nil {
			return err
		}
		cfg.GracefulShutdown = val
	}
	if fs.Changed("seed") {
		val, err := fs.GetInt64("seed")
		if err != nil {
			return err
		}
		cfg.Seed = val
	}
	if fs.Changed("report-interval") {
		val, err := fs.GetDuration("report-interval")
		if err != nil {
			return err
		}
		cfg.ReportInterval = val
	}
	if fs.Changed("json-output") {
		val, err := fs.GetBool("json-output")
		if err != nil {
			return err
		}
		cfg.JSONOutput = val
	}
	if fs.Changed("html-output") {
		val, err := fs.GetString("html-output")
		if err != nil {
			return err
		}
		cfg.HTMLOutput = strings.TrimSpace(val)
	}
	if fs.Changed("dashboard") {
		val, err := fs.GetBool("dashboard")
		if err != nil {
			return err
		}
		cfg.Dashboard = val
	}
	if fs.Changed("log-errors") {
		val, err := fs.GetBool("log-errors")
		if err != nil {
			return err
		}
		cfg.LogErrors = val
	}
	if fs.Changed("log-level") {
		val, err := fs.GetString("log-level")
		if err != nil {
			return err
		}
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("log-json") {
		val, err := fs.GetBool("log-json")
		if err != nil {
			return err
		}
		cfg.LogJSON = val
	}
	if fs.Changed("threshold") {
		val, err := fs.GetStringSlice("threshold")
		if err != nil {
			return err
		}
		cfg.Thresholds = val
	}
	if fs.Changed("metrics-addr") {
		val, err := fs.GetString("metrics-addr")
		if err != nil {
			return err
		}
		cfg.MetricsAddr = strings.TrimSpace(val)
	}

	if err := applyListFlags(cfg, fs); err != nil {
		return err
	}
	return applyTracingFlags(cfg, fs)
}

func applyListFlags(cfg *Config, fs *pflag.FlagSet) error {
	vals, err := fs.GetStringArray("header")
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = map[string]string{}
		}
		for _, entry := range vals {
			parts := strings.SplitN(entry, "=", 2)
			if len(parts) != 2 {
				return fmt.Errorf("header must be in key=value format: %s", entry)
			}
			key := http.CanonicalHeaderKey(strings.TrimSpace(parts[0]))
			if key == "" {
				return fmt.Errorf("header key cannot be empty")
			}
			cfg.Headers[key] = strings.TrimSpace(parts[1])
		}
	}

	if fs.Changed("payload") {
		val, err := fs.GetStringArray("payload")
		if err != nil {
			return err
		}
		cfg.Payloads = val
	}
	if fs.Changed("user-agent") {
		val, err := fs.GetStringArray("user-agent")
		if err != nil {
			return err
		}
		cfg.UserAgents = val
	}
	if fs.Changed("proxy") {
		val, err := fs.GetStringSlice("proxy")
		if err != nil {
			return err
		}
		cfg.Proxies = val
	}
	return nil
}

func applyTracingFlags(cfg *Config, fs *pflag.FlagSet) error {
	if fs.Changed("tracing-endpoint") {
		val, err := fs.GetString("tracing-endpoint")
		if err != nil {
			return err
		}
		cfg.Tracing.Endpoint = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-protocol") {
		val, err := fs.GetString("tracing-protocol")
		if err != nil {
			return err
		}
		cfg.Tracing.Protocol = strings.ToLower(strings.TrimSpace(val))
	}
	if fs.Changed("tracing-service-name") {
		val, err := fs.GetString("tracing-service-name")
		if err != nil {
			return err
		}
		cfg.Tracing.ServiceName = strings.TrimSpace(val)
	}
	if fs.Changed("tracing-insecure") {
		val, err := fs.GetBool("tracing-insecure")
		if err != nil {
			return err
		}
		cfg.Tracing.Insecure = val
	}
	if fs.Changed("tracing-sample-rate") {
		val, err := fs.GetFloat64("tracing-sample-rate")
		if err != nil {
			return err
		}
		cfg.Tracing.SampleRate = val
	}
	if fs.Changed("tracing-propagate") {
		val, err := fs.GetBool("tracing-propagate")
		if err != nil {
			return err
		}
		cfg.Tracing.Propagate = val
	}
	return nil
}

func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
