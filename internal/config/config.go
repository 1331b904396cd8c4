package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap/zapcore"
)

// DispatchMode selects the concurrency model used to issue requests.
type DispatchMode string

const (
	// ModeWorkers runs one goroutine per concurrency unit, each blocking on I/O.
	ModeWorkers DispatchMode = "workers"
	// ModeTasks runs a single dispatcher that keeps many short-lived tasks in
	// flight behind a capacity gate.
	ModeTasks DispatchMode = "tasks"
)

type ArrivalModel string

const (
	ArrivalModelUniform  ArrivalModel = "uniform"
	ArrivalModelInterval ArrivalModel = "interval"
	ArrivalModelPoisson  ArrivalModel = "poisson"
)

type ArrivalConfig struct {
	Model ArrivalModel `mapstructure:"model"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Protocol    string  `mapstructure:"protocol"` // "grpc" or "http"
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Insecure    bool    `mapstructure:"insecure"`
	Propagate   bool    `mapstructure:"propagate"`
}

// Enabled reports whether spans should be exported.
func (t TracingConfig) Enabled() bool {
	return strings.TrimSpace(t.Endpoint) != ""
}

// ShouldPropagate reports whether W3C trace headers are attached to requests.
func (t TracingConfig) ShouldPropagate() bool {
	return t.Enabled() || t.Propagate
}

const (
	DefaultConcurrency      = 50
	DefaultDuration         = 10 * time.Second
	DefaultTimeout          = 10 * time.Second
	DefaultTaskBuffer       = 20
	DefaultReportInterval   = 5 * time.Second
	DefaultGracefulShutdown = 5 * time.Second
)

type Config struct {
	TargetURL        string            `mapstructure:"url"`
	Method           string            `mapstructure:"method"`
	Headers          map[string]string `mapstructure:"headers"`
	Payloads         []string          `mapstructure:"payloads"`
	UserAgents       []string          `mapstructure:"user_agents"`
	Proxies          []string          `mapstructure:"proxies"`
	Concurrency      int               `mapstructure:"concurrency"`
	Rate             int               `mapstructure:"rps"`
	Duration         time.Duration     `mapstructure:"duration"`
	Total            int               `mapstructure:"total"`
	Timeout          time.Duration     `mapstructure:"timeout"`
	VerifyTLS        bool              `mapstructure:"verify_ssl"`
	Mode             DispatchMode      `mapstructure:"mode"`
	TaskBuffer       int               `mapstructure:"task_buffer"`
	Stealth          bool              `mapstructure:"stealth"`
	RandomDelay      bool              `mapstructure:"random_delay"`
	Arrival          ArrivalConfig     `mapstructure:"arrival"`
	GracefulShutdown time.Duration     `mapstructure:"graceful_shutdown"`
	ReportInterval   time.Duration     `mapstructure:"report_interval"`
	Seed             int64             `mapstructure:"seed"`
	JSONOutput       bool              `mapstructure:"json_output"`
	HTMLOutput       string            `mapstructure:"html_output"`
	Dashboard        bool              `mapstructure:"dashboard"`
	LogErrors        bool              `mapstructure:"log_errors"`
	LogLevel         string            `mapstructure:"log_level"`
	LogJSON          bool              `mapstructure:"log_json"`
	Thresholds       []string          `mapstructure:"thresholds"`
	MetricsAddr      string            `mapstructure:"metrics_addr"`
	Tracing          TracingConfig     `mapstructure:"tracing"`
	ConfigFile       string            `mapstructure:"-"`
}

// Defaults returns a Config populated with the values used when neither a
// config file nor a flag sets them.
func Defaults() *Config {
	return &Config{
		Method:           "GET",
		Headers:          map[string]string{},
		UserAgents:       DefaultUserAgents(),
		Concurrency:      DefaultConcurrency,
		Duration:         DefaultDuration,
		Timeout:          DefaultTimeout,
		VerifyTLS:        true,
		Mode:             ModeWorkers,
		TaskBuffer:       DefaultTaskBuffer,
		Arrival:          ArrivalConfig{Model: ArrivalModelUniform},
		GracefulShutdown: DefaultGracefulShutdown,
		ReportInterval:   DefaultReportInterval,
		LogLevel:         "warn",
		Tracing:          TracingConfig{Protocol: "grpc", SampleRate: 1.0},
	}
}

// Async reports whether the cooperative task model is selected.
func (c Config) Async() bool {
	return c.Mode == ModeTasks
}

// EffectiveDuration is the duration limit that governs the run. A request
// ceiling disables the duration limit.
func (c Config) EffectiveDuration() time.Duration {
	if c.Total > 0 {
		return 0
	}
	return c.Duration
}

type ValidationError struct {
	issues []string
}

func (e ValidationError) Error() string {
	if len(e.issues) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(e.issues, "; "))
}

func (e ValidationError) Issues() []string {
	return append([]string(nil), e.issues...)
}

func (c Config) Validate() error {
	var issues []string

	issues = append(issues, validateTarget(c.TargetURL)...)

	switch c.Method {
	case "GET", "POST":
	default:
		issues = append(issues, fmt.Sprintf("method %q is not supported (use GET or POST)", c.Method))
	}

	if c.Concurrency < 1 {
		issues = append(issues, "concurrency must be >= 1")
	}
	if c.Rate < 0 {
		issues = append(issues, "rps must be >= 0")
	}
	if c.Total < 0 {
		issues = append(issues, "requests must be >= 0")
	}
	if c.Duration < 0 {
		issues = append(issues, "duration must be >= 0")
	}
	if c.Timeout <= 0 {
		issues = append(issues, "timeout must be > 0")
	}
	if c.TaskBuffer < 1 {
		issues = append(issues, "task buffer must be >= 1")
	}
	if c.ReportInterval <= 0 {
		issues = append(issues, "report interval must be > 0")
	}
	if c.GracefulShutdown < 0 {
		issues = append(issues, "graceful shutdown must be >= 0")
	}
	if c.Dashboard && c.JSONOutput {
		issues = append(issues, "dashboard and json-output are mutually exclusive")
	}

	switch c.Mode {
	case ModeWorkers, ModeTasks:
	default:
		issues = append(issues, fmt.Sprintf("mode %q is not supported (use workers or tasks)", c.Mode))
	}

	issues = append(issues, validateArrivalConfig(c.Arrival)...)
	issues = append(issues, validateHeaders(c.Headers)...)
	issues = append(issues, validateProxies(c.Proxies)...)

	if len(c.UserAgents) == 0 {
		issues = append(issues, "at least one user agent is required")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		issues = append(issues, fmt.Sprintf("log level %q is not supported", c.LogLevel))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		issues = append(issues, "tracing sample rate must be between 0.0 and 1.0")
	}
	if p := strings.ToLower(c.Tracing.Protocol); p != "" && p != "grpc" && p != "http" {
		issues = append(issues, fmt.Sprintf("tracing protocol %q is not supported (use grpc or http)", c.Tracing.Protocol))
	}

	if len(issues) > 0 {
		return ValidationError{issues: issues}
	}
	return nil
}

// Warnings returns advisories about a valid but risky configuration.
func (c Config) Warnings() []string {
	var warnings []string
	if c.Rate > 1000 {
		warnings = append(warnings, fmt.Sprintf("high rate limit configured (%d RPS); ensure you have authorization to test the target system", c.Rate))
	}
	if c.Concurrency > 500 {
		warnings = append(warnings, fmt.Sprintf("high concurrency configured (%d workers); ensure you have authorization to test the target system", c.Concurrency))
	}
	if !c.VerifyTLS && strings.HasPrefix(strings.ToLower(c.TargetURL), "https://") {
		warnings = append(warnings, "TLS certificate verification is disabled")
	}
	if c.Total == 0 && c.Duration == 0 {
		warnings = append(warnings, "no duration or request limit set; the run stops only when interrupted")
	}
	return warnings
}

func validateTarget(target string) []string {
	target = strings.TrimSpace(target)
	if target == "" {
		return []string{"target URL is required (use --help for usage information)"}
	}
	lower := strings.ToLower(target)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return []string{"target URL must start with http:// or https://"}
	}
	u, err := url.Parse(target)
	if err != nil {
		return []string{fmt.Sprintf("target URL is invalid: %v", err)}
	}
	if u.Host == "" {
		return []string{"target URL must include a host"}
	}
	return nil
}

func validateArrivalConfig(arr ArrivalConfig) []string {
	model := arr.Model
	if model == "" {
		model = ArrivalModelUniform
	}
	switch model {
	case ArrivalModelUniform, ArrivalModelInterval, ArrivalModelPoisson:
		return nil
	default:
		return []string{fmt.Sprintf("arrival model %q is not supported", model)}
	}
}

func validateHeaders(headers map[string]string) []string {
	var issues []string
	for k, v := range headers {
		if strings.TrimSpace(k) == "" {
			issues = append(issues, "header key cannot be empty")
			continue
		}
		if strings.ContainsAny(k, "\r\n: ") {
			issues = append(issues, fmt.Sprintf("header %q has an invalid name", k))
		}
		if strings.ContainsAny(v, "\r\n") {
			issues = append(issues, fmt.Sprintf("header %q value contains a line break", k))
		}
	}
	return issues
}

func validateProxies(proxies []string) []string {
	var issues []string
	for idx, p := range proxies {
		u, err := url.Parse(strings.TrimSpace(p))
		if err != nil || u.Host == "" {
			issues = append(issues, fmt.Sprintf("proxies[%d]: %q is not a valid proxy URL", idx, p))
			continue
		}
		switch strings.ToLower(u.Scheme) {
		case "http", "https", "socks5", "socks5h":
		default:
			issues = append(issues, fmt.Sprintf("proxies[%d]: scheme %q is not supported", idx, u.Scheme))
		}
	}
	return issues
}
