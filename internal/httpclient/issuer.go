package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/torosent/httpstorm/internal/config"
	"github.com/torosent/httpstorm/internal/metrics"
	"github.com/torosent/httpstorm/internal/pool"
	"github.com/torosent/httpstorm/internal/tracing"
)

// DelayRange bounds the random pre-send delay.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

var (
	// WorkerDelayRange is used by the worker pool.
	WorkerDelayRange = DelayRange{Min: 10 * time.Millisecond, Max: 500 * time.Millisecond}
	// TaskDelayRange is used by the task pool.
	TaskDelayRange = DelayRange{Min: 10 * time.Millisecond, Max: 200 * time.Millisecond}
)

func (d DelayRange) draw(rng Rand) time.Duration {
	if d.Max <= d.Min {
		return d.Min
	}
	return d.Min + time.Duration(rng.Int64N(int64(d.Max-d.Min)+1))
}

// IssuerOptions configures an Issuer.
type IssuerOptions struct {
	Target   string
	Method   string
	Headers  *HeaderGenerator
	Payloads *PayloadPicker
	Clients  *pool.ClientPool
	Proxies  []string
	// RandomDelay enables a pre-send wait drawn from Delay.
	RandomDelay bool
	Delay       DelayRange
	Rand        Rand
	Tracing     *tracing.Provider
	// Sleep replaces time.Sleep for the random delay.
	Sleep func(time.Duration)
}

// Issuer performs single HTTP exchanges and reports their outcome.
type Issuer struct {
	target      string
	method      string
	headers     *HeaderGenerator
	payloads    *PayloadPicker
	clients     *pool.ClientPool
	proxies     []string
	randomDelay bool
	delay       DelayRange
	rng         Rand
	tracing     *tracing.Provider
	sleep       func(time.Duration)
}

// NewIssuer validates opts and returns an Issuer.
func NewIssuer(opts IssuerOptions) (*Issuer, error) {
	target := strings.TrimSpace(opts.Target)
	if target == "" {
		return nil, errors.New("target URL is required")
	}
	if _, err := url.Parse(target); err != nil {
		return nil, err
	}
	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = http.MethodGet
	}
	if opts.Headers == nil {
		return nil, errors.New("header generator is required")
	}
	if opts.Clients == nil {
		return nil, errors.New("client pool is required")
	}
	for _, p := range opts.Proxies {
		if _, err := pool.ParseProxy(p); err != nil {
			return nil, err
		}
	}
	rng := opts.Rand
	if rng == nil {
		rng = NewRand(0)
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	delay := opts.Delay
	if delay == (DelayRange{}) {
		delay = WorkerDelayRange
	}
	payloads := opts.Payloads
	if payloads == nil {
		payloads = NewPayloadPicker(nil)
	}
	return &Issuer{
		target:      target,
		method:      method,
		headers:     opts.Headers,
		payloads:    payloads,
		clients:     opts.Clients,
		proxies:     append([]string(nil), opts.Proxies...),
		randomDelay: opts.RandomDelay,
		delay:       delay,
		rng:         rng,
		tracing:     opts.Tracing,
		sleep:       sleep,
	}, nil
}

// FromConfig builds an Issuer and its client pool from a validated config.
func FromConfig(cfg *config.Config, tp *tracing.Provider) (*Issuer, error) {
	headers, err := NewHeaderGenerator(cfg.UserAgents, cfg.Headers, cfg.Stealth)
	if err != nil {
		return nil, err
	}
	clientOpts := ClientOptions{
		Timeout:         cfg.Timeout,
		VerifyTLS:       cfg.VerifyTLS,
		MaxConnsPerHost: cfg.Concurrency,
	}
	clients := pool.NewClientPool(func(proxy *url.URL) *http.Client {
		opts := clientOpts
		opts.Proxy = proxy
		return NewClient(opts)
	})
	delay := WorkerDelayRange
	if cfg.Async() {
		delay = TaskDelayRange
	}
	return NewIssuer(IssuerOptions{
		Target:      cfg.TargetURL,
		Method:      cfg.Method,
		Headers:     headers,
		Payloads:    NewPayloadPicker(cfg.Payloads),
		Clients:     clients,
		Proxies:     cfg.Proxies,
		RandomDelay: cfg.RandomDelay,
		Delay:       delay,
		Rand:        NewRand(cfg.Seed),
		Tracing:     tp,
	})
}

// Issue performs one exchange. Cancellation of ctx does not abort a request
// already being prepared or in flight; the client timeout bounds it instead.
func (i *Issuer) Issue(ctx context.Context) metrics.Outcome {
	ctx = context.WithoutCancel(ctx)

	headers := i.headers.Generate(i.rng)

	var payload string
	hasBody := i.method == http.MethodPost && i.payloads.Len() > 0
	if hasBody {
		payload = i.payloads.Pick(i.rng)
	}

	proxy := ""
	if len(i.proxies) > 0 {
		proxy = i.proxies[i.rng.IntN(len(i.proxies))]
	}
	client, err := i.clients.Get(proxy)
	if err != nil {
		return metrics.Failed("proxy_error")
	}

	if i.randomDelay {
		i.sleep(i.delay.draw(i.rng))
	}

	var reqBody io.Reader
	if hasBody {
		reqBody = strings.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, i.method, i.target, reqBody)
	if err != nil {
		return metrics.Failed("invalid_request")
	}
	req.Header = headers
	if hasBody && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentTypeFor(payload))
	}

	ctx, span := tracing.StartRequestSpan(ctx, i.tracing.Tracer(), i.method, i.target)
	req = req.WithContext(ctx)
	if i.tracing.ShouldPropagate() {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		tracing.EndSpan(span, 0, err)
		return outcomeForError(err)
	}
	received, readErr := io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	latency := time.Since(start)
	if readErr != nil {
		tracing.EndSpan(span, resp.StatusCode, readErr)
		if IsTimeout(readErr) {
			return metrics.TimedOut()
		}
		return metrics.Failed("body_read")
	}
	tracing.EndSpan(span, resp.StatusCode, nil)

	var sent int64
	if hasBody {
		sent = int64(len(payload))
	}
	return metrics.Completed(resp.StatusCode, latency, received, sent)
}

// Close releases idle connections of every pooled client.
func (i *Issuer) Close() {
	i.clients.Close()
}

func outcomeForError(err error) metrics.Outcome {
	timedOut, kind := ClassifyError(err)
	if timedOut {
		return metrics.TimedOut()
	}
	return metrics.Failed(kind)
}

func contentTypeFor(payload string) string {
	if gjson.Valid(payload) {
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}
