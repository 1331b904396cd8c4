package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SnapshotSource is anything that can produce a Snapshot on demand.
type SnapshotSource interface {
	Snapshot() Snapshot
}

// Exporter exposes a SnapshotSource as Prometheus metrics. A fresh snapshot
// is taken on every scrape.
type Exporter struct {
	source SnapshotSource

	requests       *prometheus.Desc
	outcomes       *prometheus.Desc
	timeouts       *prometheus.Desc
	statusCodes    *prometheus.Desc
	errorKinds     *prometheus.Desc
	bytes          *prometheus.Desc
	latency        *prometheus.Desc
	requestsPerSec *prometheus.Desc
}

// NewExporter builds an Exporter. constLabels are attached to every series.
func NewExporter(source SnapshotSource, constLabels prometheus.Labels) *Exporter {
	return &Exporter{
		source: source,
		requests: prometheus.NewDesc("httpstorm_requests_total",
			"Request attempts recorded so far.", nil, constLabels),
		outcomes: prometheus.NewDesc("httpstorm_requests_by_result_total",
			"Request attempts by result.", []string{"result"}, constLabels),
		timeouts: prometheus.NewDesc("httpstorm_timeouts_total",
			"Request attempts that exceeded the per-request timeout.", nil, constLabels),
		statusCodes: prometheus.NewDesc("httpstorm_responses_total",
			"Responses received by HTTP status code.", []string{"code"}, constLabels),
		errorKinds: prometheus.NewDesc("httpstorm_errors_total",
			"Transport failures by error kind.", []string{"kind"}, constLabels),
		bytes: prometheus.NewDesc("httpstorm_bytes_total",
			"Bytes transferred.", []string{"direction"}, constLabels),
		latency: prometheus.NewDesc("httpstorm_latency_seconds",
			"Response latency quantiles.", []string{"quantile"}, constLabels),
		requestsPerSec: prometheus.NewDesc("httpstorm_requests_per_second",
			"Average request rate since the run started.", nil, constLabels),
	}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.requests
	ch <- e.outcomes
	ch <- e.timeouts
	ch <- e.statusCodes
	ch <- e.errorKinds
	ch <- e.bytes
	ch <- e.latency
	ch <- e.requestsPerSec
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	s := e.source.Snapshot()

	ch <- prometheus.MustNewConstMetric(e.requests, prometheus.CounterValue, float64(s.Total))
	ch <- prometheus.MustNewConstMetric(e.outcomes, prometheus.CounterValue, float64(s.Successes), "success")
	ch <- prometheus.MustNewConstMetric(e.outcomes, prometheus.CounterValue, float64(s.Failures), "failure")
	ch <- prometheus.MustNewConstMetric(e.timeouts, prometheus.CounterValue, float64(s.Timeouts))
	for code, n := range s.StatusCodes {
		ch <- prometheus.MustNewConstMetric(e.statusCodes, prometheus.CounterValue, float64(n), code)
	}
	for kind, n := range s.Errors {
		ch <- prometheus.MustNewConstMetric(e.errorKinds, prometheus.CounterValue, float64(n), kind)
	}
	ch <- prometheus.MustNewConstMetric(e.bytes, prometheus.CounterValue, float64(s.BytesSent), "sent")
	ch <- prometheus.MustNewConstMetric(e.bytes, prometheus.CounterValue, float64(s.BytesReceived), "received")

	quantiles := []struct {
		label string
		value float64
	}{
		{"0.5", s.P50Latency.Seconds()},
		{"0.9", s.P90Latency.Seconds()},
		{"0.95", s.P95Latency.Seconds()},
		{"0.99", s.P99Latency.Seconds()},
	}
	for _, q := range quantiles {
		ch <- prometheus.MustNewConstMetric(e.latency, prometheus.GaugeValue, q.value, q.label)
	}
	ch <- prometheus.MustNewConstMetric(e.requestsPerSec, prometheus.GaugeValue, s.RequestsPerSec)
}

// Handler registers an Exporter for source on a private registry and returns
// the scrape handler.
func Handler(source SnapshotSource, constLabels prometheus.Labels) (http.Handler, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewExporter(source, constLabels)); err != nil {
		return nil, err
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{DisableCompression: true}), nil
}
