package telemetry

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/admindash"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Client side API metrics
	APIRequestsTotal metric.Int64Counter
	APIErrorsTotal   metric.Int64Counter
	APIDuration      metric.Float64Histogram

	// Session gate outcomes
	SessionEvaluations metric.Int64Counter

	// Backend metrics
	DocumentsMutatedTotal metric.Int64Counter
	LoginAttemptsTotal    metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.APIRequestsTotal, _ = meter.Int64Counter(
		"admindash.api.requests.total",
		metric.WithDescription("Total number of backend API requests"),
		metric.WithUnit("{request}"),
	)

	m.APIErrorsTotal, _ = meter.Int64Counter(
		"admindash.api.errors.total",
		metric.WithDescription("Total number of backend API requests that failed or returned non-2xx"),
		metric.WithUnit("{error}"),
	)

	m.APIDuration, _ = meter.Float64Histogram(
		"admindash.api.request.duration",
		metric.WithDescription("Duration of backend API requests"),
		metric.WithUnit("ms"),
	)

	m.SessionEvaluations, _ = meter.Int64Counter(
		"admindash.session.evaluations.total",
		metric.WithDescription("Total number of session gate evaluations by outcome"),
		metric.WithUnit("{evaluation}"),
	)

	m.DocumentsMutatedTotal, _ = meter.Int64Counter(
		"admindash.documents.mutated.total",
		metric.WithDescription("Total number of documents created, updated or deleted"),
		metric.WithUnit("{document}"),
	)

	m.LoginAttemptsTotal, _ = meter.Int64Counter(
		"admindash.logins.total",
		metric.WithDescription("Total number of admin login attempts by outcome"),
		metric.WithUnit("{attempt}"),
	)

	return m
}

// NewMetricsTransport records request counts and latency for every
// request passing through next.
func NewMetricsTransport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &metricsTransport{next: next, metrics: GetMetrics()}
}

type metricsTransport struct {
	next    http.RoundTripper
	metrics *Metrics
}

func (t *metricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	started := time.Now()

	resp, err := t.next.RoundTrip(req)

	status := "error"
	if resp != nil {
		status = strconv.Itoa(resp.StatusCode)
	}
	attrs := metric.WithAttributes(
		attribute.String("method", req.Method),
		attribute.String("status", status),
	)

	t.metrics.APIRequestsTotal.Add(ctx, 1, attrs)
	t.metrics.APIDuration.Record(ctx, float64(time.Since(started).Milliseconds()), attrs)
	if err != nil || resp.StatusCode >= 400 {
		t.metrics.APIErrorsTotal.Add(ctx, 1, attrs)
	}

	return resp, err
}
