// Package telemetry provides OpenTelemetry instrumentation for the
// marketing operations service. It exports Prometheus metrics and
// provides tracing capabilities.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "brandops"

// Metrics holds all service Prometheus metrics
type Metrics struct {
	// Scheduler scan metrics
	ScansTotal       prometheus.Counter
	ScanDuration     prometheus.Histogram
	CartsAbandoned   prometheus.Counter
	CartsExpired     prometheus.Counter
	TasksCreated     prometheus.Counter
	TasksExpired     prometheus.Counter
	PendingTaskDepth prometheus.Gauge

	// Dispatch metrics
	DispatchesTotal  *prometheus.CounterVec
	DispatchDuration prometheus.Histogram
	DispatchRetries  prometheus.Counter

	// Webhook metrics
	WebhookEvents   *prometheus.CounterVec
	WebhookRejected *prometheus.CounterVec

	// Citation metrics
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration prometheus.Histogram
	BrandMentions    prometheus.Counter
}

// Provider wraps telemetry providers
type Provider struct {
	Tracer  trace.Tracer
	Metrics *Metrics
}

// NewProvider initializes telemetry with Prometheus metrics
func NewProvider() *Provider {
	return &Provider{
		Tracer:  otel.Tracer(serviceName),
		Metrics: initMetrics(),
	}
}

// Handler returns the Prometheus HTTP handler for /metrics endpoint
func (p *Provider) Handler() http.Handler {
	return promhttp.Handler()
}

func initMetrics() *Metrics {
	m := &Metrics{}
	initSchedulerMetrics(m)
	initDispatchMetrics(m)
	initWebhookMetrics(m)
	initCitationMetrics(m)
	return m
}

func initSchedulerMetrics(m *Metrics) {
	m.ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brandops_scans_total",
		Help: "Total scheduler scan cycles",
	})

	m.ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "brandops_scan_duration_seconds",
		Help:    "Time to complete one scheduler scan cycle",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	})

	m.CartsAbandoned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brandops_carts_abandoned_total",
		Help: "Total carts transitioned to abandoned by the scan",
	})

	m.CartsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brandops_carts_expired_total",
		Help: "Total carts expired after exhausting recovery attempts",
	})

	m.TasksCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brandops_tasks_created_total",
		Help: "Total recovery tasks created",
	})

	m.TasksExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brandops_tasks_expired_total",
		Help: "Total recovery tasks dropped past their expiry",
	})

	m.PendingTaskDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "brandops_pending_task_depth",
		Help: "Current pending recovery tasks",
	})
}

func initDispatchMetrics(m *Metrics) {
	m.DispatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brandops_dispatches_total",
		Help: "Total recovery dispatch attempts by outcome",
	}, []string{"outcome"})

	m.DispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "brandops_dispatch_duration_seconds",
		Help:    "Time to dispatch a single recovery email",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
	})

	m.DispatchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brandops_dispatch_retries_total",
		Help: "Total failed dispatches re-queued for retry",
	})
}

func initWebhookMetrics(m *Metrics) {
	m.WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brandops_webhook_events_total",
		Help: "Total accepted webhook events by type",
	}, []string{"event_type"})

	m.WebhookRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brandops_webhook_rejected_total",
		Help: "Total rejected webhook deliveries by reason",
	}, []string{"reason"})
}

func initCitationMetrics(m *Metrics) {
	m.AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brandops_citation_analyses_total",
		Help: "Total citation analyses by platform",
	}, []string{"platform"})

	m.AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "brandops_citation_analysis_duration_seconds",
		Help:    "Time to analyze a single response",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	m.BrandMentions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brandops_brand_mentions_total",
		Help: "Total analyses where the brand was mentioned",
	})
}

// RecordScan records one completed scheduler scan cycle.
func (p *Provider) RecordScan(ctx context.Context, duration time.Duration, abandoned, created int) {
	p.Metrics.ScansTotal.Inc()
	p.Metrics.ScanDuration.Observe(duration.Seconds())
	p.Metrics.CartsAbandoned.Add(float64(abandoned))
	p.Metrics.TasksCreated.Add(float64(created))
}

// RecordDispatch records a dispatch attempt with its outcome label.
func (p *Provider) RecordDispatch(ctx context.Context, outcome string, duration time.Duration) {
	p.Metrics.DispatchesTotal.WithLabelValues(outcome).Inc()
	p.Metrics.DispatchDuration.Observe(duration.Seconds())
}

// RecordWebhookEvent records an accepted webhook event.
func (p *Provider) RecordWebhookEvent(ctx context.Context, eventType string) {
	p.Metrics.WebhookEvents.WithLabelValues(eventType).Inc()
}

// RecordWebhookRejection records a rejected webhook delivery.
func (p *Provider) RecordWebhookRejection(ctx context.Context, reason string) {
	p.Metrics.WebhookRejected.WithLabelValues(reason).Inc()
}

// RecordAnalysis records a citation analysis.
func (p *Provider) RecordAnalysis(ctx context.Context, platform string, mentioned bool, duration time.Duration) {
	p.Metrics.AnalysesTotal.WithLabelValues(platform).Inc()
	p.Metrics.AnalysisDuration.Observe(duration.Seconds())
	if mentioned {
		p.Metrics.BrandMentions.Inc()
	}
}

// RecordExpirations records carts and tasks expired during cleanup.
func (p *Provider) RecordExpirations(ctx context.Context, carts, tasks int64) {
	p.Metrics.CartsExpired.Add(float64(carts))
	p.Metrics.TasksExpired.Add(float64(tasks))
}

// IncrementDispatchRetries increments the retry counter.
func (p *Provider) IncrementDispatchRetries() {
	p.Metrics.DispatchRetries.Inc()
}

// SetPendingTaskDepth sets the current pending task gauge.
func (p *Provider) SetPendingTaskDepth(depth int64) {
	p.Metrics.PendingTaskDepth.Set(float64(depth))
}

// StartSpan starts a new trace span.
// The caller is responsible for ending the span with span.End().
//
//nolint:spancheck // Caller is responsible for ending the span
func (p *Provider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := p.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, span
}
