package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	ModelCalls          metric.Int64Counter
	ModelDuration       metric.Float64Histogram
	TablesDetected      metric.Int64Counter
	PagesProcessed      metric.Int64Counter
	PipelineDuration    metric.Float64Histogram
	CircuitBreakerState metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("vlmax-platform")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	modelCalls, err := meter.Int64Counter(
		"model.calls.total",
		metric.WithDescription("Total model capability invocations"),
	)
	if err != nil {
		return nil, err
	}

	modelDuration, err := meter.Float64Histogram(
		"model.call.duration",
		metric.WithDescription("Model capability latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	tablesDetected, err := meter.Int64Counter(
		"pipeline.tables.detected",
		metric.WithDescription("Tables cropped from page images"),
	)
	if err != nil {
		return nil, err
	}

	pagesProcessed, err := meter.Int64Counter(
		"pipeline.pages.processed",
		metric.WithDescription("Pages run through table detection"),
	)
	if err != nil {
		return nil, err
	}

	pipelineDuration, err := meter.Float64Histogram(
		"pipeline.run.duration",
		metric.WithDescription("Document pipeline duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		ModelCalls:          modelCalls,
		ModelDuration:       modelDuration,
		TablesDetected:      tablesDetected,
		PagesProcessed:      pagesProcessed,
		PipelineDuration:    pipelineDuration,
		CircuitBreakerState: circuitBreakerState,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	}

	m.RequestCounter.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.RequestDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordModelCall records one capability invocation.
func (m *Metrics) RecordModelCall(capability string, success bool, duration float64) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("model.capability", capability),
		attribute.Bool("model.success", success),
	}

	m.ModelCalls.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	m.ModelDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordPage records a page passing through the locator.
func (m *Metrics) RecordPage(tables int) {
	if m == nil {
		return
	}
	m.PagesProcessed.Add(context.Background(), 1)
	if tables > 0 {
		m.TablesDetected.Add(context.Background(), int64(tables))
	}
}

// RecordPipelineRun records a finished pipeline run
func (m *Metrics) RecordPipelineRun(duration float64, status string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("pipeline.status", status),
	}

	m.PipelineDuration.Record(context.Background(), duration, metric.WithAttributes(attrs...))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("service", service),
		attribute.String("state", state),
	}

	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
