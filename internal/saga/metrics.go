package saga

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "lingo-services-bonus.saga"

// Metrics 采集 Run 维度与补偿维度的指标。
type Metrics struct {
	runCounter   metric.Int64Counter
	runDuration  metric.Int64Histogram
	retryCounter metric.Int64Counter
	compCounter  metric.Int64Counter
}

// NewMetrics 基于全局 MeterProvider 构造指标集。
func NewMetrics() *Metrics {
	m := otel.GetMeterProvider().Meter(meterName)
	runCounter, _ := m.Int64Counter("bonus_saga_runs_total")
	runDuration, _ := m.Int64Histogram("bonus_saga_run_duration_ms")
	retryCounter, _ := m.Int64Counter("bonus_saga_step_retries_total")
	compCounter, _ := m.Int64Counter("bonus_saga_compensations_total")
	return &Metrics{
		runCounter:   runCounter,
		runDuration:  runDuration,
		retryCounter: retryCounter,
		compCounter:  compCounter,
	}
}

func (m *Metrics) recordRun(ctx context.Context, saga string, result Result, elapsed time.Duration) {
	if m == nil || m.runCounter == nil {
		return
	}
	outcome := "succeeded"
	switch result.Status {
	case StatusHalted:
		outcome = result.HaltCode
	case StatusFailed:
		outcome = "failed"
	}
	attrs := metric.WithAttributes(
		attribute.String("saga", saga),
		attribute.String("result", outcome),
	)
	m.runCounter.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, elapsed.Milliseconds(), attrs)
}

func (m *Metrics) recordRetry(ctx context.Context, saga, step string, kind Kind) {
	if m == nil || m.retryCounter == nil {
		return
	}
	m.retryCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("saga", saga),
		attribute.String("step", step),
		attribute.String("kind", kind.String()),
	))
}

func (m *Metrics) recordCompensation(ctx context.Context, saga, failedStep string, ok bool) {
	if m == nil || m.compCounter == nil {
		return
	}
	result := "completed"
	if !ok {
		result = "failed"
	}
	m.compCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("saga", saga),
		attribute.String("failed_step", failedStep),
		attribute.String("result", result),
	))
}
