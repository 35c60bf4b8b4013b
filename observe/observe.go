// Package observe provides an OpenTelemetry metrics hook for the do
// library. Register it on a scheduler to track submission rates,
// admission latency, and in-flight counts per lane.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mhuusko5/do/hook"
)

// meterName is the instrumentation scope name for do metrics.
const meterName = "github.com/mhuusko5/do"

// Compile-time interface checks.
var (
	_ hook.Hook          = (*Metrics)(nil)
	_ hook.UnitSubmitted = (*Metrics)(nil)
	_ hook.UnitEnqueued  = (*Metrics)(nil)
	_ hook.UnitAdmitted  = (*Metrics)(nil)
	_ hook.UnitCompleted = (*Metrics)(nil)
)

// Metrics records unit lifecycle metrics. Instruments:
//   - do.unit.submissions (Int64Counter): units entering the coordinator
//   - do.unit.deferred (Int64Counter): units pushed to a token backlog
//   - do.unit.admissions (Int64Counter): units dispatched, with
//     attribute queued (bool: sat in a backlog first)
//   - do.unit.queue_wait (Float64Histogram): backlog wait in seconds
//   - do.unit.in_flight (Int64UpDownCounter): admitted, not yet complete
//   - do.unit.duration (Float64Histogram): admission-to-completion time
//
// All instruments carry a lane attribute (the lane's name).
type Metrics struct {
	submissions metric.Int64Counter
	deferred    metric.Int64Counter
	admissions  metric.Int64Counter
	queueWait   metric.Float64Histogram
	inFlight    metric.Int64UpDownCounter
	duration    metric.Float64Histogram
}

// NewMetrics creates a Metrics hook using the global OTel
// MeterProvider. If no MeterProvider is configured, noop instruments
// are used and the hook becomes a pass-through.
func NewMetrics() *Metrics {
	return NewMetricsWithMeter(otel.Meter(meterName))
}

// NewMetricsWithMeter creates a Metrics hook with the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func NewMetricsWithMeter(meter metric.Meter) *Metrics {
	// Create instruments once at construction time. OTel instruments
	// are safe for concurrent use. On error the API returns noop
	// instruments so the hook degrades gracefully.
	m := &Metrics{}
	var err error

	m.submissions, err = meter.Int64Counter(
		"do.unit.submissions",
		metric.WithDescription("Units submitted to the coordinator"),
		metric.WithUnit("{unit}"),
	)
	_ = err // noop fallback guaranteed by OTel API contract

	m.deferred, err = meter.Int64Counter(
		"do.unit.deferred",
		metric.WithDescription("Units deferred to a token backlog"),
		metric.WithUnit("{unit}"),
	)
	_ = err

	m.admissions, err = meter.Int64Counter(
		"do.unit.admissions",
		metric.WithDescription("Units admitted and dispatched"),
		metric.WithUnit("{unit}"),
	)
	_ = err

	m.queueWait, err = meter.Float64Histogram(
		"do.unit.queue_wait",
		metric.WithDescription("Time units spent waiting in a backlog"),
		metric.WithUnit("s"),
	)
	_ = err

	m.inFlight, err = meter.Int64UpDownCounter(
		"do.unit.in_flight",
		metric.WithDescription("Units admitted and not yet complete"),
		metric.WithUnit("{unit}"),
	)
	_ = err

	m.duration, err = meter.Float64Histogram(
		"do.unit.duration",
		metric.WithDescription("Time from admission to completion signal"),
		metric.WithUnit("s"),
	)
	_ = err

	return m
}

// Name implements hook.Hook.
func (m *Metrics) Name() string { return "observe-metrics" }

func laneAttrs(u hook.Unit) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("lane", u.Lane.Name()))
}

// OnUnitSubmitted implements hook.UnitSubmitted.
func (m *Metrics) OnUnitSubmitted(ctx context.Context, u hook.Unit) error {
	m.submissions.Add(ctx, 1, laneAttrs(u))
	return nil
}

// OnUnitEnqueued implements hook.UnitEnqueued.
func (m *Metrics) OnUnitEnqueued(ctx context.Context, u hook.Unit, _ int) error {
	m.deferred.Add(ctx, 1, laneAttrs(u))
	return nil
}

// OnUnitAdmitted implements hook.UnitAdmitted.
func (m *Metrics) OnUnitAdmitted(ctx context.Context, u hook.Unit, queued time.Duration) error {
	m.admissions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("lane", u.Lane.Name()),
		attribute.Bool("queued", queued > 0),
	))
	m.queueWait.Record(ctx, queued.Seconds(), laneAttrs(u))
	m.inFlight.Add(ctx, 1, laneAttrs(u))
	return nil
}

// OnUnitCompleted implements hook.UnitCompleted.
func (m *Metrics) OnUnitCompleted(ctx context.Context, u hook.Unit, elapsed time.Duration) error {
	m.duration.Record(ctx, elapsed.Seconds(), laneAttrs(u))
	m.inFlight.Add(ctx, -1, laneAttrs(u))
	return nil
}
