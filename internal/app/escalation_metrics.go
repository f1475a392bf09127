package app

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/example/peerline/internal/app"

// Transition outcomes recorded on the transitions counter.
const (
	outcomeOK       = "ok"
	outcomeRejected = "rejected"
	outcomeConflict = "conflict"
	outcomeError    = "error"
)

// lifecycleMetrics holds the instruments the escalation service records to.
type lifecycleMetrics struct {
	transitions  metric.Int64Counter
	responseTime metric.Float64Histogram
}

func defaultMeter() metric.Meter {
	return otel.Meter(meterName)
}

func newLifecycleMetrics(meter metric.Meter) (*lifecycleMetrics, error) {
	transitions, err := meter.Int64Counter("peerline.escalation.transitions",
		metric.WithDescription("Escalation lifecycle operations by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create transitions counter: %w", err)
	}

	responseTime, err := meter.Float64Histogram("peerline.escalation.response_time",
		metric.WithDescription("Time from detection to resolution"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(300, 900, 1800, 3600, 7200, 14400, 28800, 86400, 259200),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create response time histogram: %w", err)
	}

	return &lifecycleMetrics{transitions: transitions, responseTime: responseTime}, nil
}

func (m *lifecycleMetrics) recordTransition(ctx context.Context, operation, outcome string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func (m *lifecycleMetrics) recordResolution(ctx context.Context, level string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.responseTime.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("level", level),
	))
}
