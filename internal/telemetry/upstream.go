package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/tenkimap/tenkimap/internal/telemetry"

// UpstreamMetrics records calls to the geocoding and forecast upstreams.
// A nil *UpstreamMetrics is valid and records nothing.
type UpstreamMetrics struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
}

// NewUpstreamMetrics creates the upstream instruments on the global meter.
func NewUpstreamMetrics() (*UpstreamMetrics, error) {
	meter := otel.Meter(meterName)

	duration, err := meter.Float64Histogram(
		"upstream.request.duration",
		metric.WithDescription("Duration of upstream requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	total, err := meter.Int64Counter(
		"upstream.request.total",
		metric.WithDescription("Total number of upstream requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &UpstreamMetrics{duration: duration, total: total}, nil
}

// Record records one upstream call. outcome is a short label such as
// "ok", "not_found", "unavailable" or "error".
func (m *UpstreamMetrics) Record(ctx context.Context, upstream, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("upstream.name", upstream),
		attribute.String("upstream.outcome", outcome),
	)

	// Detached so a cancelled request still gets counted.
	ctx = context.WithoutCancel(ctx)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
	m.total.Add(ctx, 1, attrs)
}
