package result

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "lingo-services-media.result"

type metrics struct {
	applyCounter metric.Int64Counter
	skipCounter  metric.Int64Counter
	dropCounter  metric.Int64Counter
}

func newMetrics() *metrics {
	provider := otel.GetMeterProvider()
	m := provider.Meter(meterName)
	applyCounter, _ := m.Int64Counter("media_result_apply_total")
	skipCounter, _ := m.Int64Counter("media_result_skip_total")
	dropCounter, _ := m.Int64Counter("media_result_drop_total")
	return &metrics{applyCounter: applyCounter, skipCounter: skipCounter, dropCounter: dropCounter}
}

func (m *metrics) recordApply(ctx context.Context, success bool) {
	if m == nil || m.applyCounter == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.applyCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *metrics) recordSkip(ctx context.Context) {
	if m == nil || m.skipCounter == nil {
		return
	}
	m.skipCounter.Add(ctx, 1)
}

func (m *metrics) recordDrop(ctx context.Context, reason string) {
	if m == nil || m.dropCounter == nil {
		return
	}
	m.dropCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
