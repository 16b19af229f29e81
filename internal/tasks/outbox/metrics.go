package outbox

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "lingo-services-media.outbox"

type metrics struct {
	publishCounter metric.Int64Counter
}

func newMetrics(store eventStore) *metrics {
	provider := otel.GetMeterProvider()
	m := provider.Meter(meterName)
	publishCounter, _ := m.Int64Counter("media_outbox_publish_total")

	// 待发布积压用异步 Gauge 上报，采集时直接查库。
	pendingGauge, err := m.Int64ObservableGauge("media_outbox_pending_events")
	if err == nil && store != nil {
		_, _ = m.RegisterCallback(func(ctx context.Context, observer metric.Observer) error {
			count, err := store.CountPending(ctx)
			if err != nil {
				return nil
			}
			observer.ObserveInt64(pendingGauge, count)
			return nil
		}, pendingGauge)
	}

	return &metrics{publishCounter: publishCounter}
}

func (m *metrics) recordPublish(ctx context.Context, success bool) {
	if m == nil || m.publishCounter == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.publishCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
