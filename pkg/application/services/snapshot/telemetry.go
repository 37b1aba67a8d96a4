package snapshot

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("batchledger.snapshot")

var (
	capturedTotal metric.Int64Counter
	payloadBytes  metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		capturedTotal, err = meter.Int64Counter(
			"snapshot_captured_total",
			metric.WithDescription("Recipe snapshots written"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		payloadBytes, err = meter.Int64Histogram(
			"snapshot_payload_bytes",
			metric.WithDescription("Size of serialized snapshot payloads"),
			metric.WithUnit("By"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

func recordCapture(ctx context.Context, size int, backfilled bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool("backfilled", backfilled))
	capturedTotal.Add(ctx, 1, attrs)
	payloadBytes.Record(ctx, int64(size), attrs)
}
