package otel

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/erain9/crossbook"

var (
	orderBookMetrics     *OrderBookMetrics
	orderBookMetricsOnce sync.Once
)

// OrderBookMetrics holds metrics for order book operations
type OrderBookMetrics struct {
	// Tracks the total number of executed pairings by incoming side
	matchesTotal metric.Int64Counter
}

// GetOrderBookMetrics returns the OrderBookMetrics singleton. Concurrent
// callers share one instance; instrument creation failures leave the
// counters nil and recording becomes a no-op.
func GetOrderBookMetrics() *OrderBookMetrics {
	orderBookMetricsOnce.Do(func() {
		orderBookMetrics = &OrderBookMetrics{}

		meter := otel.GetMeterProvider().Meter(instrumentationName)
		matchesTotal, err := meter.Int64Counter(
			"orderbook.matches.total",
			metric.WithDescription("Total number of executed pairings"),
			metric.WithUnit("{match}"),
		)
		if err != nil {
			return
		}
		orderBookMetrics.matchesTotal = matchesTotal
	})

	return orderBookMetrics
}

// RecordMatches increments the executed pairing counter
func (m *OrderBookMetrics) RecordMatches(ctx context.Context, side string, count int64) {
	if m.matchesTotal == nil || count == 0 {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("order.side", side),
	}
	m.matchesTotal.Add(ctx, count, metric.WithAttributes(attrs...))
}
