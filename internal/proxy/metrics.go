package proxy

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	outcomeOK          = "ok"
	outcomeRejected    = "rejected"
	outcomeVendorError = "vendor_error"
)

type metrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newMetrics(logger *slog.Logger) *metrics {
	meter := otel.Meter("github.com/loqalabs/loqa-bisi/proxy")
	m := &metrics{}
	var err error
	m.requests, err = meter.Int64Counter("bisi.proxy.requests",
		metric.WithDescription("Proxy requests by endpoint and outcome"))
	if err != nil {
		logger.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	}
	m.duration, err = meter.Float64Histogram("bisi.proxy.vendor.duration",
		metric.WithDescription("Vendor call latency"),
		metric.WithUnit("s"))
	if err != nil {
		logger.Warn("failed to initialize metrics", slog.String("error", err.Error()))
	}
	return m
}

func (m *metrics) request(ctx context.Context, endpoint, outcome string) {
	if m.requests == nil {
		return
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("outcome", outcome),
	))
}

func (m *metrics) vendorCall(ctx context.Context, endpoint string, elapsed time.Duration, err error) {
	if m.duration == nil {
		return
	}
	outcome := outcomeOK
	if err != nil {
		outcome = outcomeVendorError
	}
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(
		attribute.String("endpoint", endpoint),
		attribute.String("outcome", outcome),
	))
}
