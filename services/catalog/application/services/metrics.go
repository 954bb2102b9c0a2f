package services

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghuser/productcatalog/pkg/telemetry"
)

// instruments holds the catalog's OTel instruments. Built from the global
// meter provider, so they are no-ops until telemetry.Setup runs.
type instruments struct {
	tracer     trace.Tracer
	operations metric.Int64Counter
	listings   metric.Int64UpDownCounter
}

func newInstruments() *instruments {
	meter := telemetry.Meter()
	ops, err := meter.Int64Counter("catalog.operations",
		metric.WithDescription("Catalog facade operations by name and outcome"))
	if err != nil {
		ops = nil
	}
	listings, err := meter.Int64UpDownCounter("catalog.listings",
		metric.WithDescription("Registered catalog entries by kind"))
	if err != nil {
		listings = nil
	}
	return &instruments{tracer: telemetry.Tracer(), operations: ops, listings: listings}
}

// start opens a span for op and returns a finish func that closes it and
// counts the operation with its outcome.
func (m *instruments) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := m.tracer.Start(ctx, "catalog."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		if m.operations != nil {
			m.operations.Add(ctx, 1, metric.WithAttributes(
				attribute.String("op", op),
				attribute.String("outcome", outcome),
			))
		}
	}
}

func (m *instruments) registered(ctx context.Context, kind string, delta int64) {
	if m.listings == nil {
		return
	}
	m.listings.Add(ctx, delta, metric.WithAttributes(attribute.String("kind", kind)))
}
