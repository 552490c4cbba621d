package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/joao-fontenele/storefront-orders/internal/domain"
)

// InitMeterProvider initializes the Prometheus exporter and MeterProvider.
// It returns an http.Handler for the /metrics endpoint and a shutdown function.
func InitMeterProvider(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(newResource(serviceName, serviceVersion)),
	)
	otel.SetMeterProvider(mp)

	return promhttp.Handler(), mp.Shutdown, nil
}

func newResource(serviceName, serviceVersion string) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)
}

// OrderMetrics records order lifecycle counters. It satisfies the recorder
// interfaces of the orders and analytics packages.
type OrderMetrics struct {
	transitions   otelmetric.Int64Counter
	notifications otelmetric.Int64Counter
	cacheLookups  otelmetric.Int64Counter
}

func NewOrderMetrics(meter otelmetric.Meter) (*OrderMetrics, error) {
	transitions, err := meter.Int64Counter("orders.status_transitions",
		otelmetric.WithDescription("Order status changes by origin and target status."))
	if err != nil {
		return nil, err
	}
	notifications, err := meter.Int64Counter("orders.notifications",
		otelmetric.WithDescription("Customer notification requests by kind and outcome."))
	if err != nil {
		return nil, err
	}
	cacheLookups, err := meter.Int64Counter("analytics.cache_lookups",
		otelmetric.WithDescription("Analytics report cache lookups by result."))
	if err != nil {
		return nil, err
	}
	return &OrderMetrics{
		transitions:   transitions,
		notifications: notifications,
		cacheLookups:  cacheLookups,
	}, nil
}

func (m *OrderMetrics) RecordTransition(ctx context.Context, from, to domain.OrderStatus) {
	m.transitions.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	))
}

func (m *OrderMetrics) RecordNotification(ctx context.Context, kind domain.NotificationKind, ok bool) {
	m.notifications.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("kind", string(kind)),
		attribute.Bool("ok", ok),
	))
}

func (m *OrderMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	m.cacheLookups.Add(ctx, 1, otelmetric.WithAttributes(attribute.Bool("hit", hit)))
}
