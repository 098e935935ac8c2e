package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider   *metric.MeterProvider
	meter           otelmetric.Meter
	processCounter  otelmetric.Int64Counter
	processDuration otelmetric.Float64Histogram
	phaseDuration   otelmetric.Float64Histogram
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	processCounter, _ := meter.Int64Counter(
		"applications.processed",
		otelmetric.WithDescription("Number of loan applications processed"),
	)

	processDuration, _ := meter.Float64Histogram(
		"applications.duration",
		otelmetric.WithDescription("End-to-end application processing duration"),
		otelmetric.WithUnit("ms"),
	)

	phaseDuration, _ := meter.Float64Histogram(
		"phases.duration",
		otelmetric.WithDescription("Workflow phase duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:   provider,
		meter:           meter,
		processCounter:  processCounter,
		processDuration: processDuration,
		phaseDuration:   phaseDuration,
	}
}

func (o *Observability) RecordApplicationProcessed(ctx context.Context, finalStatus string) {
	if o.processCounter != nil {
		o.processCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("final_status", finalStatus),
		))
	}
}

func (o *Observability) RecordProcessDuration(ctx context.Context, duration time.Duration, finalStatus string) {
	if o.processDuration != nil {
		o.processDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("final_status", finalStatus),
		))
	}
}

func (o *Observability) RecordPhaseDuration(ctx context.Context, phase string, duration time.Duration) {
	if o.phaseDuration != nil {
		o.phaseDuration.Record(ctx, float64(duration.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("phase", phase),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
