package tracing

import (
	"context"
	"io"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Tracer starts spans around catalog calls and propagates them over HTTP.
type Tracer interface {
	Start(ctx context.Context, spanName string) (context.Context, oteltrace.Span)
	InjectHTTP(ctx context.Context, h http.Header)
	Shutdown() error
}

type tracer struct {
	tracer oteltrace.Tracer
	tp     *trace.TracerProvider
}

func (t tracer) Start(ctx context.Context, spanName string) (context.Context, oteltrace.Span) {
	return t.tracer.Start(ctx, spanName)
}

func (t tracer) InjectHTTP(ctx context.Context, h http.Header) {
	propagation.TraceContext{}.Inject(ctx, propagation.HeaderCarrier(h))
}

// Shutdown flushes pending spans and stops the provider.
func (t tracer) Shutdown() error {
	return t.tp.Shutdown(context.Background())
}

// NewTracer creates a tracer whose spans carry serviceName.
func NewTracer(serviceName string, exporter trace.SpanExporter) Tracer {
	tp := newTraceProvider(serviceName, exporter)

	return tracer{
		tracer: tp.Tracer(serviceName),
		tp:     tp,
	}
}

// NewWriterTracer exports finished spans as JSON lines to w.
func NewWriterTracer(serviceName string, w io.Writer) (Tracer, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}
	return NewTracer(serviceName, exporter), nil
}

type noopTracer struct {
	tracer oteltrace.Tracer
}

// Noop returns a tracer that records nothing.
func Noop() Tracer {
	return noopTracer{tracer: noop.NewTracerProvider().Tracer("")}
}

func (n noopTracer) Start(ctx context.Context, spanName string) (context.Context, oteltrace.Span) {
	return n.tracer.Start(ctx, spanName)
}

func (noopTracer) InjectHTTP(context.Context, http.Header) {}

func (noopTracer) Shutdown() error { return nil }

func newTraceProvider(serviceName string, exporter trace.SpanExporter) *trace.TracerProvider {
	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		)),
	)

	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{}),
	)

	otel.SetTracerProvider(tp)

	return tp
}
