package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/openfroyo/agentcore/pkg/engine"
)

// Span attribute keys.
var (
	AttrRunID         = attribute.Key("sync.run_id")
	AttrSyncOperation = attribute.Key("sync.operation")
	AttrSyncState     = attribute.Key("sync.state")
	AttrBackend       = attribute.Key("remote.backend")
	AttrRemoteKey     = attribute.Key("remote.key")
	AttrDriftChanges  = attribute.Key("drift.changes")
	AttrOperation     = attribute.Key("mutation.operation")
	AttrResource      = attribute.Key("mutation.resource")
	AttrErrorKind     = attribute.Key("error.kind")
	AttrErrorCode     = attribute.Key("error.code")
)

// Tracer creates the spans around sync runs and mutations. When tracing is
// disabled it hands out non-recording spans and owns no provider.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracer creates a tracer from configuration.
func NewTracer(cfg TracingConfig, serviceName, serviceVersion string) (*Tracer, error) {
	if !cfg.Enabled {
		return &Tracer{tracer: noop.NewTracerProvider().Tracer(serviceName)}, nil
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(
		semconv.ServiceNameKey.String(serviceName),
		semconv.ServiceVersionKey.String(serviceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SamplingRate))),
	}
	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	if exporter != nil {
		// An invocation lives for seconds; export each span as it ends.
		opts = append(opts, sdktrace.WithSyncer(exporter))
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return &Tracer{provider: provider, tracer: provider.Tracer(serviceName)}, nil
}

// newExporter returns nil for the "none" exporter: spans are sampled but kept local.
func newExporter(cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "none":
		return nil, nil
	case "stdout":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "otlp":
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(cfg.Endpoint),
			otlptracegrpc.WithTimeout(cfg.ExportTimeout),
			otlptracegrpc.WithDialOption(grpc.WithUserAgent("agentcore")),
		}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithTLSCredentials(insecure.NewCredentials()))
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
		}
		return otlptracegrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}
}

// StartSyncSpan starts the span of a push, pull, status or auto run.
func (t *Tracer) StartSyncSpan(ctx context.Context, operation, runID, backend string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "sync."+operation, trace.WithAttributes(
		AttrRunID.String(runID),
		AttrSyncOperation.String(operation),
		AttrBackend.String(backend),
	))
}

// StartMutationSpan starts the span of a document mutation.
func (t *Tracer) StartMutationSpan(ctx context.Context, operation, resource string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "mutation."+operation, trace.WithAttributes(
		AttrOperation.String(operation),
		AttrResource.String(resource),
	))
}

// StartRemoteSpan starts the span of one remote mirror call.
func (t *Tracer) StartRemoteSpan(ctx context.Context, operation, backend, key string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "remote."+operation, trace.WithAttributes(
		AttrBackend.String(backend),
		AttrRemoteKey.String(key),
	))
}

// Shutdown flushes pending spans.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

// RecordError marks the span failed and tags it with the engine kind and code.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	var e *engine.EngineError
	if asEngineError(err, &e) {
		span.SetAttributes(AttrErrorKind.String(string(e.Kind)), AttrErrorCode.String(e.Code))
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// RecordSuccess marks the span successful.
func RecordSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// AddStateEvent records a sync state transition on the span.
func AddStateEvent(span trace.Span, state string) {
	span.AddEvent("sync.state", trace.WithAttributes(AttrSyncState.String(state)))
}
