package hooks

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/Erithax/zune-image/core"
)

// TracerName is the instrumentation scope used for every zune span.
const TracerName = "github.com/Erithax/zune-image"

type TraceConfig struct {
	ServiceName  string
	Exporter     string // none, stdout or otlp
	OTLPEndpoint string
	OTLPInsecure bool
}

// SetupTracing installs a global tracer provider and returns its shutdown
// function. The stdout exporter writes to w; pass stderr when stdout carries
// image bytes.
func SetupTracing(ctx context.Context, cfg TraceConfig, w io.Writer, logger core.Logger) (func(context.Context) error, error) {
	if logger == nil {
		logger = core.NopLogger{}
	}
	otel.SetTextMapPropagator(propagation.TraceContext{})

	exporterName := strings.ToLower(strings.TrimSpace(cfg.Exporter))
	if exporterName == "" || exporterName == "none" {
		logger.Debug("tracing.disabled")
		return func(context.Context) error { return nil }, nil
	}

	var (
		exp sdktrace.SpanExporter
		err error
	)
	switch exporterName {
	case "stdout":
		exp, err = stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	case "otlp":
		if strings.TrimSpace(cfg.OTLPEndpoint) == "" {
			return nil, fmt.Errorf("otlp trace exporter requires endpoint")
		}
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exp, err = otlptracehttp.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	// Schemaless so the merge never conflicts with the SDK's default schema.
	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(semconv.ServiceName(cfg.ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	logger.Info("tracing.enabled", "exporter", exporterName)
	return tp.Shutdown, nil
}

// ── Tracing hook ──────────────────────────────────────────────────────────────

// TracingHook opens a span for every pipeline step. The span is carried in
// the context returned by BeforeStep.
type TracingHook struct {
	tracer trace.Tracer
}

// NewTracingHook uses the global tracer provider when tracer is nil.
func NewTracingHook(tracer trace.Tracer) *TracingHook {
	if tracer == nil {
		tracer = otel.Tracer(TracerName)
	}
	return &TracingHook{tracer: tracer}
}

func (h *TracingHook) BeforeStep(ctx context.Context, stepName string, img *core.ImageData) context.Context {
	ctx, span := h.tracer.Start(ctx, "zune.step "+stepName)
	span.SetAttributes(attribute.String("zune.step", stepName))
	if img != nil {
		span.SetAttributes(
			attribute.Int("image.width", img.Meta.Width),
			attribute.Int("image.height", img.Meta.Height),
			attribute.String("image.colorspace", string(img.Meta.ColorSpace)),
		)
	}
	return ctx
}

func (h *TracingHook) AfterStep(ctx context.Context, _ string, _ *core.ImageData, d time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int64("zune.duration_ms", d.Milliseconds()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
