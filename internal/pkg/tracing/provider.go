package tracing

import (
	"context"
	"net/url"

	"github.com/Kargones/apk-exchange/internal/pkg/logging"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// ShutdownFunc сбрасывает накопленные span-ы и останавливает экспорт.
type ShutdownFunc func(context.Context) error

// NopShutdown - ShutdownFunc выключенного трейсинга.
func NopShutdown(context.Context) error { return nil }

// NewTracerProvider устанавливает глобальный TracerProvider с экспортом
// span-ов обмена по OTLP HTTP. Выключенный трейсинг даёт nop shutdown,
// а span-ы остаются no-op.
func NewTracerProvider(cfg Config, logger logging.Logger) (ShutdownFunc, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if !cfg.Enabled {
		logger.Debug("Трейсинг выключен")
		return NopShutdown, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}
	exporter, err := otlptracehttp.New(context.Background(), exporterOptions(cfg)...)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SamplingRate)),
	)
	otel.SetTracerProvider(tp)

	logger.Info("Трейсинг обмена включён",
		"endpoint", cfg.Endpoint,
		"service_name", cfg.ServiceName,
		"sampling_rate", cfg.SamplingRate,
	)
	return tp.Shutdown, nil
}

// newResource описывает сервис. Атрибуты без schema URL, чтобы не
// конфликтовать с resource.Default().
func newResource(cfg Config) (*resource.Resource, error) {
	return resource.Merge(resource.Default(), resource.NewSchemaless(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.Version),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
}

// exporterOptions переводит URL endpoint в опции экспортёра: WithEndpoint
// ожидает host:port без схемы.
func exporterOptions(cfg Config) []otlptracehttp.Option {
	host, insecure := cfg.Endpoint, cfg.Insecure
	if u, err := url.Parse(cfg.Endpoint); err == nil && u.Host != "" {
		host = u.Host
		insecure = insecure || u.Scheme == "http"
	}
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(host),
		otlptracehttp.WithTimeout(cfg.Timeout),
	}
	if insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return opts
}

// ContextWithOTelTraceID делает trace ID запуска родителем span-ов обмена,
// чтобы trace_id в логах совпадал с трассой. Невалидный ID игнорируется.
func ContextWithOTelTraceID(ctx context.Context, traceIDHex string) context.Context {
	traceID, err := trace.TraceIDFromHex(traceIDHex)
	if err != nil {
		return ctx
	}
	return trace.ContextWithRemoteSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	}))
}

// newSampler: remote parent всегда помечен sampled, поэтому доля
// применяется и к нему.
func newSampler(rate float64) sdktrace.Sampler {
	ratio := sdktrace.TraceIDRatioBased(rate)
	return sdktrace.ParentBased(ratio, sdktrace.WithRemoteParentSampled(ratio))
}
