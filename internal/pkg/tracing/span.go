package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName - имя инструментирующей библиотеки для всех span-ов обмена.
const TracerName = "github.com/Kargones/apk-exchange"

// StartSpan открывает span через глобальный TracerProvider.
// Без инициализированного провайдера span будет no-op.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan фиксирует ошибку (если есть) и закрывает span.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// ConnectorAttr - атрибут имени подключения обмена.
func ConnectorAttr(name string) attribute.KeyValue {
	return attribute.String("exchange.connector", name)
}

// DirectionAttr - атрибут направления обмена (incoming/outgoing).
func DirectionAttr(direction string) attribute.KeyValue {
	return attribute.String("exchange.direction", direction)
}

// MessageNoAttr - атрибут номера сообщения.
func MessageNoAttr(no int64) attribute.KeyValue {
	return attribute.Int64("exchange.message_no", no)
}

// ObjectsAttr - атрибут количества объектов в сообщении.
func ObjectsAttr(n int) attribute.KeyValue {
	return attribute.Int("exchange.objects", n)
}
