// Package tracing связывает логи, метрики и OTel span-ы одного запуска обмена
// общим trace ID (32 hex символа, совместимо с W3C Trace Context).
//
//	ctx, traceID := tracing.EnsureTraceID(ctx)
//	ctx, span := tracing.StartSpan(ctx, "exchange.receive", tracing.ConnectorAttr("erp"))
//	defer span.End()
package tracing

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type traceIDKey struct{}

var fallbackSeq atomic.Uint64

// GenerateTraceID возвращает случайный trace ID из 32 hex символов.
func GenerateTraceID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		// Источник случайности недоступен: время и счётчик, тоже 32 символа.
		return fmt.Sprintf("%016x%016x", uint64(time.Now().UnixNano()), fallbackSeq.Add(1))
	}
	return hex.EncodeToString(id[:])
}

// WithTraceID кладёт trace ID в контекст, перезаписывая прежний.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}

// TraceIDFromContext возвращает trace ID из контекста или "".
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// EnsureTraceID возвращает trace ID из контекста, а при его отсутствии
// генерирует новый и кладёт в контекст.
func EnsureTraceID(ctx context.Context) (context.Context, string) {
	if id := TraceIDFromContext(ctx); id != "" {
		return ctx, id
	}
	id := GenerateTraceID()
	return WithTraceID(ctx, id), id
}
