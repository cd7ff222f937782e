package metrics

import "context"

type collectorKey struct{}

// WithCollector возвращает context с коллектором метрик команды.
func WithCollector(ctx context.Context, c Collector) context.Context {
	return context.WithValue(ctx, collectorKey{}, c)
}

// CollectorFromContext извлекает коллектор из context.
// Если коллектор не установлен, возвращается NopCollector.
func CollectorFromContext(ctx context.Context) Collector {
	if ctx != nil {
		if c, ok := ctx.Value(collectorKey{}).(Collector); ok && c != nil {
			return c
		}
	}
	return NewNopCollector()
}
