package metrics

import (
	"context"
	"time"
)

// NopCollector - no-op реализация Collector.
type NopCollector struct{}

// NewNopCollector создаёт NopCollector.
func NewNopCollector() *NopCollector {
	return &NopCollector{}
}

func (c *NopCollector) RecordCommandStart(string, string) {}

func (c *NopCollector) RecordCommandEnd(string, string, time.Duration, bool) {}

func (c *NopCollector) RecordExchange(string, string, string, time.Duration) {}

func (c *NopCollector) RecordObjects(string, string, int) {}

// Push всегда возвращает nil.
func (c *NopCollector) Push(context.Context) error { return nil }
