// Package metrics собирает метрики команд и сеансов обмена и отправляет их
// в Prometheus Pushgateway. При отключённых метриках используется NopCollector.
package metrics

import (
	"context"
	"time"

	"github.com/Kargones/apk-exchange/internal/pkg/logging"
)

// Исходы обработки объектов для метрики objects_total.
const (
	OutcomeCreated  = "created"
	OutcomeUpdated  = "updated"
	OutcomeDeleted  = "deleted"
	OutcomeFailed   = "failed"
	OutcomeUnmapped = "unmapped"
	OutcomeSent     = "sent"
)

// Collector определяет интерфейс для сбора метрик.
type Collector interface {
	// RecordCommandStart отмечает начало команды. Для CLI достаточно debug-записи.
	RecordCommandStart(command, connector string)

	// RecordCommandEnd записывает завершение команды с результатом.
	RecordCommandEnd(command, connector string, duration time.Duration, success bool)

	// RecordExchange записывает завершение сеанса обмена в одном направлении.
	RecordExchange(connector, direction, status string, duration time.Duration)

	// RecordObjects увеличивает счётчик объектов с указанным исходом.
	RecordObjects(connector, outcome string, count int)

	// Push отправляет метрики в Pushgateway. Ошибки отправки только логируются,
	// метод всегда возвращает nil.
	Push(ctx context.Context) error
}

// NewCollector возвращает NopCollector при отключённых метриках
// и PrometheusCollector в остальных случаях.
func NewCollector(config Config, logger logging.Logger) (Collector, error) {
	if !config.Enabled {
		return NewNopCollector(), nil
	}
	return NewPrometheusCollector(config, logger)
}
