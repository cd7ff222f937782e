// Package alerting отправляет уведомления о сбоях обмена во внешние системы.
// Единственный канал доставки - HTTP webhook, с ограничением частоты по коду ошибки.
package alerting

import (
	"context"
	"time"
)

// Severity определяет уровень критичности алерта.
type Severity int

const (
	// SeverityInfo - информационный алерт.
	SeverityInfo Severity = iota
	// SeverityWarning - обмен завершён частично.
	SeverityWarning
	// SeverityCritical - обмен с узлом не выполнен.
	SeverityCritical
)

// ChannelWebhook - имя webhook канала в логах.
const ChannelWebhook = "webhook"

// String возвращает строковое представление Severity.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Alert описывает событие обмена, о котором нужно сообщить.
type Alert struct {
	// ErrorCode - код ошибки, используется для ограничения частоты.
	ErrorCode string

	Message   string
	TraceID   string
	Timestamp time.Time

	// Command - команда CLI, в рамках которой произошёл сбой.
	Command string

	// Connector - имя подключения к узлу-корреспонденту.
	Connector string

	// Direction - направление сеанса (incoming/outgoing), если сеанс начался.
	Direction string

	Severity Severity
}

// Alerter отправляет алерты.
//
// Send не возвращает ошибок доставки: они только логируются,
// а результат команды обмена от алертинга не зависит.
type Alerter interface {
	Send(ctx context.Context, alert Alert) error
}

// NopAlerter игнорирует все алерты.
type NopAlerter struct{}

// NewNopAlerter создаёт Alerter, который ничего не отправляет.
func NewNopAlerter() Alerter {
	return &NopAlerter{}
}

// Send ничего не делает.
func (n *NopAlerter) Send(_ context.Context, _ Alert) error {
	return nil
}
