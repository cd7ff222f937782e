package result

import "time"

// Направления обмена.
const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// Статусы сеанса обмена.
const (
	StatusStarted    = "started"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"

	// StatusSkipped - сеанс не выполнялся: файла нет или он заблокирован.
	StatusSkipped = "skipped"
)

// Exchange - итог одного сеанса обмена в одном направлении.
type Exchange struct {
	Connector    string     `json:"connector"`
	Direction    string     `json:"direction"`
	Status       string     `json:"status"`
	MessageID    string     `json:"message_id,omitempty"`
	MessageNo    int64      `json:"message_no"`
	ReceivedNo   int64      `json:"received_no"`
	Confirmation bool       `json:"confirmation"`
	Processing   Processing `json:"processing"`
	Warnings     []string   `json:"warnings,omitempty"`
	Errors       []string   `json:"errors,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   time.Time  `json:"finished_at"`
}

// Duration возвращает длительность сеанса.
func (e Exchange) Duration() time.Duration {
	if e.FinishedAt.IsZero() {
		return 0
	}
	return e.FinishedAt.Sub(e.StartedAt)
}

// Succeeded сообщает, что сеанс завершён без ошибок.
func (e Exchange) Succeeded() bool {
	return (e.Status == StatusCompleted || e.Status == StatusSkipped) && len(e.Errors) == 0 && e.Processing.Success
}

// AllWarnings возвращает предупреждения сеанса и обработки объектов.
func (e Exchange) AllWarnings() []string {
	return concat(e.Warnings, e.Processing.Warnings)
}

// AllErrors возвращает ошибки сеанса и обработки объектов.
func (e Exchange) AllErrors() []string {
	return concat(e.Errors, e.Processing.Errors)
}
