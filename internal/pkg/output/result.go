// Package output форматирует результаты команд в JSON и текст.
// Результат всегда пишется в stdout, логи - в stderr.
package output

// Возможные значения Result.Status.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	// StatusPartial - команда завершилась, но часть объектов не обработана.
	StatusPartial = "partial"
)

// APIVersion - версия формата вывода.
const APIVersion = "v1"

// Result представляет структурированный результат выполнения команды.
type Result struct {
	Status  string `json:"status"`
	Command string `json:"command"`

	// Data - payload конкретной команды.
	Data any `json:"data,omitempty"`

	// Error заполняется только при Status == StatusError.
	Error *ErrorInfo `json:"error,omitempty"`

	Metadata *Metadata `json:"metadata,omitempty"`

	// Summary не сериализуется напрямую: JSONWriter переносит его в Metadata.Summary.
	Summary *SummaryInfo `json:"-"`
}

// ErrorInfo содержит код и описание ошибки.
// ВАЖНО: Message НЕ ДОЛЖЕН содержать секреты!
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Metadata содержит метаданные выполнения команды.
type Metadata struct {
	DurationMs int64        `json:"duration_ms"`
	TraceID    string       `json:"trace_id,omitempty"`
	APIVersion string       `json:"api_version"`
	Summary    *SummaryInfo `json:"summary,omitempty"`
}
