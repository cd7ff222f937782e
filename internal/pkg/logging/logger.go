// Package logging предоставляет интерфейс и реализации для структурированного логирования.
package logging

// Ключи атрибутов, общие для всех записей обмена.
// Используйте их вместо строковых литералов, чтобы логи разных
// компонентов можно было фильтровать по одному полю.
const (
	KeyConnector = "connector"
	KeyDirection = "direction"
	KeyMessageID = "message_id"
	KeyMessageNo = "message_no"
	KeyObject    = "object_type"
	KeyRef       = "ref"
	KeyTraceID   = "trace_id"
	KeyError     = "error"
)

// Logger определяет интерфейс для структурированного логирования.
//
//	logger.Info("Сообщение обмена разобрано", logging.KeyMessageID, id, "objects", n)
//
// ВАЖНО: Logger пишет ТОЛЬКО в stderr (или файл), никогда в stdout.
// stdout зарезервирован для результата команды.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With возвращает новый Logger с добавленными атрибутами.
	With(args ...any) Logger
}

// ForExchange возвращает логгер с атрибутами подключения и направления обмена.
func ForExchange(l Logger, connector, direction string) Logger {
	if l == nil {
		l = NewNopLogger()
	}
	return l.With(KeyConnector, connector, KeyDirection, direction)
}
