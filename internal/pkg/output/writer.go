package output

import (
	"io"
	"strings"
)

// FormatJSON и FormatText - поддерживаемые форматы вывода (BR_OUTPUT_FORMAT).
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Writer форматирует результат команды.
type Writer interface {
	Write(w io.Writer, result *Result) error
}

// NewWriter создаёт Writer по имени формата без учёта регистра.
// Неизвестный формат трактуется как текст.
func NewWriter(format string) Writer {
	if strings.EqualFold(format, FormatJSON) {
		return NewJSONWriter()
	}
	return NewTextWriter()
}
