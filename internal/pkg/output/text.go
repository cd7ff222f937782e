package output

import (
	"encoding/json"
	"fmt"
	"io"
)

const summaryDivider = "══════════════════════════════════════════════════════"

// TextRenderer реализуется данными команды, у которых есть собственное
// текстовое представление. Остальные данные выводятся как JSON.
type TextRenderer interface {
	WriteText(w io.Writer) error
}

// TextWriter форматирует Result в человекочитаемый текст.
type TextWriter struct{}

// NewTextWriter создаёт новый TextWriter.
func NewTextWriter() *TextWriter {
	return &TextWriter{}
}

// stickyWriter запоминает первую ошибку записи, последующие вызовы ничего не делают.
type stickyWriter struct {
	w   io.Writer
	err error
}

func (s *stickyWriter) printf(format string, args ...any) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(s.w, format, args...)
}

// Write форматирует result в текст и записывает в w.
func (t *TextWriter) Write(w io.Writer, result *Result) error {
	if result == nil {
		return nil
	}
	sw := &stickyWriter{w: w}

	sw.printf("%s: %s\n", result.Command, result.Status)
	if result.Error != nil {
		sw.printf("Ошибка [%s]: %s\n", result.Error.Code, result.Error.Message)
	}
	if sw.err != nil {
		return sw.err
	}

	switch data := result.Data.(type) {
	case nil:
	case TextRenderer:
		if err := data.WriteText(w); err != nil {
			return err
		}
	default:
		raw, err := json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("не удалось сериализовать Data: %w", err)
		}
		sw.printf("Data: %s\n", raw)
	}

	// Для ошибок сводка не выводится.
	if result.Status != StatusError {
		writeSummary(sw, result)
	}
	return sw.err
}

func writeSummary(sw *stickyWriter, result *Result) {
	sw.printf("\n%s\n📊 Сводка обмена\n%s\n", summaryDivider, summaryDivider)

	if result.Metadata != nil && result.Metadata.DurationMs > 0 {
		sw.printf("⏱️  Время выполнения: %s\n", formatDuration(result.Metadata.DurationMs))
	}
	if s := result.Summary; s != nil {
		for _, m := range s.KeyMetrics {
			if m.Unit != "" {
				sw.printf("📈 %s: %s %s\n", m.Name, m.Value, m.Unit)
			} else {
				sw.printf("📈 %s: %s\n", m.Name, m.Value)
			}
		}
		if s.WarningsCount > 0 {
			sw.printf("\n⚠️  Предупреждений: %d\n", s.WarningsCount)
			for _, warn := range s.Warnings {
				sw.printf("   • %s\n", warn)
			}
			if hidden := s.WarningsCount - len(s.Warnings); hidden > 0 {
				sw.printf("   … и ещё %d\n", hidden)
			}
		}
	}
	sw.printf("%s\n", summaryDivider)
}

// formatDuration форматирует длительность в мс, секундах или минутах.
func formatDuration(ms int64) string {
	switch {
	case ms < 1000:
		return fmt.Sprintf("%dмс", ms)
	case ms < 60_000:
		return fmt.Sprintf("%.1fс", float64(ms)/1000)
	default:
		sec := ms / 1000
		return fmt.Sprintf("%dм %dс", sec/60, sec%60)
	}
}
