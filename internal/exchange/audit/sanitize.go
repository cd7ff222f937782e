package audit

import (
	"regexp"
	"strconv"

	"github.com/Kargones/apk-exchange/internal/pkg/urlutil"
)

const (
	// MaxMessageLength - максимальная длина одного сообщения в рунах.
	MaxMessageLength = 500

	// MaxMessages - максимальное число сообщений в записи журнала.
	MaxMessages = 50
)

const truncatedSuffix = "..."

var secretPair = regexp.MustCompile(`(?i)\b(password|passwd|pwd|token|secret|api[_-]?key|key)(\s*[=:]\s*)("[^"]*"|'[^']*'|[^\s,;&]+)`)

// SanitizeMessages готовит сообщения к записи в журнал: скрывает секреты,
// обрезает длинные сообщения и ограничивает их число.
// Последним элементом добавляется отметка о числе отброшенных сообщений.
func SanitizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}
	limit := len(messages)
	dropped := 0
	if limit > MaxMessages {
		dropped = limit - (MaxMessages - 1)
		limit = MaxMessages - 1
	}

	out := make([]string, 0, limit+1)
	for _, m := range messages[:limit] {
		out = append(out, truncate(redact(m)))
	}
	if dropped > 0 {
		out = append(out, "... и ещё "+strconv.Itoa(dropped))
	}
	return out
}

func redact(s string) string {
	s = urlutil.MaskCredentials(s)
	return secretPair.ReplaceAllString(s, "${1}${2}***")
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxMessageLength {
		return s
	}
	return string(runes[:MaxMessageLength-len(truncatedSuffix)]) + truncatedSuffix
}
