package alerting

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Kargones/apk-exchange/internal/pkg/urlutil"
)

// Значения по умолчанию.
const (
	DefaultRateLimitWindow = 5 * time.Minute
	DefaultWebhookTimeout  = 10 * time.Second
	DefaultMaxRetries      = 3
)

// Ошибки валидации настроек.
var (
	ErrWebhookURLRequired   = errors.New("alerting: для webhook нужен хотя бы один адрес")
	ErrWebhookURLInvalid    = errors.New("alerting: адрес webhook должен быть http(s) URL с host")
	ErrWebhookHeaderInvalid = errors.New("alerting: заголовок webhook содержит управляющие символы")
	ErrNegativeRetries      = errors.New("alerting: число повторов не может быть отрицательным")
)

// Config - настройки уведомлений о сбоях обмена.
type Config struct {
	Enabled bool
	// RateLimitWindow - пауза между одинаковыми алертами одного подключения.
	RateLimitWindow time.Duration
	Webhook         WebhookConfig
}

// WebhookConfig - канал webhook: JSON POST на каждый адрес из URLs.
type WebhookConfig struct {
	Enabled bool
	URLs    []string
	// Headers, например Authorization, добавляются к каждому запросу.
	Headers    map[string]string
	Timeout    time.Duration
	MaxRetries int
}

// DefaultConfig возвращает выключенный алертинг со значениями по умолчанию.
func DefaultConfig() Config {
	return Config{
		RateLimitWindow: DefaultRateLimitWindow,
		Webhook:         WebhookConfig{Timeout: DefaultWebhookTimeout, MaxRetries: DefaultMaxRetries},
	}
}

// Validate проверяет включённые каналы.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	return c.Webhook.Validate()
}

// Validate проверяет адреса, заголовки и число повторов включённого webhook.
func (w *WebhookConfig) Validate() error {
	if !w.Enabled {
		return nil
	}
	if len(w.URLs) == 0 {
		return ErrWebhookURLRequired
	}
	for _, raw := range w.URLs {
		if u, err := url.Parse(raw); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("%w: %s", ErrWebhookURLInvalid, urlutil.MaskURL(raw))
		}
	}
	for k, v := range w.Headers {
		if hasControlChars(k) || hasControlChars(v) {
			return fmt.Errorf("%w: %s", ErrWebhookHeaderInvalid, k)
		}
	}
	if w.MaxRetries < 0 {
		return ErrNegativeRetries
	}
	return nil
}

// hasControlChars: в заголовке допустим только HTAB из управляющих символов.
func hasControlChars(s string) bool {
	return strings.ContainsFunc(s, func(r rune) bool {
		return r != '\t' && (r < 0x20 || r == 0x7f)
	})
}
