package config

import (
	"time"

	"github.com/Kargones/apk-exchange/internal/pkg/alerting"
)

// AlertingConfig содержит настройки уведомлений о сбоях обмена.
type AlertingConfig struct {
	Enabled bool `yaml:"enabled" env:"BR_ALERTING_ENABLED" env-default:"false"`

	// RateLimitWindow - минимальный интервал между алертами с одинаковым кодом и подключением.
	RateLimitWindow time.Duration `yaml:"rateLimitWindow" env:"BR_ALERTING_RATE_LIMIT_WINDOW" env-default:"5m"`

	Webhook WebhookConfig `yaml:"webhook"`
}

// WebhookConfig - параметры webhook канала.
type WebhookConfig struct {
	Enabled bool     `yaml:"enabled" env:"BR_ALERTING_WEBHOOK_ENABLED" env-default:"false"`
	URLs    []string `yaml:"urls" env:"BR_ALERTING_WEBHOOK_URLS" env-separator:","`

	// Headers задаются в окружении как "Имя:значение,Имя2:значение2".
	Headers map[string]string `yaml:"headers" env:"BR_ALERTING_WEBHOOK_HEADERS"`

	Timeout    time.Duration `yaml:"timeout" env:"BR_ALERTING_WEBHOOK_TIMEOUT" env-default:"10s"`
	MaxRetries int           `yaml:"maxRetries" env:"BR_ALERTING_WEBHOOK_MAX_RETRIES" env-default:"3"`
}

// ToAlerting преобразует настройки в alerting.Config.
func (c AlertingConfig) ToAlerting() alerting.Config {
	return alerting.Config{
		Enabled:         c.Enabled,
		RateLimitWindow: c.RateLimitWindow,
		Webhook: alerting.WebhookConfig{
			Enabled:    c.Webhook.Enabled,
			URLs:       c.Webhook.URLs,
			Headers:    c.Webhook.Headers,
			Timeout:    c.Webhook.Timeout,
			MaxRetries: c.Webhook.MaxRetries,
		},
	}
}

func validateAlertingConfig(ac *AlertingConfig) error {
	cfg := ac.ToAlerting()
	return cfg.Validate()
}
