package alerting

import (
	"github.com/Kargones/apk-exchange/internal/pkg/logging"
)

// NewAlerter создаёт Alerter по конфигурации.
// При выключенном алертинге или без включённого webhook возвращает NopAlerter.
func NewAlerter(config Config, logger logging.Logger) (Alerter, error) {
	if !config.Enabled {
		return NewNopAlerter(), nil
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if !config.Webhook.Enabled {
		logger.Warn("alerting включён, но webhook канал не настроен, алерты отправляться не будут")
		return NewNopAlerter(), nil
	}

	window := config.RateLimitWindow
	if window == 0 {
		window = DefaultRateLimitWindow
	}
	return NewWebhookAlerter(config.Webhook, NewRateLimiter(window), logger), nil
}
