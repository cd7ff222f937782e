package config

import (
	"time"

	"github.com/Kargones/apk-exchange/internal/pkg/metrics"
)

// MetricsConfig - секция metrics: отправка метрик сеансов в Pushgateway.
type MetricsConfig struct {
	Enabled        bool          `yaml:"enabled" env:"BR_METRICS_ENABLED" env-default:"false"`
	PushgatewayURL string        `yaml:"pushgatewayUrl" env:"BR_METRICS_PUSHGATEWAY_URL"`
	JobName        string        `yaml:"jobName" env:"BR_METRICS_JOB_NAME" env-default:"apk-exchange"`
	Timeout        time.Duration `yaml:"timeout" env:"BR_METRICS_TIMEOUT" env-default:"10s"`
	// InstanceLabel по умолчанию - hostname.
	InstanceLabel string `yaml:"instanceLabel" env:"BR_METRICS_INSTANCE"`
}

// ToMetrics преобразует секцию в metrics.Config.
func (c MetricsConfig) ToMetrics() metrics.Config {
	return metrics.Config(c)
}

func validateMetricsConfig(mc *MetricsConfig) error {
	cfg := mc.ToMetrics()
	return cfg.Validate()
}
