package config

import (
	"time"

	"github.com/Kargones/apk-exchange/internal/constants"
	"github.com/Kargones/apk-exchange/internal/pkg/tracing"
)

// TracingConfig - секция tracing: экспорт span-ов сеансов обмена по OTLP HTTP.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" env:"BR_TRACING_ENABLED" env-default:"false"`
	Endpoint    string `yaml:"endpoint" env:"BR_TRACING_ENDPOINT"`
	ServiceName string `yaml:"serviceName" env:"BR_TRACING_SERVICE_NAME" env-default:"apk-exchange"`
	Environment string `yaml:"environment" env:"BR_TRACING_ENVIRONMENT" env-default:"production"`
	// Insecure нужен только для https endpoint с самоподписанным сертификатом
	// за TLS-терминатором; для http он включается сам.
	Insecure     bool          `yaml:"insecure" env:"BR_TRACING_INSECURE" env-default:"false"`
	Timeout      time.Duration `yaml:"timeout" env:"BR_TRACING_TIMEOUT" env-default:"5s"`
	SamplingRate float64       `yaml:"samplingRate" env:"BR_TRACING_SAMPLING_RATE" env-default:"1.0"`
}

// ToTracing преобразует секцию в tracing.Config с версией сборки.
func (c TracingConfig) ToTracing() tracing.Config {
	return tracing.Config{
		Enabled:      c.Enabled,
		Endpoint:     c.Endpoint,
		ServiceName:  c.ServiceName,
		Version:      constants.Version,
		Environment:  c.Environment,
		Insecure:     c.Insecure,
		Timeout:      c.Timeout,
		SamplingRate: c.SamplingRate,
	}
}

func validateTracingConfig(tc *TracingConfig) error {
	cfg := tc.ToTracing()
	return cfg.Validate()
}
