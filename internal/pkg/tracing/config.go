package tracing

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Kargones/apk-exchange/internal/constants"
)

// Ошибки валидации Config.
var (
	ErrTracingEndpointRequired      = errors.New("tracing: при включённом трейсинге нужен endpoint")
	ErrTracingEndpointInvalidFormat = errors.New("tracing: endpoint должен быть http(s) URL с host, например http://jaeger:4318")
	ErrTracingServiceNameRequired   = errors.New("tracing: не задано имя сервиса")
	ErrTracingTimeoutInvalid        = errors.New("tracing: таймаут экспорта должен быть положительным")
	ErrTracingSamplingRateInvalid   = errors.New("tracing: доля сэмплирования должна быть в [0, 1]")
)

// Config - настройки экспорта span-ов обмена по OTLP HTTP.
type Config struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	Version     string
	Environment string
	// Insecure включает HTTP без TLS. Для endpoint со схемой http включается само.
	Insecure     bool
	Timeout      time.Duration
	SamplingRate float64
}

// Validate проверяет настройки и возвращает все найденные ошибки сразу.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.Endpoint == "" {
		errs = append(errs, ErrTracingEndpointRequired)
	} else if u, err := url.Parse(c.Endpoint); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ErrTracingEndpointInvalidFormat)
	}
	if c.ServiceName == "" {
		errs = append(errs, ErrTracingServiceNameRequired)
	}
	if c.Timeout <= 0 {
		errs = append(errs, ErrTracingTimeoutInvalid)
	}
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		errs = append(errs, fmt.Errorf("%w: %g", ErrTracingSamplingRateInvalid, c.SamplingRate))
	}
	return errors.Join(errs...)
}

// DefaultConfig возвращает выключенный трейсинг с полным сэмплированием.
func DefaultConfig() Config {
	return Config{
		ServiceName:  constants.AppName,
		Version:      constants.Version,
		Environment:  "production",
		Timeout:      5 * time.Second,
		SamplingRate: 1,
	}
}
