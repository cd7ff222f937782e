package metrics

import (
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/Kargones/apk-exchange/internal/constants"
)

// DefaultPushTimeout - таймаут отправки в Pushgateway по умолчанию.
const DefaultPushTimeout = 10 * time.Second

// Ошибки валидации Config.
var (
	ErrPushgatewayURLRequired = errors.New("metrics: при включённых метриках нужен адрес pushgateway")
	ErrPushgatewayURLInvalid  = errors.New("metrics: адрес pushgateway должен быть абсолютным http(s) URL")
	ErrJobNameRequired        = errors.New("metrics: не задано имя job")
	ErrJobNameInvalid         = errors.New("metrics: имя job не может содержать '/'")
	ErrInvalidTimeout         = errors.New("metrics: таймаут отправки должен быть положительным")
)

// Config - настройки сбора метрик сеансов обмена и их отправки в Pushgateway.
type Config struct {
	Enabled        bool
	PushgatewayURL string
	// JobName попадает в путь Pushgateway: /metrics/job/<JobName>.
	JobName string
	Timeout time.Duration
	// InstanceLabel переопределяет label instance, по умолчанию hostname.
	InstanceLabel string
}

// Validate проверяет настройки. Выключенные метрики не проверяются.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	switch u, err := url.Parse(c.PushgatewayURL); {
	case c.PushgatewayURL == "":
		errs = append(errs, ErrPushgatewayURLRequired)
	case err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "":
		errs = append(errs, ErrPushgatewayURLInvalid)
	}
	switch {
	case c.JobName == "":
		errs = append(errs, ErrJobNameRequired)
	case strings.Contains(c.JobName, "/"):
		errs = append(errs, ErrJobNameInvalid)
	}
	if c.Timeout <= 0 {
		errs = append(errs, ErrInvalidTimeout)
	}
	return errors.Join(errs...)
}

// DefaultConfig возвращает выключенные метрики с job по имени приложения.
func DefaultConfig() Config {
	return Config{JobName: constants.AppName, Timeout: DefaultPushTimeout}
}
