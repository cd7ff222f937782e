// Package config загружает конфигурацию apk-exchange из YAML-файла и
// переменных окружения BR_*. Переменные окружения переопределяют файл.
//
// Пример файла:
//
//	database:
//	  driver: sqlite
//	  path: /var/lib/apk-exchange/exchange.db
//	exchange:
//	  timezone: Europe/Moscow
//	  connectors:
//	    - name: erp
//	      ownNode: APK
//	      peerNode: ERP
//	      exchangePlan: СинхронизацияДанныхЧерезУниверсальныйФормат
//	      sendingVersions: ["1.11", "1.10"]
//	      transport:
//	        type: ftp
//	        host: ftp.example.local
//	        user: exchange
//	        passwordEnv: BR_ERP_FTP_PASSWORD
//	        directory: /exchange/erp
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Kargones/apk-exchange/internal/constants"
)

// Config - конфигурация приложения.
type Config struct {
	// Command - имя выполняемой команды.
	Command string `yaml:"-" env:"BR_COMMAND"`

	// Connector - подключение для команд обмена. Пусто - все подключения.
	Connector string `yaml:"-" env:"BR_CONNECTOR"`

	// OutputFormat - формат вывода результата команды (text, json).
	OutputFormat string `yaml:"-" env:"BR_OUTPUT_FORMAT" env-default:"text"`

	// CleanupDays - срок хранения журнала обмена для nr-exchange-cleanup.
	CleanupDays int `yaml:"cleanupDays" env:"BR_CLEANUP_DAYS" env-default:"30"`

	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Alerting AlertingConfig `yaml:"alerting"`
	Database DatabaseConfig `yaml:"database"`
	Exchange ExchangeConfig `yaml:"exchange"`

	// Path - файл, из которого прочитана конфигурация. Пусто, если файла нет.
	Path string `yaml:"-"`
}

// Validate проверяет секции конфигурации. Все найденные ошибки
// возвращаются вместе.
func (c *Config) Validate() error {
	var errs []error
	if err := validateLoggingConfig(&c.Logging); err != nil {
		errs = append(errs, err)
	}
	if err := validateMetricsConfig(&c.Metrics); err != nil {
		errs = append(errs, err)
	}
	if err := validateTracingConfig(&c.Tracing); err != nil {
		errs = append(errs, err)
	}
	if err := validateAlertingConfig(&c.Alerting); err != nil {
		errs = append(errs, err)
	}
	if err := validateDatabaseConfig(&c.Database); err != nil {
		errs = append(errs, err)
	}
	if c.CleanupDays <= 0 {
		errs = append(errs, fmt.Errorf("cleanupDays должен быть положительным, получено %d", c.CleanupDays))
	}
	if f := strings.ToLower(c.OutputFormat); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("неизвестный формат вывода %q", c.OutputFormat))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.Connectors(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// CommandOrHelp возвращает команду, пустая команда заменяется help.
func (c *Config) CommandOrHelp() string {
	if c.Command == "" {
		return constants.ActHelp
	}
	return c.Command
}
