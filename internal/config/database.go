package config

import (
	"fmt"
	"time"

	"github.com/Kargones/apk-exchange/internal/adapter/store"
)

// DatabaseConfig - настройки базы данных обмена.
type DatabaseConfig struct {
	// Driver - "sqlite" или "sqlserver".
	Driver string `yaml:"driver" env:"BR_DB_DRIVER" env-default:"sqlite"`

	// Path - файл SQLite.
	Path string `yaml:"path" env:"BR_DB_PATH" env-default:"apk-exchange.db"`

	Server   string `yaml:"server" env:"BR_DB_SERVER"`
	Port     int    `yaml:"port" env:"BR_DB_PORT"`
	User     string `yaml:"user" env:"BR_DB_USER"`
	Password string `yaml:"password" env:"BR_DB_PASSWORD"`
	Name     string `yaml:"name" env:"BR_DB_NAME"`
	Encrypt  bool   `yaml:"encrypt" env:"BR_DB_ENCRYPT"`

	Timeout      time.Duration `yaml:"timeout" env:"BR_DB_TIMEOUT" env-default:"30s"`
	MaxOpenConns int           `yaml:"maxOpenConns" env:"BR_DB_MAX_OPEN_CONNS" env-default:"4"`
}

// ToStore преобразует настройки в store.Config.
func (c DatabaseConfig) ToStore() store.Config {
	return store.Config{
		Driver:       c.Driver,
		Path:         c.Path,
		Server:       c.Server,
		Port:         c.Port,
		User:         c.User,
		Password:     c.Password,
		Database:     c.Name,
		Encrypt:      c.Encrypt,
		Timeout:      c.Timeout,
		MaxOpenConns: c.MaxOpenConns,
	}
}

func validateDatabaseConfig(dc *DatabaseConfig) error {
	switch dc.Driver {
	case store.DriverSQLite:
		if dc.Path == "" {
			return fmt.Errorf("database: path обязателен для sqlite")
		}
	case store.DriverSQLServer:
		if dc.Server == "" || dc.Name == "" {
			return fmt.Errorf("database: server и name обязательны для sqlserver")
		}
	default:
		return fmt.Errorf("database: неизвестный драйвер %q", dc.Driver)
	}
	return nil
}
