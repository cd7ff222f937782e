package config

import (
	"github.com/Kargones/apk-exchange/internal/pkg/logging"
)

// LoggingConfig содержит настройки для логирования.
type LoggingConfig struct {
	// Level - уровень логирования (debug, info, warn, error)
	Level string `yaml:"level" env:"BR_LOG_LEVEL" env-default:"info"`

	// Format - формат логов (json, text)
	Format string `yaml:"format" env:"BR_LOG_FORMAT" env-default:"text"`

	// Output - вывод логов (stderr, file)
	Output string `yaml:"output" env:"BR_LOG_OUTPUT" env-default:"stderr"`

	// FilePath - путь к файлу логов (если output=file)
	FilePath string `yaml:"filePath" env:"BR_LOG_FILE_PATH" env-default:"/var/log/apk-exchange/exchange.log"`

	// MaxSize - максимальный размер файла лога в MB
	MaxSize int `yaml:"maxSize" env:"BR_LOG_MAX_SIZE" env-default:"50"`

	// MaxBackups - максимальное количество backup файлов
	MaxBackups int `yaml:"maxBackups" env:"BR_LOG_MAX_BACKUPS" env-default:"5"`

	// MaxAge - максимальный возраст backup файлов в днях
	MaxAge int `yaml:"maxAge" env:"BR_LOG_MAX_AGE" env-default:"14"`

	// Compress - сжимать ли backup файлы
	// TODO: bool с env-default:"true" - значение compress: false из YAML
	// перезаписывается env-default, так как false совпадает с zero value.
	// Отключить сжатие сейчас можно только через BR_LOG_COMPRESS=false.
	Compress bool `yaml:"compress" env:"BR_LOG_COMPRESS" env-default:"true"`
}

// ToLogging преобразует настройки в logging.Config.
func (c LoggingConfig) ToLogging() logging.Config {
	return logging.Config{
		Level:      c.Level,
		Format:     c.Format,
		Output:     c.Output,
		FilePath:   c.FilePath,
		MaxSize:    c.MaxSize,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAge,
		Compress:   c.Compress,
	}
}

func validateLoggingConfig(lc *LoggingConfig) error {
	return lc.ToLogging().Validate()
}
