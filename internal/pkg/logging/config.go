package logging

import (
	"errors"
	"fmt"
	"slices"
)

// Форматы записей.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Уровни логирования.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Куда пишутся логи. stdout не поддерживается: он занят результатом команды.
const (
	OutputStderr = "stderr"
	OutputFile   = "file"
)

// Значения по умолчанию. Сеанс обмена по расписанию пишет немного записей,
// поэтому файлы ротируются редко и хранятся две недели.
const (
	DefaultLevel      = LevelInfo
	DefaultFormat     = FormatText
	DefaultOutput     = OutputStderr
	DefaultFilePath   = "/var/log/apk-exchange/exchange.log"
	DefaultMaxSize    = 50 // МБ
	DefaultMaxBackups = 5
	DefaultMaxAge     = 14 // дней
	DefaultCompress   = true
)

// Config - параметры логгера.
type Config struct {
	Format string
	Level  string
	Output string

	// FilePath, MaxSize (МБ), MaxBackups, MaxAge (дни) и Compress
	// используются только при Output == "file" и передаются в lumberjack.
	FilePath   string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

// DefaultConfig возвращает Config со значениями по умолчанию.
func DefaultConfig() Config {
	return Config{
		Level:      DefaultLevel,
		Format:     DefaultFormat,
		Output:     DefaultOutput,
		FilePath:   DefaultFilePath,
		MaxSize:    DefaultMaxSize,
		MaxBackups: DefaultMaxBackups,
		MaxAge:     DefaultMaxAge,
		Compress:   DefaultCompress,
	}
}

// Validate проверяет уровень, формат и вывод.
func (c Config) Validate() error {
	var errs []error
	levels := []string{LevelDebug, LevelInfo, LevelWarn, LevelError}
	if !slices.Contains(levels, c.Level) {
		errs = append(errs, fmt.Errorf("logging: неизвестный уровень %q", c.Level))
	}
	if c.Format != FormatJSON && c.Format != FormatText {
		errs = append(errs, fmt.Errorf("logging: неизвестный формат %q", c.Format))
	}
	switch c.Output {
	case OutputStderr:
	case OutputFile:
		if c.FilePath == "" {
			errs = append(errs, errors.New("logging: filePath обязателен при output=file"))
		}
	default:
		errs = append(errs, fmt.Errorf("logging: неизвестный вывод %q", c.Output))
	}
	return errors.Join(errs...)
}
