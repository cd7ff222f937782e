package config

import (
	"errors"
	"io/fs"
	"os"

	"github.com/Kargones/apk-exchange/internal/constants"
	"github.com/Kargones/apk-exchange/internal/pkg/apperrors"

	"github.com/ilyakaznacheev/cleanenv"
)

// Load загружает конфигурацию из файла BR_CONFIG_PATH.
// Если переменная не задана, читается exchange.yaml в текущем каталоге,
// а при его отсутствии конфигурация собирается только из окружения.
func Load() (*Config, error) {
	path, explicit := os.LookupEnv(constants.EnvConfigPath)
	if !explicit || path == "" {
		return LoadFile(constants.DefaultConfigPath, false)
	}
	return LoadFile(path, true)
}

// LoadFile загружает конфигурацию из path. required=false допускает
// отсутствие файла.
func LoadFile(path string, required bool) (*Config, error) {
	var cfg Config

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := ValidateDocument(raw); err != nil {
			return nil, apperrors.NewAppError(apperrors.ErrConfigParse,
				"файл конфигурации не соответствует схеме", err)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, apperrors.NewAppError(apperrors.ErrConfigParse,
				"не удалось прочитать файл конфигурации", err)
		}
		cfg.Path = path
	case errors.Is(err, fs.ErrNotExist) && !required:
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, apperrors.NewAppError(apperrors.ErrConfigLoad,
				"не удалось прочитать переменные окружения", err)
		}
	default:
		return nil, apperrors.NewAppError(apperrors.ErrConfigLoad,
			"не удалось открыть файл конфигурации", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrConfigValidate, "некорректная конфигурация", err)
	}
	return &cfg, nil
}
