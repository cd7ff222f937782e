// Package version реализует NR-команду nr-version для вывода информации о версии приложения.
package version

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/Kargones/apk-exchange/internal/command"
	"github.com/Kargones/apk-exchange/internal/config"
	"github.com/Kargones/apk-exchange/internal/constants"
	"github.com/Kargones/apk-exchange/internal/exchange/message"
	"github.com/Kargones/apk-exchange/internal/pkg/output"
	"github.com/Kargones/apk-exchange/internal/pkg/tracing"
)

// RegisterCmd регистрирует команду в реестре.
func RegisterCmd() error {
	return command.Register(&VersionHandler{})
}

// VersionData содержит информацию о версии приложения.
type VersionData struct {
	// Version - полная версия приложения.
	Version string `json:"version"`

	// GoVersion - версия Go, использованная при сборке.
	GoVersion string `json:"go_version"`

	// Commit - хеш коммита на момент сборки.
	Commit string `json:"commit"`

	// Format - формат сообщений обмена и версия по умолчанию.
	Format               string `json:"format"`
	DefaultFormatVersion string `json:"default_format_version"`
}

// writeText выводит информацию о версии в человекочитаемом формате.
func (d *VersionData) writeText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s version %s\n  Go:     %s\n  Commit: %s\n  Format: %s %s\n",
		constants.AppName, d.Version, d.GoVersion, d.Commit, d.Format, d.DefaultFormatVersion)
	return err
}

// buildVersionData создаёт VersionData с fallback значениями.
// Если version пустой - используется "dev", если commit пустой - "unknown".
func buildVersionData(version, commit string) *VersionData {
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	return &VersionData{
		Version:              version,
		GoVersion:            runtime.Version(),
		Commit:               commit,
		Format:               message.FormatEnterpriseData,
		DefaultFormatVersion: message.DefaultFormatVersion,
	}
}

// VersionHandler обрабатывает команду nr-version.
type VersionHandler struct{}

// Name возвращает имя команды.
func (h *VersionHandler) Name() string {
	return constants.ActVersion
}

// Description возвращает описание команды для вывода в help.
func (h *VersionHandler) Description() string {
	return "Вывод информации о версии приложения"
}

// Execute собирает данные о версии и выводит результат.
func (h *VersionHandler) Execute(ctx context.Context, cfg *config.Config) error {
	start := time.Now()

	versionData := buildVersionData(constants.Version, constants.PreCommitHash)

	_, traceID := tracing.EnsureTraceID(ctx)

	format := os.Getenv(constants.EnvOutputFormat)
	if cfg != nil {
		format = cfg.OutputFormat
	}

	// Текстовый вывод версии компактный, metadata есть только в JSON.
	if format != output.FormatJSON {
		return versionData.writeText(os.Stdout)
	}

	result := &output.Result{
		Status:  output.StatusSuccess,
		Command: constants.ActVersion,
		Data:    versionData,
		Metadata: &output.Metadata{
			DurationMs: time.Since(start).Milliseconds(),
			TraceID:    traceID,
			APIVersion: constants.APIVersion,
		},
	}

	writer := output.NewWriter(format)
	return writer.Write(os.Stdout, result)
}
