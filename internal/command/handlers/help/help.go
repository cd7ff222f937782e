// Package help реализует команду help: список зарегистрированных команд
// и переменных окружения apk-exchange.
package help

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Kargones/apk-exchange/internal/command"
	"github.com/Kargones/apk-exchange/internal/config"
	"github.com/Kargones/apk-exchange/internal/constants"
	"github.com/Kargones/apk-exchange/internal/pkg/output"
	"github.com/Kargones/apk-exchange/internal/pkg/tracing"
)

// RegisterCmd регистрирует команду в реестре.
func RegisterCmd() error {
	return command.Register(&Handler{})
}

// Data содержит информацию обо всех доступных командах.
type Data struct {
	Commands []CommandInfo `json:"commands"`
	Options  []OptionInfo  `json:"options"`
}

// CommandInfo описывает одну команду.
type CommandInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// OptionInfo описывает переменную окружения.
type OptionInfo struct {
	Env         string `json:"env"`
	Description string `json:"description"`
}

var options = []OptionInfo{
	{constants.EnvCommand, "Команда (пусто - help)"},
	{constants.EnvConfigPath, "Путь к YAML-конфигурации (по умолчанию " + constants.DefaultConfigPath + ")"},
	{constants.EnvConnector, "Подключение обмена (пусто - все подключения)"},
	{constants.EnvOutputFormat, "Формат вывода: text или json"},
	{constants.EnvCleanupDays, "Срок хранения журнала обмена в днях"},
	{constants.EnvDryRun, "План обмена без выполнения"},
}

// Handler обрабатывает команду help.
type Handler struct{}

// Name возвращает имя команды.
func (h *Handler) Name() string {
	return constants.ActHelp
}

// Description возвращает описание команды для вывода в help.
func (h *Handler) Description() string {
	return "Вывод списка доступных команд"
}

// Execute собирает список команд и выводит результат.
// cfg может быть nil: help работает и без загруженной конфигурации.
func (h *Handler) Execute(ctx context.Context, cfg *config.Config) error {
	start := time.Now()

	data := buildData()

	_, traceID := tracing.EnsureTraceID(ctx)

	format := os.Getenv(constants.EnvOutputFormat)
	if cfg != nil {
		format = cfg.OutputFormat
	}

	// Текстовый формат без metadata (аналогично nr-version).
	if format != output.FormatJSON {
		return data.writeText(os.Stdout)
	}

	result := &output.Result{
		Status:  output.StatusSuccess,
		Command: constants.ActHelp,
		Data:    data,
		Metadata: &output.Metadata{
			DurationMs: time.Since(start).Milliseconds(),
			TraceID:    traceID,
			APIVersion: constants.APIVersion,
		},
	}
	return output.NewWriter(format).Write(os.Stdout, result)
}

// buildData собирает команды из реестра в алфавитном порядке.
func buildData() *Data {
	data := &Data{Options: options}
	for _, h := range command.Handlers() {
		data.Commands = append(data.Commands, CommandInfo{Name: h.Name(), Description: h.Description()})
	}
	return data
}

// writeText выводит информацию о командах в человекочитаемом формате.
func (d *Data) writeText(w io.Writer) error {
	var sb strings.Builder

	sb.WriteString(constants.AppName + " - обмен данными EnterpriseData с узлами 1С\n")
	sb.WriteString("\nКоманды:\n")

	maxLen := 0
	for _, cmd := range d.Commands {
		maxLen = max(maxLen, len(cmd.Name))
	}
	for _, cmd := range d.Commands {
		fmt.Fprintf(&sb, "  %-*s  %s\n", maxLen, cmd.Name, cmd.Description)
	}

	sb.WriteString("\nПеременные окружения:\n")
	envLen := 0
	for _, o := range d.Options {
		envLen = max(envLen, len(o.Env))
	}
	for _, o := range d.Options {
		fmt.Fprintf(&sb, "  %-*s  %s\n", envLen, o.Env, o.Description)
	}

	_, err := fmt.Fprint(w, sb.String())
	return err
}
