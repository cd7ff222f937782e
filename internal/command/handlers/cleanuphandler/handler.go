// Package cleanuphandler реализует NR-команду nr-exchange-cleanup:
// удаление записей журнала обмена старше BR_CLEANUP_DAYS дней.
package cleanuphandler

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Kargones/apk-exchange/internal/command"
	"github.com/Kargones/apk-exchange/internal/config"
	"github.com/Kargones/apk-exchange/internal/constants"
	"github.com/Kargones/apk-exchange/internal/di"
	"github.com/Kargones/apk-exchange/internal/pkg/apperrors"
	"github.com/Kargones/apk-exchange/internal/pkg/dryrun"
	"github.com/Kargones/apk-exchange/internal/pkg/metrics"
	"github.com/Kargones/apk-exchange/internal/pkg/output"
	"github.com/Kargones/apk-exchange/internal/pkg/tracing"
)

// RegisterCmd регистрирует команду в реестре.
func RegisterCmd() error {
	return command.Register(&Handler{})
}

// Data - результат очистки журнала.
type Data struct {
	RetentionDays int   `json:"retention_days"`
	Removed       int64 `json:"removed"`
}

// Handler обрабатывает команду nr-exchange-cleanup.
type Handler struct {
	// newApp - фабрика зависимостей (nil в production, подмена в тестах).
	newApp func(cfg *config.Config, collector metrics.Collector) (*di.App, func(), error)
}

// Name возвращает имя команды.
func (h *Handler) Name() string {
	return constants.ActExchangeCleanup
}

// Description возвращает описание команды для вывода в help.
func (h *Handler) Description() string {
	return "Удаление записей журнала обмена старше BR_CLEANUP_DAYS дней"
}

// Execute удаляет устаревшие записи журнала обмена.
func (h *Handler) Execute(ctx context.Context, cfg *config.Config) error {
	start := time.Now()
	ctx, traceID := tracing.EnsureTraceID(ctx)
	meta := func() *output.Metadata {
		return &output.Metadata{
			DurationMs: time.Since(start).Milliseconds(),
			TraceID:    traceID,
			APIVersion: constants.APIVersion,
		}
	}
	writer := output.NewWriter(cfg.OutputFormat)
	days := cfg.CleanupDays

	if dryrun.IsDryRun() {
		plan := &dryrun.Plan{
			Command: constants.ActExchangeCleanup,
			Steps: []dryrun.Step{{
				Order:     1,
				Operation: dryrun.OpCleanup,
				Detail:    fmt.Sprintf("удаление записей журнала обмена старше %d дней", days),
			}},
		}
		if cfg.OutputFormat != output.FormatJSON {
			return plan.WriteText(os.Stdout)
		}
		return writer.Write(os.Stdout, &output.Result{
			Status: output.StatusSuccess, Command: constants.ActExchangeCleanup, Data: plan, Metadata: meta(),
		})
	}

	newApp := h.newApp
	if newApp == nil {
		newApp = di.InitializeApp
	}
	app, cleanup, err := newApp(cfg, metrics.CollectorFromContext(ctx))
	if err != nil {
		return h.fail(writer, meta(), apperrors.ErrCommandExec, err)
	}
	defer cleanup()

	removed, err := app.Exchange.Cleanup(ctx, days)
	if err != nil {
		app.Logger.Error("Ошибка очистки журнала обмена", "trace_id", traceID, "error", err.Error())
		return h.fail(writer, meta(), apperrors.ErrStoreQuery, err)
	}
	app.Logger.Info("Журнал обмена очищен", "trace_id", traceID, "removed", removed, "days", days)

	summary := output.NewSummaryInfo()
	summary.AddMetric("Удалено записей журнала", strconv.FormatInt(removed, 10), "шт")
	summary.AddMetric("Срок хранения", strconv.Itoa(days), "дн")

	return app.OutputWriter.Write(os.Stdout, &output.Result{
		Status:   output.StatusSuccess,
		Command:  constants.ActExchangeCleanup,
		Data:     &Data{RetentionDays: days, Removed: removed},
		Metadata: meta(),
		Summary:  summary,
	})
}

func (h *Handler) fail(writer output.Writer, meta *output.Metadata, code string, err error) error {
	if c := apperrors.CodeOf(err); c != "" {
		code = c
	}
	_ = writer.Write(os.Stdout, &output.Result{ //nolint:errcheck // best-effort output
		Status:   output.StatusError,
		Command:  constants.ActExchangeCleanup,
		Error:    &output.ErrorInfo{Code: code, Message: err.Error()},
		Metadata: meta,
	})
	return apperrors.NewAppError(code, "очистка журнала обмена не выполнена", err)
}
