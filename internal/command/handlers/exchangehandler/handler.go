// Package exchangehandler реализует NR-команды сеансов обмена:
// nr-exchange-run, nr-exchange-receive, nr-exchange-send и nr-exchange-confirm.
//
// Команда выполняется по подключению из BR_CONNECTOR или, если он не задан,
// по всем настроенным подключениям. Ошибка одного подключения не прерывает
// обмен с остальными.
package exchangehandler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/Kargones/apk-exchange/internal/command"
	"github.com/Kargones/apk-exchange/internal/config"
	"github.com/Kargones/apk-exchange/internal/constants"
	"github.com/Kargones/apk-exchange/internal/di"
	"github.com/Kargones/apk-exchange/internal/exchange/connector"
	"github.com/Kargones/apk-exchange/internal/exchange/processor"
	"github.com/Kargones/apk-exchange/internal/exchange/result"
	"github.com/Kargones/apk-exchange/internal/pkg/alerting"
	"github.com/Kargones/apk-exchange/internal/pkg/apperrors"
	"github.com/Kargones/apk-exchange/internal/pkg/dryrun"
	"github.com/Kargones/apk-exchange/internal/pkg/metrics"
	"github.com/Kargones/apk-exchange/internal/pkg/output"
	"github.com/Kargones/apk-exchange/internal/pkg/tracing"
	"github.com/Kargones/apk-exchange/internal/pkg/urlutil"
	"github.com/Kargones/apk-exchange/internal/service/exchange"
)

// maxSummaryWarnings - сколько предупреждений попадает в сводку.
const maxSummaryWarnings = 20

// ErrNoConnectors - в конфигурации нет ни одного подключения.
var ErrNoConnectors = errors.New("не настроено ни одного подключения обмена")

// AppFactory создаёт граф зависимостей команды. В production - di.InitializeApp.
type AppFactory func(cfg *config.Config, collector metrics.Collector) (*di.App, func(), error)

type runFunc func(svc *exchange.Service, ctx context.Context, name string) ([]*result.Exchange, error)

// Handler выполняет одну из команд обмена.
type Handler struct {
	name        string
	description string
	// ops - шаги плана dry-run для одного подключения.
	ops    []string
	run    runFunc
	newApp AppFactory
}

// Data - результат команды обмена.
type Data struct {
	Connectors []string           `json:"connectors"`
	Exchanges  []*result.Exchange `json:"exchanges"`
}

// RegisterCmd регистрирует все команды обмена.
func RegisterCmd() error {
	for _, h := range Handlers() {
		if err := command.Register(h); err != nil {
			return err
		}
	}
	return nil
}

// Handlers возвращает обработчики команд обмена.
func Handlers() []*Handler {
	return []*Handler{
		{
			name:        constants.ActExchangeRun,
			description: "Двусторонний обмен: приём входящего сообщения, затем отправка изменений",
			ops:         []string{dryrun.OpReceive, dryrun.OpSend},
			run:         (*exchange.Service).Run,
		},
		{
			name:        constants.ActExchangeReceive,
			description: "Приём и загрузка входящего сообщения обмена",
			ops:         []string{dryrun.OpReceive},
			run:         single((*exchange.Service).Receive),
		},
		{
			name:        constants.ActExchangeSend,
			description: "Отправка зарегистрированных изменений узлу-партнёру",
			ops:         []string{dryrun.OpSend},
			run:         single((*exchange.Service).Send),
		},
		{
			name:        constants.ActExchangeConfirm,
			description: "Отправка подтверждения принятых сообщений без данных",
			ops:         []string{dryrun.OpConfirm},
			run:         single((*exchange.Service).Confirm),
		},
	}
}

func single(op func(*exchange.Service, context.Context, string) (*result.Exchange, error)) runFunc {
	return func(svc *exchange.Service, ctx context.Context, name string) ([]*result.Exchange, error) {
		ex, err := op(svc, ctx, name)
		if ex == nil {
			return nil, err
		}
		return []*result.Exchange{ex}, err
	}
}

// Name возвращает имя команды.
func (h *Handler) Name() string { return h.name }

// Description возвращает описание команды для вывода в help.
func (h *Handler) Description() string { return h.description }

// Execute выполняет сеансы обмена и выводит результат в stdout.
func (h *Handler) Execute(ctx context.Context, cfg *config.Config) error {
	start := time.Now()

	ctx, traceID := tracing.EnsureTraceID(ctx)
	format := cfg.OutputFormat

	conns, err := selectConnectors(cfg)
	if err != nil {
		return h.writeError(format, traceID, start, apperrors.ErrConfigValidate, err)
	}

	if dryrun.IsDryRun() {
		return h.writePlan(format, traceID, start, dryrun.BuildPlan(h.name, conns, h.ops...))
	}

	newApp := h.newApp
	if newApp == nil {
		newApp = di.InitializeApp
	}
	app, cleanup, err := newApp(cfg, metrics.CollectorFromContext(ctx))
	if err != nil {
		return h.writeError(format, traceID, start, apperrors.ErrCommandExec, err)
	}
	defer cleanup()

	log := app.Logger.With("trace_id", traceID, "command", h.name)

	data := &Data{Connectors: make([]string, 0, len(conns))}
	var errs []error
	for _, c := range conns {
		data.Connectors = append(data.Connectors, c.Name)
		exs, runErr := h.run(app.Exchange, ctx, c.Name)
		data.Exchanges = append(data.Exchanges, exs...)
		if runErr != nil {
			log.Error("Ошибка обмена", "connector", c.Name, "error", urlutil.MaskCredentials(runErr.Error()))
			errs = append(errs, fmt.Errorf("%s: %w", c.Name, runErr))
			h.alert(ctx, app, traceID, c.Name, exs, runErr)
		}
		if ctx.Err() != nil {
			break
		}
	}

	res := &output.Result{
		Status:  status(data.Exchanges, errs),
		Command: h.name,
		Data:    data,
		Metadata: &output.Metadata{
			DurationMs: time.Since(start).Milliseconds(),
			TraceID:    traceID,
			APIVersion: constants.APIVersion,
		},
		Summary: buildSummary(data.Exchanges),
	}
	execErr := errors.Join(errs...)
	if execErr != nil {
		res.Error = errorInfo(apperrors.ErrCommandExec, execErr)
	}

	if writeErr := app.OutputWriter.Write(os.Stdout, res); writeErr != nil {
		log.Error("Не удалось записать результат команды", "error", writeErr.Error())
		if execErr == nil {
			return apperrors.NewAppError(apperrors.ErrOutputFormat, "не удалось записать результат", writeErr)
		}
	}
	return execErr
}

// alert уведомляет о сбое обмена с подключением. Ошибки доставки
// алерта обрабатывает сам Alerter.
func (h *Handler) alert(ctx context.Context, app *di.App, traceID, conn string, exs []*result.Exchange, err error) {
	if app.Alerter == nil {
		return
	}
	a := alerting.Alert{
		ErrorCode: errorInfo(apperrors.ErrCommandExec, err).Code,
		Message:   urlutil.MaskCredentials(err.Error()),
		TraceID:   traceID,
		Timestamp: time.Now(),
		Command:   h.name,
		Connector: conn,
		Severity:  alerting.SeverityCritical,
	}
	if len(exs) > 0 {
		a.Direction = exs[len(exs)-1].Direction
	}
	_ = app.Alerter.Send(context.WithoutCancel(ctx), a) //nolint:errcheck // Send не возвращает ошибок доставки
}

// selectConnectors возвращает подключение из BR_CONNECTOR или все подключения.
func selectConnectors(cfg *config.Config) ([]connector.Connector, error) {
	all, err := cfg.Connectors()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, ErrNoConnectors
	}
	if cfg.Connector == "" {
		return all, nil
	}
	for _, c := range all {
		if c.Name == cfg.Connector {
			return []connector.Connector{c}, nil
		}
	}
	return nil, fmt.Errorf("%w %q", exchange.ErrUnknownConnector, cfg.Connector)
}

// status определяет итоговый статус команды по результатам сеансов.
func status(exs []*result.Exchange, errs []error) string {
	if len(errs) > 0 {
		return output.StatusError
	}
	for _, ex := range exs {
		if !ex.Succeeded() || ex.Processing.HasRetryable() {
			return output.StatusPartial
		}
	}
	return output.StatusSuccess
}

// buildSummary собирает ключевые метрики всех сеансов.
func buildSummary(exs []*result.Exchange) *output.SummaryInfo {
	s := output.NewSummaryInfo()
	var processed, created, updated, deleted, unmapped, retryable int
	var warnings []string
	for _, ex := range exs {
		p := ex.Processing
		processed += p.ProcessedCount
		created += len(p.CreatedIDs)
		updated += len(p.UpdatedIDs)
		deleted += len(p.DeletedIDs)
		unmapped += p.SkippedCount()
		retryable += p.RetryableCount
		prefix := fmt.Sprintf("[%s/%s] ", ex.Connector, ex.Direction)
		for _, w := range ex.AllWarnings() {
			warnings = append(warnings, prefix+w)
		}
	}

	s.AddMetric("Сеансов обмена", strconv.Itoa(len(exs)), "шт")
	s.AddMetric("Объектов обработано", strconv.Itoa(processed), "шт")
	s.AddMetric("Создано", strconv.Itoa(created), "шт")
	s.AddMetric("Обновлено", strconv.Itoa(updated), "шт")
	s.AddMetric("Удалено", strconv.Itoa(deleted), "шт")
	if unmapped > 0 {
		s.AddMetric("Без сопоставления", strconv.Itoa(unmapped), "шт")
	}
	if retryable > 0 {
		s.AddMetric("Ожидают зависимостей", strconv.Itoa(retryable), "шт")
	}
	s.AddWarnings(warnings, maxSummaryWarnings)
	return s
}

func errorInfo(defaultCode string, err error) *output.ErrorInfo {
	code := apperrors.CodeOf(err)
	switch {
	case code != "":
	case processor.IsParseError(err):
		code = apperrors.ErrExchangeParse
	default:
		code = defaultCode
	}
	return &output.ErrorInfo{Code: code, Message: urlutil.MaskCredentials(err.Error())}
}

// writePlan выводит план dry-run.
func (h *Handler) writePlan(format, traceID string, start time.Time, plan *dryrun.Plan) error {
	if format != output.FormatJSON {
		return plan.WriteText(os.Stdout)
	}
	return output.NewWriter(format).Write(os.Stdout, &output.Result{
		Status:  output.StatusSuccess,
		Command: h.name,
		Data:    plan,
		Metadata: &output.Metadata{
			DurationMs: time.Since(start).Milliseconds(),
			TraceID:    traceID,
			APIVersion: constants.APIVersion,
		},
	})
}

// writeError выводит структурированную ошибку и возвращает её.
func (h *Handler) writeError(format, traceID string, start time.Time, code string, err error) error {
	info := errorInfo(code, err)
	res := &output.Result{
		Status:  output.StatusError,
		Command: h.name,
		Error:   info,
		Metadata: &output.Metadata{
			DurationMs: time.Since(start).Milliseconds(),
			TraceID:    traceID,
			APIVersion: constants.APIVersion,
		},
	}
	// Ошибка записи не должна скрывать исходную ошибку команды.
	_ = output.NewWriter(format).Write(os.Stdout, res) //nolint:errcheck // best-effort output
	if apperrors.CodeOf(err) != "" {
		return err
	}
	return apperrors.NewAppError(info.Code, info.Message, err)
}
