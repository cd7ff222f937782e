// Package main содержит точку входа apk-exchange: обмен данными в формате
// EnterpriseData с узлами 1С через FTP или локальный каталог.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kargones/apk-exchange/internal/command"
	"github.com/Kargones/apk-exchange/internal/command/handlers"
	"github.com/Kargones/apk-exchange/internal/config"
	"github.com/Kargones/apk-exchange/internal/constants"
	"github.com/Kargones/apk-exchange/internal/di"
	"github.com/Kargones/apk-exchange/internal/pkg/metrics"
	"github.com/Kargones/apk-exchange/internal/pkg/tracing"
)

// registerHandlers регистрирует команды один раз за процесс.
var registerHandlers = sync.OnceValue(handlers.RegisterAll)

func main() {
	os.Exit(run())
}

// run содержит основную логику и возвращает exit code.
// os.Exit вызывается в main уже после отработки defer (tracer shutdown, span.End).
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := registerHandlers(); err != nil {
		fmt.Fprintf(os.Stderr, "Не удалось зарегистрировать команды: %v\n", err)
		return constants.ExitCommandFailed
	}

	cfg, err := config.Load()
	if err != nil || cfg == nil {
		fmt.Fprintf(os.Stderr, "Не удалось загрузить конфигурацию приложения: %v\n", err)
		return constants.ExitConfigError
	}
	cmdName := cfg.CommandOrHelp()

	l := di.ProvideLogger(cfg)
	l.Debug("Информация о сборке",
		"version", constants.Version,
		"commit_hash", constants.PreCommitHash,
	)

	// trace_id связывает логи, JSON-вывод и span-ы OTel.
	traceID := tracing.GenerateTraceID()
	ctx = tracing.WithTraceID(ctx, traceID)
	ctx = tracing.ContextWithOTelTraceID(ctx, traceID)
	l = l.With("trace_id", traceID, "command", cmdName)

	collector := di.ProvideMetricsCollector(cfg, l)
	ctx = metrics.WithCollector(ctx, collector)

	tracerShutdown := di.ProvideTracerProvider(cfg, l)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerShutdown(shutdownCtx); err != nil {
			l.Error("ошибка завершения tracing", "error", err.Error())
		}
	}()

	handler, ok := command.Get(cmdName)
	if !ok {
		l.Error("Неизвестная команда", "available", command.Names())
		fmt.Fprintf(os.Stderr, "Неизвестная команда %q, список команд: BR_COMMAND=help\n", cmdName)
		return constants.ExitUnknownCommand
	}

	ctx, span := otel.Tracer(constants.AppName).Start(ctx, cmdName,
		trace.WithAttributes(
			attribute.String("command", cmdName),
			attribute.String("connector", cfg.Connector),
			attribute.String("trace_id", traceID),
		),
	)
	defer span.End()

	collector.RecordCommandStart(cmdName, cfg.Connector)
	start := time.Now()

	execErr := handler.Execute(ctx, cfg)

	collector.RecordCommandEnd(cmdName, cfg.Connector, time.Since(start), execErr == nil)
	// Ошибки push логируются внутри коллектора и не влияют на exit code.
	_ = collector.Push(context.WithoutCancel(ctx))

	if execErr != nil {
		span.RecordError(execErr)
		span.SetStatus(codes.Error, execErr.Error())
		l.Error("Ошибка выполнения команды",
			"error", execErr.Error(),
			constants.MsgErrProcessing, constants.MsgAppExit,
		)
		return constants.ExitCommandFailed
	}
	l.Debug("Команда выполнена", "duration_ms", time.Since(start).Milliseconds())
	return constants.ExitOK
}
