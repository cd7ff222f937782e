package di

import (
	"context"
	"time"

	"github.com/Kargones/apk-exchange/internal/adapter/store"
	"github.com/Kargones/apk-exchange/internal/adapter/transport"
	"github.com/Kargones/apk-exchange/internal/config"
	"github.com/Kargones/apk-exchange/internal/exchange/audit"
	"github.com/Kargones/apk-exchange/internal/exchange/datamapper"
	"github.com/Kargones/apk-exchange/internal/exchange/mapping"
	"github.com/Kargones/apk-exchange/internal/exchange/processor"
	"github.com/Kargones/apk-exchange/internal/pkg/alerting"
	"github.com/Kargones/apk-exchange/internal/pkg/logging"
	"github.com/Kargones/apk-exchange/internal/pkg/metrics"
	"github.com/Kargones/apk-exchange/internal/pkg/output"
	"github.com/Kargones/apk-exchange/internal/pkg/tracing"
	"github.com/Kargones/apk-exchange/internal/service/exchange"
)

// migrateTimeout ограничивает применение миграций при старте.
const migrateTimeout = 2 * time.Minute

// ProvideLogger создаёт Logger на основе LoggingConfig из Config.
// Если Config == nil, используются значения по умолчанию:
//   - Level: "info"
//   - Format: "text"
//   - Output: "stderr"
func ProvideLogger(cfg *config.Config) logging.Logger {
	if cfg == nil {
		return logging.NewLogger(logging.DefaultConfig())
	}
	logCfg := cfg.Logging.ToLogging()
	def := logging.DefaultConfig()
	// Пустые значения возможны, если Config собран вручную, а не через Load.
	if logCfg.Level == "" {
		logCfg.Level = def.Level
	}
	if logCfg.Format == "" {
		logCfg.Format = def.Format
	}
	if logCfg.Output == "" {
		logCfg.Output = def.Output
	}
	if logCfg.MaxSize <= 0 {
		logCfg.MaxSize = def.MaxSize
	}
	return logging.NewLogger(logCfg)
}

// ProvideOutputWriter создаёт OutputWriter по формату из BR_OUTPUT_FORMAT:
//   - "json": JSONWriter
//   - "text" или пустая строка: TextWriter
func ProvideOutputWriter(cfg *config.Config) output.Writer {
	format := output.FormatText
	if cfg != nil && cfg.OutputFormat != "" {
		format = cfg.OutputFormat
	}
	return output.NewWriter(format)
}

// ProvideTraceID генерирует trace_id для корреляции логов одного запуска.
// Формат: 32-символьный hex string.
func ProvideTraceID() string {
	return tracing.GenerateTraceID()
}

// ProvideMetricsCollector создаёт Collector на основе MetricsConfig.
// При ошибке создания возвращает NopCollector и логирует ошибку.
func ProvideMetricsCollector(cfg *config.Config, logger logging.Logger) metrics.Collector {
	if cfg == nil {
		return metrics.NewNopCollector()
	}
	collector, err := metrics.NewCollector(cfg.Metrics.ToMetrics(), logger)
	if err != nil {
		logger.Error("ошибка создания MetricsCollector, используется NopCollector",
			logging.KeyError, err.Error(),
		)
		return metrics.NewNopCollector()
	}
	return collector
}

// ProvideTracerProvider включает экспорт span-ов и возвращает его shutdown.
// Ошибка настройки не прерывает запуск: трейсинг просто выключается.
func ProvideTracerProvider(cfg *config.Config, logger logging.Logger) tracing.ShutdownFunc {
	if cfg == nil {
		return tracing.NopShutdown
	}
	shutdown, err := tracing.NewTracerProvider(cfg.Tracing.ToTracing(), logger)
	if err != nil {
		logger.Error("ошибка создания TracerProvider, трейсинг отключён",
			logging.KeyError, err.Error(),
		)
		return tracing.NopShutdown
	}
	return shutdown
}

// ProvideAlerter создаёт Alerter на основе AlertingConfig.
// При ошибке конфигурации алерты отключаются, ошибка логируется.
func ProvideAlerter(cfg *config.Config, logger logging.Logger) alerting.Alerter {
	if cfg == nil {
		return alerting.NewNopAlerter()
	}
	alerter, err := alerting.NewAlerter(cfg.Alerting.ToAlerting(), logger)
	if err != nil {
		logger.Error("ошибка создания Alerter, алерты отключены",
			logging.KeyError, err.Error(),
		)
		return alerting.NewNopAlerter()
	}
	return alerter
}

// ProvideStore открывает базу данных и применяет миграции.
// Cleanup-функция закрывает соединения.
func ProvideStore(cfg *config.Config, logger logging.Logger) (*store.Store, func(), error) {
	st, err := store.Open(context.Background(), cfg.Database.ToStore(), logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			logger.Warn("ошибка закрытия базы данных", logging.KeyError, err.Error())
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
	defer cancel()
	if err := st.Migrate(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}
	return st, cleanup, nil
}

// ProvideProcessor создаёт Processor с часовым поясом обмена.
func ProvideProcessor(cfg *config.Config, logger logging.Logger) (*processor.Processor, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return processor.New(processor.Options{Logger: logger, Location: loc}), nil
}

// ProvideRegistry создаёт реестр сопоставлений. Ссылки на зависимости
// проверяются по базе данных.
func ProvideRegistry(st *store.Store) *mapping.Registry {
	return mapping.NewDefaultRegistry(st)
}

// ProvideMapper создаёт Mapper, сохраняющий сущности в базу данных.
func ProvideMapper(registry *mapping.Registry, st *store.Store, logger logging.Logger) *datamapper.Mapper {
	return datamapper.New(registry, st, logger)
}

// ProvideJournal создаёт журнал обмена поверх базы данных.
func ProvideJournal(st *store.Store, logger logging.Logger) *audit.Journal {
	return audit.NewJournal(st, logger, nil)
}

// ProvideTransportFactory создаёт фабрику FTP и локального транспорта.
func ProvideTransportFactory(logger logging.Logger) transport.Factory {
	return transport.NewFactory(transport.Options{Logger: logger})
}

// ProvideExchangeService собирает сервис обмена по подключениям из конфигурации.
func ProvideExchangeService(
	cfg *config.Config,
	proc *processor.Processor,
	mapper *datamapper.Mapper,
	st *store.Store,
	journal *audit.Journal,
	factory transport.Factory,
	logger logging.Logger,
	collector metrics.Collector,
) (*exchange.Service, error) {
	conns, err := cfg.Connectors()
	if err != nil {
		return nil, err
	}
	return exchange.New(exchange.Deps{
		Processor:  proc,
		Mapper:     mapper,
		Store:      st,
		Journal:    journal,
		Unmapped:   st,
		Transports: factory,
		Connectors: conns,
		Logger:     logger,
		Metrics:    collector,
	})
}
