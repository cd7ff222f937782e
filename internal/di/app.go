package di

import (
	"github.com/Kargones/apk-exchange/internal/adapter/store"
	"github.com/Kargones/apk-exchange/internal/config"
	"github.com/Kargones/apk-exchange/internal/pkg/alerting"
	"github.com/Kargones/apk-exchange/internal/pkg/logging"
	"github.com/Kargones/apk-exchange/internal/pkg/metrics"
	"github.com/Kargones/apk-exchange/internal/pkg/output"
	"github.com/Kargones/apk-exchange/internal/service/exchange"
)

// App - граф зависимостей одной команды обмена, собранный InitializeApp.
// Новая зависимость: поле здесь, провайдер в providers.go и ProviderSet,
// затем go generate ./internal/di/... для wire_gen.go.
type App struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputWriter output.Writer
	// TraceID связывает логи, span-ы и алерты одного запуска.
	TraceID string
	// MetricsCollector создаёт main: он же отправляет метрики после команды.
	MetricsCollector metrics.Collector
	Alerter          alerting.Alerter
	// Store - база обмена с применёнными миграциями.
	Store    *store.Store
	Exchange *exchange.Service
}
