//go:build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/Kargones/apk-exchange/internal/config"
	"github.com/Kargones/apk-exchange/internal/pkg/metrics"
)

//go:generate wire

// ProviderSet объединяет все провайдеры приложения.
// Используется в InitializeApp для построения графа зависимостей.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideOutputWriter,
	ProvideTraceID,
	ProvideAlerter,
	ProvideStore,
	ProvideProcessor,
	ProvideRegistry,
	ProvideMapper,
	ProvideJournal,
	ProvideTransportFactory,
	ProvideExchangeService,
	wire.Struct(new(App), "*"),
)

// InitializeApp создаёт App через Wire DI. Коллектор метрик и трейсинг
// создаёт main (ProvideMetricsCollector, ProvideTracerProvider), чтобы
// метрики команды и обмена уходили в Pushgateway одним push.
// Возвращаемая cleanup-функция закрывает базу данных.
//
//	app, cleanup, err := di.InitializeApp(cfg, collector)
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
//
// Wire генерирует реализацию этой функции в wire_gen.go.
func InitializeApp(cfg *config.Config, collector metrics.Collector) (*App, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
