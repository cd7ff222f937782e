package metrics

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Kargones/apk-exchange/internal/pkg/logging"
	"github.com/Kargones/apk-exchange/internal/pkg/urlutil"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "apk_exchange"

// PrometheusCollector реализует Collector с Prometheus метриками.
// Отправляет метрики в Pushgateway при вызове Push().
type PrometheusCollector struct {
	config   Config
	logger   logging.Logger
	registry *prometheus.Registry

	commandDuration  *prometheus.HistogramVec
	exchangeDuration *prometheus.HistogramVec
	exchangeTotal    *prometheus.CounterVec
	objectsTotal     *prometheus.CounterVec

	instance string
}

// NewPrometheusCollector создаёт PrometheusCollector и регистрирует метрики:
//   - apk_exchange_command_duration_seconds (histogram)
//   - apk_exchange_duration_seconds (histogram)
//   - apk_exchange_total (counter)
//   - apk_exchange_objects_total (counter)
func NewPrometheusCollector(config Config, logger logging.Logger) (*PrometheusCollector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	instance := config.InstanceLabel
	if instance == "" {
		hostname, err := os.Hostname()
		if err != nil {
			logger.Warn("не удалось получить hostname для metrics instance label, используется 'unknown'",
				"error", err.Error())
			hostname = "unknown"
		}
		instance = hostname
	}

	registry := prometheus.NewRegistry()

	commandDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Duration of command execution in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"command", "connector", "status"},
	)

	// Сеанс обмена обычно короче команды: основная часть уходит на FTP.
	exchangeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "duration_seconds",
			Help:      "Duration of a single exchange session in seconds",
			Buckets:   []float64{0.05, 0.25, 1, 5, 15, 60, 300},
		},
		[]string{"connector", "direction", "status"},
	)

	exchangeTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "total",
			Help:      "Total number of exchange sessions",
		},
		[]string{"connector", "direction", "status"},
	)

	objectsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_total",
			Help:      "Total number of exchanged objects by outcome",
		},
		[]string{"connector", "outcome"},
	)

	collectors := []prometheus.Collector{commandDuration, exchangeDuration, exchangeTotal, objectsTotal}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("ошибка регистрации метрики: %w", err)
		}
	}

	return &PrometheusCollector{
		config:           config,
		logger:           logger,
		registry:         registry,
		commandDuration:  commandDuration,
		exchangeDuration: exchangeDuration,
		exchangeTotal:    exchangeTotal,
		objectsTotal:     objectsTotal,
		instance:         instance,
	}, nil
}

// maxLabelLength - максимальная длина значения label.
const maxLabelLength = 128

// sanitizeLabel обрезает значение label по рунам и заменяет контрольные символы,
// которые ломают Prometheus text format.
func sanitizeLabel(value string) string {
	clean := strings.Map(func(r rune) rune {
		if r < 0x20 {
			return '_'
		}
		return r
	}, value)

	runes := []rune(clean)
	if len(runes) > maxLabelLength {
		return string(runes[:maxLabelLength])
	}
	return clean
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordCommandStart отмечает начало команды.
func (c *PrometheusCollector) RecordCommandStart(command, connector string) {
	c.logger.Debug("metrics: command started", "command", command, logging.KeyConnector, connector)
}

// RecordCommandEnd записывает длительность команды.
func (c *PrometheusCollector) RecordCommandEnd(command, connector string, duration time.Duration, success bool) {
	c.commandDuration.
		WithLabelValues(sanitizeLabel(command), sanitizeLabel(connector), statusLabel(success)).
		Observe(duration.Seconds())
}

// RecordExchange записывает завершение сеанса обмена.
func (c *PrometheusCollector) RecordExchange(connector, direction, status string, duration time.Duration) {
	connector, direction, status = sanitizeLabel(connector), sanitizeLabel(direction), sanitizeLabel(status)
	c.exchangeDuration.WithLabelValues(connector, direction, status).Observe(duration.Seconds())
	c.exchangeTotal.WithLabelValues(connector, direction, status).Inc()
}

// RecordObjects увеличивает счётчик объектов. Нулевые и отрицательные значения игнорируются.
func (c *PrometheusCollector) RecordObjects(connector, outcome string, count int) {
	if count <= 0 {
		return
	}
	c.objectsTotal.WithLabelValues(sanitizeLabel(connector), sanitizeLabel(outcome)).Add(float64(count))
}

// Push отправляет метрики в Pushgateway. Ошибка отправки не прерывает обмен.
func (c *PrometheusCollector) Push(ctx context.Context) error {
	if c.config.PushgatewayURL == "" {
		return nil
	}

	select {
	case <-ctx.Done():
		c.logger.Debug("metrics push отменён")
		return nil
	default:
	}

	pusher := push.New(c.config.PushgatewayURL, c.config.JobName).
		Gatherer(c.registry).
		Grouping("instance", c.instance)

	pushCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	if err := pusher.PushContext(pushCtx); err != nil {
		c.logger.Error("ошибка отправки метрик в Pushgateway",
			"error", err.Error(),
			"url", urlutil.MaskURL(c.config.PushgatewayURL),
			"job", c.config.JobName,
		)
		return nil
	}

	c.logger.Info("метрики отправлены в Pushgateway",
		"url", urlutil.MaskURL(c.config.PushgatewayURL),
		"job", c.config.JobName,
		"instance", c.instance,
	)
	return nil
}

// GetRegistry возвращает внутренний registry. Используется в тестах.
func (c *PrometheusCollector) GetRegistry() *prometheus.Registry {
	return c.registry
}
