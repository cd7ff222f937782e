package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Kargones/apk-exchange/internal/constants"
	"github.com/Kargones/apk-exchange/internal/pkg/logging"
	"github.com/Kargones/apk-exchange/internal/pkg/urlutil"
)

// HTTPClient - минимальный интерфейс HTTP клиента, подменяемый в тестах.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// WebhookAlerter отправляет алерты POST-запросом с JSON телом.
type WebhookAlerter struct {
	config      WebhookConfig
	rateLimiter *RateLimiter
	logger      logging.Logger
	httpClient  HTTPClient
	hostname    string

	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// WebhookPayload - JSON тело запроса.
type WebhookPayload struct {
	ErrorCode string    `json:"error_code"`
	Message   string    `json:"message"`
	TraceID   string    `json:"trace_id"`
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
	Connector string    `json:"connector,omitempty"`
	Direction string    `json:"direction,omitempty"`
	Severity  string    `json:"severity"`
	Source    string    `json:"source"`
	Hostname  string    `json:"hostname,omitempty"`
}

// httpError - ответ с кодом вне 2xx.
type httpError struct {
	StatusCode int
	Body       string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// maxResponseBodySize ограничивает чтение тела ответа.
const maxResponseBodySize = 1024

// NewWebhookAlerter создаёт WebhookAlerter. rateLimiter может быть nil.
func NewWebhookAlerter(config WebhookConfig, rateLimiter *RateLimiter, logger logging.Logger) *WebhookAlerter {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultWebhookTimeout
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &WebhookAlerter{
		config:         config,
		rateLimiter:    rateLimiter,
		logger:         logger,
		httpClient:     &http.Client{Timeout: timeout},
		hostname:       hostname,
		initialBackoff: time.Second,
		maxBackoff:     4 * time.Second,
	}
}

// SetHTTPClient подменяет HTTP клиент.
func (w *WebhookAlerter) SetHTTPClient(client HTTPClient) {
	w.httpClient = client
}

// SetBackoff задаёт паузы между повторами.
func (w *WebhookAlerter) SetBackoff(initial, maxBackoff time.Duration) {
	w.initialBackoff = initial
	w.maxBackoff = maxBackoff
}

// Send отправляет алерт на все настроенные URL.
// Ошибки доставки логируются, Send всегда возвращает nil.
func (w *WebhookAlerter) Send(ctx context.Context, alert Alert) error {
	if w.rateLimiter != nil && !w.rateLimiter.Allow(rateKey(alert)) {
		w.logger.Debug("алерт подавлен rate limiter",
			"error_code", alert.ErrorCode,
			"connector", alert.Connector,
			"channel", ChannelWebhook,
		)
		return nil
	}

	payload := w.createPayload(alert)

	delivered := 0
	for i, url := range w.config.URLs {
		if ctx.Err() != nil {
			w.logger.Debug("отправка webhook алерта отменена",
				"error_code", alert.ErrorCode,
				"remaining_urls", len(w.config.URLs)-i,
			)
			return nil
		}
		if err := w.sendWithRetry(ctx, url, payload); err != nil {
			w.logger.Error("ошибка отправки webhook алерта",
				"error", urlutil.MaskCredentials(err.Error()),
				"url", urlutil.MaskURL(url),
				"error_code", alert.ErrorCode,
			)
			continue
		}
		delivered++
	}

	switch {
	case delivered > 0:
		w.logger.Info("webhook алерт отправлен",
			"error_code", alert.ErrorCode,
			"severity", alert.Severity.String(),
			"connector", alert.Connector,
			"urls_success", delivered,
			"urls_total", len(w.config.URLs),
		)
	case len(w.config.URLs) > 0:
		w.logger.Warn("webhook алерт не доставлен ни на один URL",
			"error_code", alert.ErrorCode,
			"urls_total", len(w.config.URLs),
		)
	}
	return nil
}

func (w *WebhookAlerter) createPayload(alert Alert) WebhookPayload {
	ts := alert.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return WebhookPayload{
		ErrorCode: alert.ErrorCode,
		Message:   alert.Message,
		TraceID:   alert.TraceID,
		Timestamp: ts,
		Command:   alert.Command,
		Connector: alert.Connector,
		Direction: alert.Direction,
		Severity:  alert.Severity.String(),
		Source:    constants.AppName,
		Hostname:  w.hostname,
	}
}

// sendWithRetry повторяет запрос при сетевых ошибках и ответах 5xx.
// Ответ 4xx означает ошибку конфигурации и не повторяется.
func (w *WebhookAlerter) sendWithRetry(ctx context.Context, url string, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	var lastErr error
	backoff := w.initialBackoff
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, w.maxBackoff)
			w.logger.Debug("webhook retry",
				"attempt", attempt,
				"max_retries", w.config.MaxRetries,
				"url", urlutil.MaskURL(url),
			)
		}

		lastErr = w.sendRequest(ctx, url, body)
		if lastErr == nil {
			return nil
		}
		if isClientHTTPError(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", w.config.MaxRetries+1, lastErr)
}

func (w *WebhookAlerter) sendRequest(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", constants.AppName+"/"+constants.Version)
	for key, value := range w.config.Headers {
		req.Header.Set(key, value)
	}

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodySize))
		return nil
	}
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	return &httpError{StatusCode: resp.StatusCode, Body: string(respBody)}
}

func isClientHTTPError(err error) bool {
	var httpErr *httpError
	if !errors.As(err, &httpErr) {
		return false
	}
	return httpErr.StatusCode >= 400 && httpErr.StatusCode < 500
}
