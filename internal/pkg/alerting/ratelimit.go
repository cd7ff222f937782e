package alerting

import (
	"sync"
	"time"
)

// RateLimiter подавляет повторные алерты с тем же ключом в пределах окна.
// Состояние хранится в памяти процесса, поэтому окно действует в пределах
// одного запуска команды.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	sent   map[string]time.Time
	now    func() time.Time
}

// NewRateLimiter создаёт RateLimiter с указанным окном.
func NewRateLimiter(window time.Duration) *RateLimiter {
	return &RateLimiter{
		window: window,
		sent:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// cleanupThreshold - число записей, после которого удаляются устаревшие.
const cleanupThreshold = 100

// Allow сообщает, можно ли отправить алерт с ключом key, и при true
// запоминает время отправки. Проверка и запись выполняются атомарно.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if len(r.sent) > cleanupThreshold {
		for k, at := range r.sent {
			if now.Sub(at) >= r.window {
				delete(r.sent, k)
			}
		}
	}

	if at, ok := r.sent[key]; ok && now.Sub(at) < r.window {
		return false
	}
	r.sent[key] = now
	return true
}

// Reset забывает время последней отправки для ключа.
func (r *RateLimiter) Reset(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sent, key)
}

// SetNowFunc подменяет источник времени (для тестов).
func (r *RateLimiter) SetNowFunc(fn func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = fn
}

// rateKey объединяет код ошибки и подключение: один и тот же код
// по разным узлам не подавляется.
func rateKey(alert Alert) string {
	return alert.ErrorCode + "|" + alert.Connector
}
