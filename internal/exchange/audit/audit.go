// Package audit ведёт журнал сеансов обмена и учёт объектов без сопоставления.
//
// Журнал - телеметрия: сбой записи в него логируется, но не прерывает обмен.
package audit

import (
	"context"
	"time"

	"github.com/Kargones/apk-exchange/internal/exchange/result"
)

// Log - запись журнала об одном сеансе обмена.
type Log struct {
	ID             int64     `json:"id"`
	Connector      string    `json:"connector"`
	Direction      string    `json:"direction"`
	MessageID      string    `json:"message_id,omitempty"`
	MessageNo      int64     `json:"message_no"`
	Status         string    `json:"status"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at,omitzero"`
	Errors         []string  `json:"errors,omitempty"`
	Warnings       []string  `json:"warnings,omitempty"`
	ProcessedCount int       `json:"processed_count"`
	DurationMs     int64     `json:"duration_ms"`
}

// IsFinal сообщает, что сеанс завершён и запись больше не изменится.
func (l Log) IsFinal() bool {
	switch l.Status {
	case result.StatusCompleted, result.StatusFailed, result.StatusCancelled:
		return true
	}
	return false
}

// UnmappedObject - агрегированная запись о типе объекта без сопоставления.
type UnmappedObject struct {
	Connector     string    `json:"connector"`
	ObjectType    string    `json:"object_type"`
	Occurrences   int64     `json:"occurrences"`
	LastRef       string    `json:"last_ref,omitempty"`
	LastMessageNo int64     `json:"last_message_no"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
}

// LogStore сохраняет записи журнала.
type LogStore interface {
	InsertLog(ctx context.Context, l *Log) (int64, error)
	UpdateLog(ctx context.Context, l *Log) error
	DeleteLogsBefore(ctx context.Context, before time.Time) (int64, error)
	HasCompletedMessage(ctx context.Context, connector, messageID string) (bool, error)
}

// Recorder ведёт жизненный цикл записи журнала.
type Recorder interface {
	MarkAsStarted(ctx context.Context, connector, direction string) (*Log, error)
	MarkAsProcessing(ctx context.Context, l *Log, messageID string, messageNo int64) error
	MarkAsCompleted(ctx context.Context, l *Log, p result.Processing, warnings []string) error
	MarkAsFailed(ctx context.Context, l *Log, errs []string) error
	MarkAsCancelled(ctx context.Context, l *Log, reason string) error
	Cleanup(ctx context.Context, days int) (int64, error)
	HasCompletedMessage(ctx context.Context, connector, messageID string) (bool, error)
}

// UnmappedRecorder учитывает объекты, для типа которых нет сопоставления.
// Запись агрегируется по паре (подключение, тип).
type UnmappedRecorder interface {
	RecordUnmappedObject(ctx context.Context, connector, objectType, ref string, messageNo int64) error
}
