package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kargones/apk-exchange/internal/exchange/result"
	"github.com/Kargones/apk-exchange/internal/pkg/logging"
)

// ErrInvalidRetention возвращается Cleanup при неположительном сроке хранения.
var ErrInvalidRetention = errors.New("срок хранения журнала должен быть положительным")

// Journal реализует Recorder поверх LogStore.
type Journal struct {
	store  LogStore
	logger logging.Logger
	now    func() time.Time
}

// NewJournal создаёт журнал. now может быть nil.
func NewJournal(store LogStore, logger logging.Logger, now func() time.Time) *Journal {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if now == nil {
		now = time.Now
	}
	return &Journal{store: store, logger: logger, now: now}
}

// MarkAsStarted создаёт запись со статусом started.
func (j *Journal) MarkAsStarted(ctx context.Context, connector, direction string) (*Log, error) {
	l := &Log{
		Connector: connector,
		Direction: direction,
		Status:    result.StatusStarted,
		StartedAt: j.now().UTC(),
	}
	id, err := j.store.InsertLog(ctx, l)
	if err != nil {
		return l, fmt.Errorf("запись журнала обмена: %w", err)
	}
	l.ID = id
	return l, nil
}

// MarkAsProcessing фиксирует номер и идентификатор обрабатываемого сообщения.
func (j *Journal) MarkAsProcessing(ctx context.Context, l *Log, messageID string, messageNo int64) error {
	l.Status = result.StatusProcessing
	l.MessageID = messageID
	l.MessageNo = messageNo
	return j.update(ctx, l)
}

// MarkAsCompleted завершает запись с итогом обработки объектов.
func (j *Journal) MarkAsCompleted(ctx context.Context, l *Log, p result.Processing, warnings []string) error {
	l.Status = result.StatusCompleted
	l.ProcessedCount = p.ProcessedCount
	l.Errors = SanitizeMessages(p.Errors)
	l.Warnings = SanitizeMessages(append(append([]string(nil), warnings...), p.Warnings...))
	j.finish(l)
	return j.update(ctx, l)
}

// MarkAsFailed завершает запись с ошибками.
func (j *Journal) MarkAsFailed(ctx context.Context, l *Log, errs []string) error {
	l.Status = result.StatusFailed
	l.Errors = SanitizeMessages(errs)
	j.finish(l)
	return j.update(ctx, l)
}

// MarkAsCancelled завершает запись, прерванную отменой контекста.
func (j *Journal) MarkAsCancelled(ctx context.Context, l *Log, reason string) error {
	l.Status = result.StatusCancelled
	if reason != "" {
		l.Errors = SanitizeMessages([]string{reason})
	}
	j.finish(l)
	// Контекст уже отменён, запись делается с отдельным контекстом.
	return j.update(context.WithoutCancel(ctx), l)
}

// Cleanup удаляет записи старше days дней и возвращает их число.
func (j *Journal) Cleanup(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, ErrInvalidRetention
	}
	before := j.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	n, err := j.store.DeleteLogsBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("очистка журнала обмена: %w", err)
	}
	j.logger.Info("журнал обмена очищен", "days", days, "deleted", n)
	return n, nil
}

// HasCompletedMessage сообщает, что сообщение уже было успешно обработано.
func (j *Journal) HasCompletedMessage(ctx context.Context, connector, messageID string) (bool, error) {
	return j.store.HasCompletedMessage(ctx, connector, messageID)
}

func (j *Journal) finish(l *Log) {
	l.FinishedAt = j.now().UTC()
	l.DurationMs = l.FinishedAt.Sub(l.StartedAt).Milliseconds()
}

func (j *Journal) update(ctx context.Context, l *Log) error {
	if l.ID == 0 {
		// Запись не была создана: обновлять нечего.
		return nil
	}
	if err := j.store.UpdateLog(ctx, l); err != nil {
		return fmt.Errorf("обновление журнала обмена: %w", err)
	}
	return nil
}

// RecordUnmapped учитывает все объекты без сопоставления. Ошибки записи
// только логируются.
func RecordUnmapped(ctx context.Context, rec UnmappedRecorder, logger logging.Logger, connector string, refs []result.UnmappedRef, messageNo int64) {
	if rec == nil || len(refs) == 0 {
		return
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	for _, ref := range refs {
		if err := rec.RecordUnmappedObject(ctx, connector, ref.ObjectType, ref.Ref, messageNo); err != nil {
			logger.Warn("не удалось учесть объект без сопоставления",
				logging.KeyConnector, connector,
				logging.KeyObject, ref.ObjectType,
				logging.KeyError, err.Error(),
			)
		}
	}
}
