package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Kargones/apk-exchange/internal/exchange/audit"
	"github.com/Kargones/apk-exchange/internal/exchange/result"
)

var logColumns = []string{
	"connector", "direction", "message_id", "message_no", "status", "started_at",
	"errors", "warnings", "processed_count", "duration_ms",
}

// InsertLog создаёт запись журнала и возвращает её идентификатор.
func (s *Store) InsertLog(ctx context.Context, l *audit.Log) (int64, error) {
	errs, warns, err := encodeMessages(l)
	if err != nil {
		return 0, err
	}
	var id int64
	err = s.db.QueryRowContext(ctx,
		s.dialect.rebind(s.dialect.returningID("exchange_logs", logColumns)),
		l.Connector, l.Direction, l.MessageID, l.MessageNo, l.Status, s.dialect.timeArg(l.StartedAt),
		errs, warns, l.ProcessedCount, l.DurationMs,
	).Scan(&id)
	if err != nil {
		return 0, queryError("запись журнала обмена", err)
	}
	return id, nil
}

// UpdateLog обновляет запись журнала по ID.
func (s *Store) UpdateLog(ctx context.Context, l *audit.Log) error {
	errs, warns, err := encodeMessages(l)
	if err != nil {
		return err
	}
	var finished any
	if !l.FinishedAt.IsZero() {
		finished = s.dialect.timeArg(l.FinishedAt)
	}
	_, err = s.db.ExecContext(ctx,
		s.dialect.rebind(`UPDATE exchange_logs SET message_id = ?, message_no = ?, status = ?,
			finished_at = ?, errors = ?, warnings = ?, processed_count = ?, duration_ms = ? WHERE id = ?`),
		l.MessageID, l.MessageNo, l.Status, finished, errs, warns, l.ProcessedCount, l.DurationMs, l.ID,
	)
	if err != nil {
		return queryError(fmt.Sprintf("обновление журнала обмена %d", l.ID), err)
	}
	return nil
}

// DeleteLogsBefore удаляет записи, начатые раньше before.
func (s *Store) DeleteLogsBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		s.dialect.rebind(`DELETE FROM exchange_logs WHERE started_at < ?`),
		s.dialect.timeArg(before),
	)
	if err != nil {
		return 0, queryError("очистка журнала обмена", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, queryError("очистка журнала обмена: число строк", err)
	}
	return n, nil
}

// HasCompletedMessage сообщает, что сообщение messageID уже обработано успешно.
func (s *Store) HasCompletedMessage(ctx context.Context, connector, messageID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT COUNT(*) FROM exchange_logs
			WHERE connector = ? AND message_id = ? AND status = ? AND direction = ?`),
		connector, messageID, result.StatusCompleted, result.DirectionIncoming,
	).Scan(&n)
	if err != nil {
		return false, queryError("проверка обработанного сообщения "+messageID, err)
	}
	return n > 0, nil
}

// RecentLogs возвращает последние записи журнала подключения, новые первыми.
func (s *Store) RecentLogs(ctx context.Context, connector string, limit int) ([]audit.Log, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		s.dialect.rebind(`SELECT id, connector, direction, message_id, message_no, status, started_at,
			finished_at, errors, warnings, processed_count, duration_ms
			FROM exchange_logs WHERE connector = ? ORDER BY id DESC`),
		connector,
	)
	if err != nil {
		return nil, queryError("чтение журнала обмена", err)
	}
	defer rows.Close()

	var logs []audit.Log
	for rows.Next() && len(logs) < limit {
		var (
			l                 audit.Log
			started, finished dbTime
			errs, warns       string
		)
		if err := rows.Scan(&l.ID, &l.Connector, &l.Direction, &l.MessageID, &l.MessageNo, &l.Status,
			&started, &finished, &errs, &warns, &l.ProcessedCount, &l.DurationMs); err != nil {
			return nil, queryError("чтение журнала обмена", err)
		}
		l.StartedAt = started.Time
		l.FinishedAt = finished.Time
		if err := json.Unmarshal([]byte(errs), &l.Errors); err != nil {
			return nil, fmt.Errorf("store: ошибки записи журнала %d: %w", l.ID, err)
		}
		if err := json.Unmarshal([]byte(warns), &l.Warnings); err != nil {
			return nil, fmt.Errorf("store: предупреждения записи журнала %d: %w", l.ID, err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("чтение журнала обмена", err)
	}
	return logs, nil
}

func encodeMessages(l *audit.Log) (string, string, error) {
	errs, err := json.Marshal(nonNil(l.Errors))
	if err != nil {
		return "", "", err
	}
	warns, err := json.Marshal(nonNil(l.Warnings))
	if err != nil {
		return "", "", err
	}
	return string(errs), string(warns), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
