package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Kargones/apk-exchange/internal/exchange/entity"
)

// Change - изменение сущности, зарегистрированное к отправке подключению.
// MessageNo = 0: изменение ещё не отправлялось. Изменение остаётся
// зарегистрированным, пока узел-партнёр не подтвердит номер сообщения,
// в котором оно ушло.
type Change struct {
	ID           int64
	Connector    string
	Kind         entity.Kind
	GUID         string
	Deleted      bool
	MessageNo    int64
	RegisteredAt time.Time
}

// RegisterChange регистрирует изменение сущности к отправке. Повторная
// регистрация сбрасывает номер сообщения: объект уйдёт в следующем.
func (s *Store) RegisterChange(ctx context.Context, connector string, kind entity.Kind, guid string, deleted bool) error {
	now := s.dialect.timeArg(s.timestamp())
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx,
			s.dialect.rebind(`SELECT id FROM exchange_changes WHERE connector = ? AND kind = ? AND guid_1c = ?`),
			connector, string(kind), guid,
		).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx, s.dialect.rebind(`INSERT INTO exchange_changes
				(connector, kind, guid_1c, deleted, message_no, registered_at) VALUES (?, ?, ?, ?, ?, ?)`),
				connector, string(kind), guid, deleted, 0, now)
			return err
		case err != nil:
			return err
		default:
			_, err = tx.ExecContext(ctx, s.dialect.rebind(`UPDATE exchange_changes
				SET deleted = ?, message_no = ?, registered_at = ? WHERE id = ?`),
				deleted, 0, now, id)
			return err
		}
	})
	if err != nil {
		return queryError(fmt.Sprintf("регистрация изменения %s %s", kind, guid), err)
	}
	return nil
}

// PendingChanges возвращает все неподтверждённые изменения подключения
// в порядке регистрации.
func (s *Store) PendingChanges(ctx context.Context, connector string) ([]Change, error) {
	rows, err := s.db.QueryContext(ctx,
		s.dialect.rebind(`SELECT id, connector, kind, guid_1c, deleted, message_no, registered_at
			FROM exchange_changes WHERE connector = ? ORDER BY id`),
		connector,
	)
	if err != nil {
		return nil, queryError("чтение изменений "+connector, err)
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var (
			c    Change
			kind string
			at   dbTime
		)
		if err := rows.Scan(&c.ID, &c.Connector, &kind, &c.GUID, &c.Deleted, &c.MessageNo, &at); err != nil {
			return nil, queryError("чтение изменений "+connector, err)
		}
		c.Kind = entity.Kind(kind)
		c.RegisteredAt = at.Time
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("чтение изменений "+connector, err)
	}
	return changes, nil
}

// AssignMessageNo отмечает изменения как отправленные в сообщении messageNo.
func (s *Store) AssignMessageNo(ctx context.Context, connector string, ids []int64, messageNo int64) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		query := s.dialect.rebind(`UPDATE exchange_changes SET message_no = ? WHERE id = ? AND connector = ?`)
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, query, messageNo, id, connector); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return queryError(fmt.Sprintf("назначение номера сообщения %d", messageNo), err)
	}
	return nil
}

// ClearConfirmed удаляет изменения, отправленные в сообщениях с номером
// не больше receivedNo, который подтвердил узел-партнёр.
func (s *Store) ClearConfirmed(ctx context.Context, connector string, receivedNo int64) (int64, error) {
	if receivedNo <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		s.dialect.rebind(`DELETE FROM exchange_changes WHERE connector = ? AND message_no > 0 AND message_no <= ?`),
		connector, receivedNo,
	)
	if err != nil {
		return 0, queryError(fmt.Sprintf("очистка подтверждённых изменений до %d", receivedNo), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, queryError("очистка подтверждённых изменений: число строк", err)
	}
	return n, nil
}
