package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Kargones/apk-exchange/internal/exchange/audit"
)

// RecordUnmappedObject учитывает объект без сопоставления: счётчик,
// последняя ссылка и номер сообщения агрегируются по (connector, object_type).
func (s *Store) RecordUnmappedObject(ctx context.Context, connector, objectType, ref string, messageNo int64) error {
	now := s.dialect.timeArg(s.timestamp())
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx,
			s.dialect.rebind(`SELECT id FROM exchange_unmapped_objects WHERE connector = ? AND object_type = ?`),
			connector, objectType,
		).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			_, err = tx.ExecContext(ctx, s.dialect.rebind(`INSERT INTO exchange_unmapped_objects
				(connector, object_type, occurrences, last_ref, last_message_no, first_seen, last_seen)
				VALUES (?, ?, ?, ?, ?, ?, ?)`),
				connector, objectType, 1, ref, messageNo, now, now)
			return err
		case err != nil:
			return err
		default:
			_, err = tx.ExecContext(ctx, s.dialect.rebind(`UPDATE exchange_unmapped_objects
				SET occurrences = occurrences + 1, last_ref = ?, last_message_no = ?, last_seen = ? WHERE id = ?`),
				ref, messageNo, now, id)
			return err
		}
	})
	if err != nil {
		return queryError(fmt.Sprintf("учёт объекта без сопоставления %s", objectType), err)
	}
	return nil
}

// UnmappedObjects возвращает учтённые типы без сопоставления подключения.
func (s *Store) UnmappedObjects(ctx context.Context, connector string) ([]audit.UnmappedObject, error) {
	rows, err := s.db.QueryContext(ctx,
		s.dialect.rebind(`SELECT connector, object_type, occurrences, last_ref, last_message_no, first_seen, last_seen
			FROM exchange_unmapped_objects WHERE connector = ? ORDER BY object_type`),
		connector,
	)
	if err != nil {
		return nil, queryError("чтение объектов без сопоставления", err)
	}
	defer rows.Close()

	var out []audit.UnmappedObject
	for rows.Next() {
		var (
			u           audit.UnmappedObject
			first, last dbTime
		)
		if err := rows.Scan(&u.Connector, &u.ObjectType, &u.Occurrences, &u.LastRef, &u.LastMessageNo, &first, &last); err != nil {
			return nil, queryError("чтение объектов без сопоставления", err)
		}
		u.FirstSeen, u.LastSeen = first.Time, last.Time
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError("чтение объектов без сопоставления", err)
	}
	return out, nil
}
