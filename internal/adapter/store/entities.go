package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Kargones/apk-exchange/internal/exchange/entity"
)

// Upsert создаёт или обновляет сущность по (kind, guid_1c). Повторная
// загрузка удалённой сущности снимает пометку удаления.
func (s *Store) Upsert(ctx context.Context, e entity.Entity) (bool, error) {
	if e == nil || e.GUID() == "" {
		return false, fmt.Errorf("store: сущность без GUID")
	}
	payload, err := entity.Encode(e)
	if err != nil {
		return false, fmt.Errorf("store: сериализация %s %s: %w", e.Kind(), e.GUID(), err)
	}
	now := s.dialect.timeArg(s.timestamp())

	created := false
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		var id int64
		err := tx.QueryRowContext(ctx,
			s.dialect.rebind(`SELECT id FROM exchange_entities WHERE kind = ? AND guid_1c = ?`),
			string(e.Kind()), e.GUID(),
		).Scan(&id)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			created = true
			_, err = tx.ExecContext(ctx, s.dialect.rebind(`INSERT INTO exchange_entities
				(kind, guid_1c, presentation, payload, deleted, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)`),
				string(e.Kind()), e.GUID(), e.Presentation(), string(payload), false, now, now)
			return err
		case err != nil:
			return err
		default:
			_, err = tx.ExecContext(ctx, s.dialect.rebind(`UPDATE exchange_entities
				SET presentation = ?, payload = ?, deleted = ?, updated_at = ? WHERE id = ?`),
				e.Presentation(), string(payload), false, now, id)
			return err
		}
	})
	if err != nil {
		return false, queryError(fmt.Sprintf("сохранение %s %s", e.Kind(), e.GUID()), err)
	}
	return created, nil
}

// Find возвращает неудалённую сущность или ErrNotFound.
func (s *Store) Find(ctx context.Context, kind entity.Kind, guid string) (entity.Entity, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT payload FROM exchange_entities WHERE kind = ? AND guid_1c = ? AND deleted = ?`),
		string(kind), guid, false,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", ErrNotFound, kind, guid)
	}
	if err != nil {
		return nil, queryError(fmt.Sprintf("чтение %s %s", kind, guid), err)
	}
	return entity.Decode(kind, []byte(payload))
}

// Exists сообщает, что неудалённая сущность загружена.
func (s *Store) Exists(ctx context.Context, kind entity.Kind, guid string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT COUNT(*) FROM exchange_entities WHERE kind = ? AND guid_1c = ? AND deleted = ?`),
		string(kind), guid, false,
	).Scan(&n)
	if err != nil {
		return false, queryError(fmt.Sprintf("проверка %s %s", kind, guid), err)
	}
	return n > 0, nil
}

// MarkDeleted помечает сущность удалённой. found=false, если неудалённой
// сущности нет.
func (s *Store) MarkDeleted(ctx context.Context, kind entity.Kind, guid string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		s.dialect.rebind(`UPDATE exchange_entities SET deleted = ?, updated_at = ?
			WHERE kind = ? AND guid_1c = ? AND deleted = ?`),
		true, s.dialect.timeArg(s.timestamp()), string(kind), guid, false,
	)
	if err != nil {
		return false, queryError(fmt.Sprintf("удаление %s %s", kind, guid), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, queryError("удаление: число строк", err)
	}
	return n > 0, nil
}

// Count возвращает число неудалённых сущностей вида kind.
func (s *Store) Count(ctx context.Context, kind entity.Kind) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT COUNT(*) FROM exchange_entities WHERE kind = ? AND deleted = ?`),
		string(kind), false,
	).Scan(&n)
	if err != nil {
		return 0, queryError("подсчёт "+string(kind), err)
	}
	return n, nil
}
