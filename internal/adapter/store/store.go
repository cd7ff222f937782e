// Package store хранит состояние обмена в SQL базе данных:
// локальные сущности, зарегистрированные изменения, номера сообщений
// подключений, журнал обмена и учёт объектов без сопоставления.
//
// Поддерживаются SQL Server (go-mssqldb) и SQLite (modernc.org/sqlite).
// Запросы пишутся с плейсхолдерами "?" и переводятся в синтаксис
// диалекта через rebind.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Kargones/apk-exchange/internal/exchange/audit"
	"github.com/Kargones/apk-exchange/internal/exchange/datamapper"
	"github.com/Kargones/apk-exchange/internal/exchange/mapping"
	"github.com/Kargones/apk-exchange/internal/pkg/apperrors"
	"github.com/Kargones/apk-exchange/internal/pkg/logging"
)

// Compile-time проверки реализации интерфейсов
var (
	_ datamapper.EntityStore = (*Store)(nil)
	_ mapping.RefResolver    = (*Store)(nil)
	_ audit.LogStore         = (*Store)(nil)
	_ audit.UnmappedRecorder = (*Store)(nil)
)

// ErrNotFound - запись не найдена.
var ErrNotFound = errors.New("store: запись не найдена")

// Store - хранилище обмена поверх *sql.DB.
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  logging.Logger
	now     func() time.Time
}

// New оборачивает открытое соединение. driver - DriverSQLServer или DriverSQLite.
func New(db *sql.DB, driver string, logger logging.Logger) (*Store, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Store{db: db, dialect: d, logger: logger, now: time.Now}, nil
}

// SetClock подменяет источник времени.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// DB возвращает соединение с базой.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver возвращает имя драйвера базы данных.
func (s *Store) Driver() string {
	return s.dialect.name
}

// Close закрывает соединение.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping проверяет доступность базы.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return apperrors.NewAppError(apperrors.ErrStoreOpen, "база данных недоступна", err)
	}
	return nil
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// inTx выполняет fn в транзакции. Ошибка fn откатывает транзакцию.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func queryError(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.NewAppError(apperrors.ErrStoreQuery, op, err)
}

// dbTime сканирует время из DATETIME2 (SQL Server) и TEXT (SQLite).
type dbTime struct {
	Time  time.Time
	Valid bool
}

// Scan реализует sql.Scanner.
func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v.UTC(), true
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("неподдерживаемый тип времени %T", src)
	}
}

func (t *dbTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("некорректное время %q: %w", s, err)
	}
	t.Time, t.Valid = parsed.UTC(), true
	return nil
}
