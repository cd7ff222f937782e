package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Kargones/apk-exchange/internal/pkg/apperrors"
)

// Миграции - упорядоченные группы DDL. Версия - индекс группы, начиная с 1.
// Группы диалектов должны совпадать по числу и смыслу.

var sqliteMigrations = [][]string{
	// 1: сущности, изменения, состояние подключений
	{
		`CREATE TABLE exchange_entities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			kind TEXT NOT NULL,
			guid_1c TEXT NOT NULL,
			presentation TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL,
			deleted INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			UNIQUE (kind, guid_1c)
		)`,
		`CREATE TABLE exchange_changes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			connector TEXT NOT NULL,
			kind TEXT NOT NULL,
			guid_1c TEXT NOT NULL,
			deleted INTEGER NOT NULL DEFAULT 0,
			message_no INTEGER NOT NULL DEFAULT 0,
			registered_at TEXT NOT NULL,
			UNIQUE (connector, kind, guid_1c)
		)`,
		`CREATE TABLE exchange_connector_state (
			connector TEXT PRIMARY KEY,
			sent_no INTEGER NOT NULL DEFAULT 0,
			received_no INTEGER NOT NULL DEFAULT 0,
			acked_no INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		)`,
	},
	// 2: журнал обмена и объекты без сопоставления
	{
		`CREATE TABLE exchange_logs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			connector TEXT NOT NULL,
			direction TEXT NOT NULL,
			message_id TEXT NOT NULL DEFAULT '',
			message_no INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			errors TEXT NOT NULL DEFAULT '[]',
			warnings TEXT NOT NULL DEFAULT '[]',
			processed_count INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX idx_exchange_logs_message ON exchange_logs(connector, message_id, status)`,
		`CREATE INDEX idx_exchange_logs_started ON exchange_logs(started_at)`,
		`CREATE TABLE exchange_unmapped_objects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			connector TEXT NOT NULL,
			object_type TEXT NOT NULL,
			occurrences INTEGER NOT NULL DEFAULT 0,
			last_ref TEXT NOT NULL DEFAULT '',
			last_message_no INTEGER NOT NULL DEFAULT 0,
			first_seen TEXT NOT NULL,
			last_seen TEXT NOT NULL,
			UNIQUE (connector, object_type)
		)`,
	},
}

var sqlServerMigrations = [][]string{
	// 1: сущности, изменения, состояние подключений
	{
		`CREATE TABLE exchange_entities (
			id BIGINT IDENTITY(1,1) NOT NULL PRIMARY KEY,
			kind NVARCHAR(64) NOT NULL,
			guid_1c NVARCHAR(64) NOT NULL,
			presentation NVARCHAR(512) NOT NULL DEFAULT N'',
			payload NVARCHAR(MAX) NOT NULL,
			deleted BIT NOT NULL DEFAULT 0,
			created_at DATETIME2 NOT NULL,
			updated_at DATETIME2 NOT NULL,
			CONSTRAINT uq_exchange_entities UNIQUE (kind, guid_1c)
		)`,
		`CREATE TABLE exchange_changes (
			id BIGINT IDENTITY(1,1) NOT NULL PRIMARY KEY,
			connector NVARCHAR(128) NOT NULL,
			kind NVARCHAR(64) NOT NULL,
			guid_1c NVARCHAR(64) NOT NULL,
			deleted BIT NOT NULL DEFAULT 0,
			message_no BIGINT NOT NULL DEFAULT 0,
			registered_at DATETIME2 NOT NULL,
			CONSTRAINT uq_exchange_changes UNIQUE (connector, kind, guid_1c)
		)`,
		`CREATE TABLE exchange_connector_state (
			connector NVARCHAR(128) NOT NULL PRIMARY KEY,
			sent_no BIGINT NOT NULL DEFAULT 0,
			received_no BIGINT NOT NULL DEFAULT 0,
			acked_no BIGINT NOT NULL DEFAULT 0,
			updated_at DATETIME2 NOT NULL
		)`,
	},
	// 2: журнал обмена и объекты без сопоставления
	{
		`CREATE TABLE exchange_logs (
			id BIGINT IDENTITY(1,1) NOT NULL PRIMARY KEY,
			connector NVARCHAR(128) NOT NULL,
			direction NVARCHAR(16) NOT NULL,
			message_id NVARCHAR(256) NOT NULL DEFAULT N'',
			message_no BIGINT NOT NULL DEFAULT 0,
			status NVARCHAR(16) NOT NULL,
			started_at DATETIME2 NOT NULL,
			finished_at DATETIME2 NULL,
			errors NVARCHAR(MAX) NOT NULL DEFAULT N'[]',
			warnings NVARCHAR(MAX) NOT NULL DEFAULT N'[]',
			processed_count INT NOT NULL DEFAULT 0,
			duration_ms BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX idx_exchange_logs_message ON exchange_logs(connector, message_id, status)`,
		`CREATE INDEX idx_exchange_logs_started ON exchange_logs(started_at)`,
		`CREATE TABLE exchange_unmapped_objects (
			id BIGINT IDENTITY(1,1) NOT NULL PRIMARY KEY,
			connector NVARCHAR(128) NOT NULL,
			object_type NVARCHAR(256) NOT NULL,
			occurrences BIGINT NOT NULL DEFAULT 0,
			last_ref NVARCHAR(64) NOT NULL DEFAULT N'',
			last_message_no BIGINT NOT NULL DEFAULT 0,
			first_seen DATETIME2 NOT NULL,
			last_seen DATETIME2 NOT NULL,
			CONSTRAINT uq_exchange_unmapped UNIQUE (connector, object_type)
		)`,
	},
}

// Migrate применяет недостающие миграции. Каждая группа выполняется в
// отдельной транзакции вместе с записью в schema_migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.migrationsTable); err != nil {
		return apperrors.NewAppError(apperrors.ErrStoreMigrate, "создание schema_migrations", err)
	}

	applied := 0
	for i, stmts := range s.dialect.migrations {
		version := i + 1

		var exists int
		if err := s.db.QueryRowContext(ctx,
			s.dialect.rebind("SELECT COUNT(*) FROM schema_migrations WHERE version = ?"), version,
		).Scan(&exists); err != nil {
			return apperrors.NewAppError(apperrors.ErrStoreMigrate, fmt.Sprintf("проверка миграции %d", version), err)
		}
		if exists > 0 {
			continue
		}

		err := s.inTx(ctx, func(tx *sql.Tx) error {
			for _, stmt := range stmts {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			_, err := tx.ExecContext(ctx,
				s.dialect.rebind("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)"),
				version, s.dialect.timeArg(s.timestamp()))
			return err
		})
		if err != nil {
			return apperrors.NewAppError(apperrors.ErrStoreMigrate, fmt.Sprintf("миграция %d", version), err)
		}
		applied++
	}

	s.logger.Info("миграции базы данных применены", "driver", s.dialect.name, "applied", applied,
		"version", len(s.dialect.migrations))
	return nil
}

// SchemaVersion возвращает номер последней применённой миграции.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		return 0, queryError("чтение версии схемы", err)
	}
	return int(version.Int64), nil
}
