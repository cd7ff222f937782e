package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Поддерживаемые драйверы.
const (
	DriverSQLServer = "sqlserver"
	DriverSQLite    = "sqlite"
)

// sqliteTimeLayout - фиксированная ширина, чтобы строки сравнивались как время.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type dialect struct {
	name       string
	migrations [][]string

	// bindvar возвращает плейсхолдер параметра с номером n (с 1).
	bindvar func(n int) string

	// returningID добавляет к INSERT возврат идентификатора новой строки.
	returningID func(table string, columns []string) string

	// timeArg приводит время к значению параметра.
	timeArg func(t time.Time) any

	// migrationsTable - DDL таблицы учёта миграций.
	migrationsTable string
}

const sqlServerMigrationsTable = `IF OBJECT_ID(N'schema_migrations', N'U') IS NULL
CREATE TABLE schema_migrations (
	version INT NOT NULL PRIMARY KEY,
	applied_at DATETIME2 NOT NULL
)`

const sqliteMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at TEXT NOT NULL
)`

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverSQLServer:
		return dialect{
			name:            DriverSQLServer,
			migrations:      sqlServerMigrations,
			migrationsTable: sqlServerMigrationsTable,
			bindvar:         func(n int) string { return "@p" + strconv.Itoa(n) },
			timeArg:         func(t time.Time) any { return t.UTC() },
			returningID: func(table string, columns []string) string {
				return fmt.Sprintf("INSERT INTO %s (%s) OUTPUT INSERTED.id VALUES (%s)",
					table, strings.Join(columns, ", "), placeholders(len(columns)))
			},
		}, nil
	case DriverSQLite:
		return dialect{
			name:            DriverSQLite,
			migrations:      sqliteMigrations,
			migrationsTable: sqliteMigrationsTable,
			bindvar:         func(int) string { return "?" },
			timeArg:         func(t time.Time) any { return t.UTC().Format(sqliteTimeLayout) },
			returningID: func(table string, columns []string) string {
				return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id",
					table, strings.Join(columns, ", "), placeholders(len(columns)))
			},
		}, nil
	default:
		return dialect{}, fmt.Errorf("неподдерживаемый драйвер базы данных %q, допустимо: %s, %s",
			driver, DriverSQLServer, DriverSQLite)
	}
}

// rebind заменяет "?" на плейсхолдеры диалекта.
func (d dialect) rebind(query string) string {
	if d.name == DriverSQLite {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(d.bindvar(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
