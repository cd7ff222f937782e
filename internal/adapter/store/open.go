package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/Kargones/apk-exchange/internal/pkg/apperrors"
	"github.com/Kargones/apk-exchange/internal/pkg/logging"

	// драйверы баз данных
	_ "github.com/denisenkom/go-mssqldb"
	_ "modernc.org/sqlite"
)

// Значения по умолчанию для SQL Server.
const (
	DefaultSQLServerPort = 1433
	DefaultTimeout       = 30 * time.Second
)

// Config - параметры подключения к базе данных.
type Config struct {
	// Driver - "sqlserver" или "sqlite".
	Driver string

	// Path - файл базы SQLite или ":memory:".
	Path string

	Server   string
	Port     int
	User     string
	Password string
	Database string

	// Encrypt - TLS для SQL Server.
	Encrypt bool

	Timeout      time.Duration
	MaxOpenConns int
}

// Open открывает базу данных, проверяет соединение и возвращает Store.
// Миграции не применяются: для этого вызывается Migrate.
func Open(ctx context.Context, cfg Config, logger logging.Logger) (*Store, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	dsn, err := dataSourceName(cfg)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrStoreOpen, "некорректные параметры базы данных", err)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrStoreOpen, "не удалось открыть базу данных", err)
	}

	switch cfg.Driver {
	case DriverSQLite:
		// Один writer: несколько соединений к ":memory:" видят разные базы.
		db.SetMaxOpenConns(1)
		if err := applyPragmas(ctx, db, cfg.Path); err != nil {
			_ = db.Close()
			return nil, apperrors.NewAppError(apperrors.ErrStoreOpen, "настройка SQLite", err)
		}
	default:
		if cfg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.MaxOpenConns)
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: контекст отменён во время ping: %w", apperrors.ErrStoreOpen, ctx.Err())
		}
		return nil, apperrors.NewAppError(apperrors.ErrStoreOpen, "ping базы данных", err)
	}

	return New(db, cfg.Driver, logger)
}

func dataSourceName(cfg Config) (string, error) {
	switch cfg.Driver {
	case DriverSQLite:
		if cfg.Path == "" {
			return "", fmt.Errorf("не указан путь к базе SQLite")
		}
		return cfg.Path, nil
	case DriverSQLServer:
		return sqlServerDSN(cfg)
	default:
		_, err := dialectFor(cfg.Driver)
		return "", err
	}
}

// sqlServerDSN формирует строку подключения. Шифрование по умолчанию включено.
func sqlServerDSN(cfg Config) (string, error) {
	if cfg.Server == "" {
		return "", fmt.Errorf("не указан сервер SQL Server")
	}
	port := cfg.Port
	if port == 0 {
		port = DefaultSQLServerPort
	}
	if port < 1 || port > 65535 {
		return "", fmt.Errorf("некорректный порт %d", port)
	}
	encrypt := "true"
	if !cfg.Encrypt {
		encrypt = "disable"
	}
	return fmt.Sprintf(
		"server=%s;user id=%s;password=%s;port=%d;database=%s;encrypt=%s;connection timeout=%d",
		escapeConnStringParam(cfg.Server),
		escapeConnStringParam(cfg.User),
		escapeConnStringParam(cfg.Password),
		port,
		escapeConnStringParam(cfg.Database),
		encrypt,
		int(cfg.Timeout.Seconds()),
	), nil
}

// escapeConnStringParam экранирует ; и = в параметрах строки подключения.
func escapeConnStringParam(s string) string {
	return url.QueryEscape(s)
}

func applyPragmas(ctx context.Context, db *sql.DB, path string) error {
	pragmas := []string{"PRAGMA busy_timeout=5000"}
	if path != ":memory:" {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("exec %q: %w", p, err)
		}
	}
	return nil
}
