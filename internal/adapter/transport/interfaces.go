// Package transport доставляет файлы сообщений обмена между узлами.
//
// Реализации:
//   - ftp - каталог обмена на FTP-сервере;
//   - local - каталог в локальной файловой системе (сетевой диск, тесты).
//
// Файлы сообщений защищаются рекомендательной блокировкой: рядом с файлом
// создаётся <файл>.lock с идентификатором владельца. Блокировка старше
// таймаута считается брошенной и перехватывается.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/Kargones/apk-exchange/internal/exchange/connector"
)

// Типизированные ошибки транспорта.
var (
	// ErrNotFound - файл отсутствует в каталоге обмена.
	ErrNotFound = errors.New("transport: файл не найден")

	// ErrLockConflict - файл заблокирован другим процессом.
	ErrLockConflict = errors.New("transport: файл заблокирован")

	// ErrLockLost - блокировка была перехвачена другим процессом.
	ErrLockLost = errors.New("transport: блокировка перехвачена")

	// ErrInvalidName - имя файла выходит за пределы каталога обмена.
	ErrInvalidName = errors.New("transport: недопустимое имя файла")

	// ErrUnknownType - неизвестный тип транспорта в настройках.
	ErrUnknownType = errors.New("transport: неизвестный тип транспорта")
)

// FileStore - операции над файлами каталога обмена. Имена относительные.
type FileStore interface {
	// Fetch читает файл целиком. Отсутствующий файл - ErrNotFound.
	Fetch(ctx context.Context, name string) ([]byte, error)
	// Put атомарно записывает файл: сначала во временный, затем переименованием.
	Put(ctx context.Context, name string, data []byte) error
	// Remove удаляет файл. Отсутствующий файл - ErrNotFound.
	Remove(ctx context.Context, name string) error
	// Rename перемещает файл, создавая каталог назначения при необходимости.
	Rename(ctx context.Context, from, to string) error
}

// Locker - блокировки файлов обмена.
type Locker interface {
	// AcquireLock захватывает блокировку файла. Действующая чужая
	// блокировка - ErrLockConflict, истёкшая перехватывается.
	AcquireLock(ctx context.Context, fileName string, timeout time.Duration) (*connector.FileLock, error)
	// ReleaseLock снимает блокировку, если она всё ещё принадлежит владельцу.
	ReleaseLock(ctx context.Context, lock *connector.FileLock) error
}

// Transport - композитный интерфейс транспорта одного подключения.
type Transport interface {
	FileStore
	Locker
	// Close освобождает соединение.
	Close() error
}
