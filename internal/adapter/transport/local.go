package transport

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Kargones/apk-exchange/internal/constants"
	"github.com/Kargones/apk-exchange/internal/exchange/connector"
	"github.com/Kargones/apk-exchange/internal/pkg/apperrors"
	"github.com/Kargones/apk-exchange/internal/pkg/logging"

	"github.com/google/uuid"
)

// Compile-time проверка реализации интерфейса
var _ Transport = (*LocalTransport)(nil)

// LocalTransport хранит файлы обмена в локальном каталоге.
type LocalTransport struct {
	dir    string
	logger logging.Logger
	now    func() time.Time
}

// NewLocalTransport создаёт транспорт поверх каталога dir. Каталог создаётся
// при отсутствии.
func NewLocalTransport(dir string, opts Options) (*LocalTransport, error) {
	if dir == "" {
		return nil, apperrors.NewAppError(apperrors.ErrTransportConnect, "не указан каталог обмена", nil)
	}
	if err := os.MkdirAll(dir, constants.DirPermStandard); err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrTransportConnect, "не удалось создать каталог обмена", err)
	}
	opts = opts.withDefaults()
	return &LocalTransport{dir: dir, logger: opts.Logger, now: opts.Now}, nil
}

func (t *LocalTransport) path(name string) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(t.dir, filepath.FromSlash(name)), nil
}

// Fetch читает файл из каталога обмена.
func (t *LocalTransport) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := t.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, ioError("чтение "+name, err)
	}
	return data, nil
}

// Put записывает файл через временный файл в том же каталоге.
func (t *LocalTransport) Put(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := t.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), constants.DirPermStandard); err != nil {
		return ioError("создание каталога для "+name, err)
	}
	tmp := p + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, data, constants.FilePermReadWrite); err != nil {
		return ioError("запись "+name, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return ioError("переименование "+name, err)
	}
	return nil
}

// Remove удаляет файл.
func (t *LocalTransport) Remove(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := t.path(name)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return ioError("удаление "+name, err)
	}
	return nil
}

// Rename перемещает файл внутри каталога обмена.
func (t *LocalTransport) Rename(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := t.path(from)
	if err != nil {
		return err
	}
	dst, err := t.path(to)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), constants.DirPermStandard); err != nil {
		return ioError("создание каталога для "+to, err)
	}
	err = os.Rename(src, dst)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, from)
	}
	if err != nil {
		return ioError("перемещение "+from, err)
	}
	return nil
}

// AcquireLock захватывает блокировку файла.
func (t *LocalTransport) AcquireLock(ctx context.Context, fileName string, timeout time.Duration) (*connector.FileLock, error) {
	return acquireLock(ctx, t, fileName, timeout, t.now, t.logger)
}

// ReleaseLock снимает блокировку.
func (t *LocalTransport) ReleaseLock(ctx context.Context, lock *connector.FileLock) error {
	return releaseLock(ctx, t, lock, t.logger)
}

// Close ничего не делает: соединения нет.
func (t *LocalTransport) Close() error { return nil }

// createLock записывает содержимое во временный файл и публикует его
// жёсткой ссылкой: os.Link не заменяет существующий файл, а читатель
// никогда не видит блокировку без содержимого.
func (t *LocalTransport) createLock(_ context.Context, name string, data []byte) error {
	p, err := t.path(name)
	if err != nil {
		return err
	}
	tmp := p + "." + uuid.NewString() + ".tmp"
	if err := os.WriteFile(tmp, data, constants.FilePermReadWrite); err != nil {
		return ioError("создание блокировки "+name, err)
	}
	defer func() { _ = os.Remove(tmp) }()

	err = os.Link(tmp, p)
	if errors.Is(err, fs.ErrExist) {
		return errLockExists
	}
	if err != nil {
		return ioError("создание блокировки "+name, err)
	}
	return nil
}

func (t *LocalTransport) readLock(ctx context.Context, name string) ([]byte, error) {
	return t.Fetch(ctx, name)
}

// moveLock не пользуется os.Rename: он молча заменил бы блокировку,
// появившуюся под новым именем.
func (t *LocalTransport) moveLock(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := t.path(from)
	if err != nil {
		return err
	}
	dst, err := t.path(to)
	if err != nil {
		return err
	}
	err = os.Link(src, dst)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNotFound, from)
	case errors.Is(err, fs.ErrExist):
		return errLockExists
	case err != nil:
		return ioError("перенос блокировки "+from, err)
	}
	if err := os.Remove(src); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ioError("перенос блокировки "+from, err)
	}
	return nil
}

func (t *LocalTransport) dropLock(ctx context.Context, name string) error {
	return t.Remove(ctx, name)
}

func ioError(op string, err error) error {
	return apperrors.NewAppError(apperrors.ErrTransportIO, op, err)
}
