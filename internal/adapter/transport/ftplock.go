package transport

import (
	"bytes"
	"context"
	"io"
	"path"
	"time"

	"github.com/Kargones/apk-exchange/internal/exchange/connector"

	"github.com/jlaffaye/ftp"
)

const (
	// lockPayloadName - файл с содержимым блокировки внутри её каталога.
	lockPayloadName = "owner.json"
	pendingLockID   = "pending"
)

// ftpDir - команды сервера, на которых держится блокировка.
type ftpDir interface {
	MakeDir(path string) error
	RemoveDir(path string) error
	List(path string) ([]*ftp.Entry, error)
	Rename(from, to string) error
	Delete(path string) error
	Stor(path string, r io.Reader) error
	readFile(path string) ([]byte, error)
}

// ftpCommands дополняет соединение чтением файла целиком.
type ftpCommands struct {
	*ftp.ServerConn
}

func (c ftpCommands) readFile(name string) ([]byte, error) {
	resp, err := c.Retr(name)
	if err != nil {
		return nil, err
	}
	defer resp.Close()
	return io.ReadAll(resp)
}

// ftpLocks хранит блокировку каталогом: MKD либо создаёт его, либо
// отвечает ошибкой, если каталог уже есть.
type ftpLocks struct {
	run  func(ctx context.Context, op func(ftpDir) error) error
	wrap func(op, name string, err error) error
}

func lockDir(name string) string { return name + ".d" }

func lockPayload(dir string) string { return path.Join(dir, lockPayloadName) }

func (l ftpLocks) createLock(ctx context.Context, name string, data []byte) error {
	dir := lockDir(name)
	var written []byte
	err := l.run(ctx, func(c ftpDir) error {
		if err := c.MakeDir(dir); err != nil {
			return err
		}
		if err := c.Stor(lockPayload(dir), bytes.NewReader(data)); err != nil {
			return err
		}
		var err error
		written, err = c.readFile(lockPayload(dir))
		return err
	})
	switch {
	case err == nil && bytes.Equal(written, data):
		return nil
	case err == nil:
		// Каталог перехватили как брошенный до записи содержимого.
		return errLockExists
	case isFTPStatus(err):
		// Отказ MKD: каталог уже есть. Отказ STOR: его успели перенести.
		return errLockExists
	}
	return l.wrap("создание блокировки "+name, dir, err)
}

// readLock для каталога без содержимого (захват ещё идёт или прерван
// между MKD и STOR) возвращает блокировку со временем создания каталога:
// она держится до истечения таймаута, как обычная.
func (l ftpLocks) readLock(ctx context.Context, name string) ([]byte, error) {
	dir := lockDir(name)
	var data []byte
	err := l.run(ctx, func(c ftpDir) error {
		var err error
		data, err = c.readFile(lockPayload(dir))
		if err == nil || !isFTPNotFound(err) {
			return err
		}
		entries, listErr := c.List(path.Dir(dir))
		if listErr != nil {
			return err
		}
		for _, e := range entries {
			if e.Name == path.Base(dir) && e.Type == ftp.EntryTypeFolder {
				data, err = pendingLock(e.Time)
				return err
			}
		}
		return err
	})
	if err != nil {
		return nil, l.wrap("чтение блокировки "+name, name, err)
	}
	return data, nil
}

// pendingLock описывает каталог блокировки, в котором ещё нет содержимого.
// Содержимое зависит только от времени каталога: после переноса в сторону
// оно должно совпасть с прочитанным.
func pendingLock(created time.Time) ([]byte, error) {
	return connector.FileLock{
		LockID:    pendingLockID,
		CreatedAt: created.UTC(),
	}.Encode()
}

func (l ftpLocks) moveLock(ctx context.Context, from, to string) error {
	err := l.run(ctx, func(c ftpDir) error {
		return c.Rename(lockDir(from), lockDir(to))
	})
	if err != nil {
		return l.wrap("перенос блокировки "+from, from, err)
	}
	return nil
}

func (l ftpLocks) dropLock(ctx context.Context, name string) error {
	dir := lockDir(name)
	err := l.run(ctx, func(c ftpDir) error {
		if err := c.Delete(lockPayload(dir)); err != nil && !isFTPNotFound(err) {
			return err
		}
		return c.RemoveDir(dir)
	})
	if err != nil {
		return l.wrap("удаление блокировки "+name, name, err)
	}
	return nil
}
