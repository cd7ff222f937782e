package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Kargones/apk-exchange/internal/exchange/connector"
	"github.com/Kargones/apk-exchange/internal/pkg/logging"

	"github.com/google/uuid"
)

var (
	// errLockExists - блокировка под этим именем уже есть.
	errLockExists = errors.New("файл блокировки существует")
	// errLockChanged - перенесённая блокировка оказалась не той, что была прочитана.
	errLockChanged = errors.New("блокировка сменила владельца")
)

// lockBackend - примитивы, поверх которых реализован протокол блокировки.
// Имя везде - имя блокировки (connector.LockFileName), способ хранения
// выбирает транспорт.
type lockBackend interface {
	// createLock публикует блокировку, только если её ещё нет (errLockExists).
	createLock(ctx context.Context, name string, data []byte) error
	// readLock возвращает содержимое блокировки или ErrNotFound.
	readLock(ctx context.Context, name string) ([]byte, error)
	// moveLock переносит блокировку под другое, ещё не занятое имя.
	// ErrNotFound - переносить нечего, errLockExists - имя занято.
	moveLock(ctx context.Context, from, to string) error
	// dropLock удаляет блокировку.
	dropLock(ctx context.Context, name string) error
}

// maxLockAttempts - попытки захвата после перехвата брошенной блокировки.
const maxLockAttempts = 2

func acquireLock(ctx context.Context, b lockBackend, fileName string, timeout time.Duration, now func() time.Time, logger logging.Logger) (*connector.FileLock, error) {
	for attempt := 0; attempt < maxLockAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lock := connector.NewFileLock(fileName, now())
		data, err := lock.Encode()
		if err != nil {
			return nil, err
		}

		err = b.createLock(ctx, lock.LockFile(), data)
		if err == nil {
			logger.Debug("блокировка захвачена", "file", fileName, "lock_id", lock.LockID)
			return &lock, nil
		}
		if !errors.Is(err, errLockExists) {
			return nil, err
		}

		raw, err := b.readLock(ctx, lock.LockFile())
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		held, decodeErr := connector.DecodeFileLock(raw)
		if decodeErr == nil && !held.IsExpired(now(), timeout) {
			return nil, conflict(fileName, held)
		}

		logger.Warn("перехват брошенной блокировки",
			"file", fileName,
			"lock_id", held.LockID,
			"created_at", held.CreatedAt,
			"corrupted", decodeErr != nil,
		)
		err = reclaimLock(ctx, b, lock.LockFile(), raw, logger)
		if err != nil && !errors.Is(err, errLockChanged) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrLockConflict, fileName)
}

func releaseLock(ctx context.Context, b lockBackend, lock *connector.FileLock, logger logging.Logger) error {
	if lock == nil {
		return nil
	}
	raw, err := b.readLock(ctx, lock.LockFile())
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	held, err := connector.DecodeFileLock(raw)
	if err == nil && held.LockID != lock.LockID {
		return fmt.Errorf("%w: %s", ErrLockLost, lock.FileName)
	}
	err = reclaimLock(ctx, b, lock.LockFile(), raw, logger)
	if errors.Is(err, errLockChanged) {
		return fmt.Errorf("%w: %s", ErrLockLost, lock.FileName)
	}
	return err
}

// reclaimLock убирает блокировку с содержимым seen. Блокировка сначала
// переносится под уникальное имя и только потом удаляется, поэтому чужая
// блокировка, созданная после чтения, не пропадает: она возвращается на
// место и результатом будет errLockChanged.
func reclaimLock(ctx context.Context, b lockBackend, name string, seen []byte, logger logging.Logger) error {
	aside := name + "." + uuid.NewString() + ".stale"
	err := b.moveLock(ctx, name, aside)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	moved, err := b.readLock(ctx, aside)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err == nil && !bytes.Equal(moved, seen) {
		if err := b.moveLock(ctx, aside, name); err == nil {
			return errLockChanged
		}
		// Под прежним именем уже новая блокировка: перенесённая потеряна,
		// её владелец узнает об этом при снятии.
		logger.Warn("перенесённую блокировку не удалось вернуть", "lock", name)
	}
	if err := b.dropLock(ctx, aside); err != nil && !errors.Is(err, ErrNotFound) {
		logger.Warn("перенесённая блокировка не удалена", "lock", aside, logging.KeyError, err.Error())
	}
	return nil
}

func conflict(fileName string, held connector.FileLock) error {
	return fmt.Errorf("%w: %s (lock_id=%s, с %s)",
		ErrLockConflict, fileName, held.LockID, held.CreatedAt.Format(time.RFC3339))
}
