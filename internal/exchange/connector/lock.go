package connector

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FileLock - рекомендательная блокировка файла обмена с ограниченным сроком.
// Блокировка старше таймаута считается брошенной и может быть перехвачена.
type FileLock struct {
	FileName  string    `json:"file_name"`
	LockID    string    `json:"lock_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewFileLock создаёт блокировку с новым идентификатором.
func NewFileLock(fileName string, now time.Time) FileLock {
	return FileLock{
		FileName:  fileName,
		LockID:    uuid.NewString(),
		CreatedAt: now.UTC(),
	}
}

// IsExpired сообщает, истёк ли срок блокировки. timeout <= 0 заменяется
// DefaultLockTimeout.
func (l FileLock) IsExpired(now time.Time, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return now.Sub(l.CreatedAt) > timeout
}

// LockFile возвращает имя файла, в котором хранится блокировка.
func (l FileLock) LockFile() string {
	return LockFileName(l.FileName)
}

// Encode сериализует блокировку для записи в файл блокировки.
func (l FileLock) Encode() ([]byte, error) {
	return json.Marshal(l)
}

// DecodeFileLock читает блокировку из содержимого файла блокировки.
func DecodeFileLock(data []byte) (FileLock, error) {
	var l FileLock
	if err := json.Unmarshal(data, &l); err != nil {
		return FileLock{}, fmt.Errorf("некорректный файл блокировки: %w", err)
	}
	if l.LockID == "" {
		return FileLock{}, fmt.Errorf("некорректный файл блокировки: пустой lock_id")
	}
	return l, nil
}
