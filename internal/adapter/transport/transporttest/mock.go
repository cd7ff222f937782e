// Package transporttest предоставляет тестовые реализации transport.Transport.
package transporttest

import (
	"context"
	"time"

	"github.com/Kargones/apk-exchange/internal/adapter/transport"
	"github.com/Kargones/apk-exchange/internal/exchange/connector"
)

// Compile-time проверка реализации интерфейса
var _ transport.Transport = (*MockTransport)(nil)

// MockTransport - мок transport.Transport с функциональными полями.
// Незаданные функции делегируются Base, при отсутствии Base возвращается
// нулевой результат.
type MockTransport struct {
	Base transport.Transport

	FetchFunc       func(ctx context.Context, name string) ([]byte, error)
	PutFunc         func(ctx context.Context, name string, data []byte) error
	RemoveFunc      func(ctx context.Context, name string) error
	RenameFunc      func(ctx context.Context, from, to string) error
	AcquireLockFunc func(ctx context.Context, fileName string, timeout time.Duration) (*connector.FileLock, error)
	ReleaseLockFunc func(ctx context.Context, lock *connector.FileLock) error
	CloseFunc       func() error
}

// Fetch читает файл.
func (m *MockTransport) Fetch(ctx context.Context, name string) ([]byte, error) {
	if m.FetchFunc != nil {
		return m.FetchFunc(ctx, name)
	}
	if m.Base != nil {
		return m.Base.Fetch(ctx, name)
	}
	return nil, transport.ErrNotFound
}

// Put записывает файл.
func (m *MockTransport) Put(ctx context.Context, name string, data []byte) error {
	if m.PutFunc != nil {
		return m.PutFunc(ctx, name, data)
	}
	if m.Base != nil {
		return m.Base.Put(ctx, name, data)
	}
	return nil
}

// Remove удаляет файл.
func (m *MockTransport) Remove(ctx context.Context, name string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, name)
	}
	if m.Base != nil {
		return m.Base.Remove(ctx, name)
	}
	return nil
}

// Rename перемещает файл.
func (m *MockTransport) Rename(ctx context.Context, from, to string) error {
	if m.RenameFunc != nil {
		return m.RenameFunc(ctx, from, to)
	}
	if m.Base != nil {
		return m.Base.Rename(ctx, from, to)
	}
	return nil
}

// AcquireLock захватывает блокировку.
func (m *MockTransport) AcquireLock(ctx context.Context, fileName string, timeout time.Duration) (*connector.FileLock, error) {
	if m.AcquireLockFunc != nil {
		return m.AcquireLockFunc(ctx, fileName, timeout)
	}
	if m.Base != nil {
		return m.Base.AcquireLock(ctx, fileName, timeout)
	}
	lock := connector.NewFileLock(fileName, time.Now())
	return &lock, nil
}

// ReleaseLock снимает блокировку.
func (m *MockTransport) ReleaseLock(ctx context.Context, lock *connector.FileLock) error {
	if m.ReleaseLockFunc != nil {
		return m.ReleaseLockFunc(ctx, lock)
	}
	if m.Base != nil {
		return m.Base.ReleaseLock(ctx, lock)
	}
	return nil
}

// Close закрывает транспорт.
func (m *MockTransport) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	if m.Base != nil {
		return m.Base.Close()
	}
	return nil
}

// StaticFactory возвращает фабрику, всегда открывающую tr.
func StaticFactory(tr transport.Transport) transport.FactoryFunc {
	return func(connector.TransportSettings) (transport.Transport, error) {
		return tr, nil
	}
}
