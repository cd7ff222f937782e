package transport

import (
	"fmt"
	"time"

	"github.com/Kargones/apk-exchange/internal/exchange/connector"
	"github.com/Kargones/apk-exchange/internal/pkg/logging"
)

// Options - общие параметры реализаций.
type Options struct {
	Logger logging.Logger
	// Now - источник времени для блокировок. По умолчанию time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logging.NewNopLogger()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Factory открывает транспорт подключения.
type Factory interface {
	Open(settings connector.TransportSettings) (Transport, error)
}

// FactoryFunc адаптирует функцию к Factory.
type FactoryFunc func(settings connector.TransportSettings) (Transport, error)

// Open вызывает f.
func (f FactoryFunc) Open(settings connector.TransportSettings) (Transport, error) {
	return f(settings)
}

// DefaultFactory выбирает реализацию по TransportSettings.Type.
//
//	factory := transport.NewFactory(transport.Options{Logger: logger})
//	tr, err := factory.Open(conn.Transport)
type DefaultFactory struct {
	opts Options
}

// NewFactory создаёт фабрику транспорта.
func NewFactory(opts Options) *DefaultFactory {
	return &DefaultFactory{opts: opts.withDefaults()}
}

// Open создаёт транспорт:
//   - "ftp" - FTPTransport;
//   - "local" - LocalTransport в каталоге Directory.
func (f *DefaultFactory) Open(settings connector.TransportSettings) (Transport, error) {
	switch settings.Type {
	case connector.TransportFTP:
		return NewFTPTransport(settings, f.opts)
	case connector.TransportLocal:
		return NewLocalTransport(settings.Directory, f.opts)
	default:
		return nil, fmt.Errorf("%w: %q, допустимо: ftp, local", ErrUnknownType, settings.Type)
	}
}
