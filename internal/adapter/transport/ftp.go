package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/textproto"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/Kargones/apk-exchange/internal/exchange/connector"
	"github.com/Kargones/apk-exchange/internal/pkg/apperrors"
	"github.com/Kargones/apk-exchange/internal/pkg/logging"

	"github.com/google/uuid"
	"github.com/jlaffaye/ftp"
)

// DefaultFTPPort - порт FTP по умолчанию.
const DefaultFTPPort = 21

// DefaultFTPTimeout - таймаут установки соединения и операций.
const DefaultFTPTimeout = 30 * time.Second

// Compile-time проверка реализации интерфейса
var _ Transport = (*FTPTransport)(nil)

// FTPTransport работает с каталогом обмена на FTP-сервере.
// Соединение устанавливается при первой операции и переиспользуется.
// Операции сериализуются: ftp.ServerConn не допускает параллельных команд.
type FTPTransport struct {
	settings connector.TransportSettings
	logger   logging.Logger
	now      func() time.Time

	mu   sync.Mutex
	conn *ftp.ServerConn
}

// NewFTPTransport создаёт FTP-транспорт. Подключение откладывается до
// первой операции.
func NewFTPTransport(settings connector.TransportSettings, opts Options) (*FTPTransport, error) {
	if settings.Host == "" {
		return nil, apperrors.NewAppError(apperrors.ErrTransportConnect, "не указан FTP host", nil)
	}
	if settings.Port == 0 {
		settings.Port = DefaultFTPPort
	}
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultFTPTimeout
	}
	opts = opts.withDefaults()
	if !settings.Passive {
		opts.Logger.Warn("активный режим FTP не поддерживается, используется пассивный", "host", settings.Host)
	}
	return &FTPTransport{settings: settings, logger: opts.Logger, now: opts.Now}, nil
}

// Addr возвращает адрес сервера host:port.
func (t *FTPTransport) Addr() string {
	return net.JoinHostPort(t.settings.Host, strconv.Itoa(t.settings.Port))
}

// connect возвращает открытое соединение. Вызывается под t.mu.
func (t *FTPTransport) connect(ctx context.Context) (*ftp.ServerConn, error) {
	if t.conn != nil {
		return t.conn, nil
	}
	conn, err := ftp.Dial(t.Addr(),
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(t.settings.Timeout),
		ftp.DialWithDisabledEPSV(!t.settings.Passive),
	)
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrTransportConnect, "не удалось подключиться к "+t.Addr(), err)
	}
	if err := conn.Login(t.settings.User, t.settings.Password); err != nil {
		_ = conn.Quit()
		return nil, apperrors.NewAppError(apperrors.ErrTransportConnect, "ошибка авторизации на "+t.Addr(), err)
	}
	if t.settings.Directory != "" {
		if err := conn.ChangeDir(t.settings.Directory); err != nil {
			_ = conn.Quit()
			return nil, apperrors.NewAppError(apperrors.ErrTransportConnect, "каталог обмена недоступен: "+t.settings.Directory, err)
		}
	}
	t.logger.Debug("FTP соединение установлено", "addr", t.Addr(), "dir", t.settings.Directory)
	t.conn = conn
	return conn, nil
}

// do выполняет операцию над соединением под мьютексом. Сетевая ошибка
// сбрасывает соединение, следующая операция подключится заново.
func (t *FTPTransport) do(ctx context.Context, op func(c *ftp.ServerConn) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	conn, err := t.connect(ctx)
	if err != nil {
		return err
	}
	err = op(conn)
	if err != nil && !isFTPStatus(err) {
		_ = conn.Quit()
		t.conn = nil
	}
	return err
}

// Fetch скачивает файл.
func (t *FTPTransport) Fetch(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := t.do(ctx, func(c *ftp.ServerConn) error {
		var err error
		data, err = ftpCommands{c}.readFile(name)
		return err
	})
	if err != nil {
		return nil, t.wrap("чтение "+name, name, err)
	}
	return data, nil
}

// Put загружает файл во временный и переименовывает его в целевой.
func (t *FTPTransport) Put(ctx context.Context, name string, data []byte) error {
	tmp := name + "." + uuid.NewString() + ".tmp"
	err := t.do(ctx, func(c *ftp.ServerConn) error {
		if err := c.Stor(tmp, bytes.NewReader(data)); err != nil {
			return err
		}
		if err := c.Rename(tmp, name); err != nil {
			_ = c.Delete(tmp)
			return err
		}
		return nil
	})
	if err != nil {
		return t.wrap("запись "+name, name, err)
	}
	return nil
}

// Remove удаляет файл.
func (t *FTPTransport) Remove(ctx context.Context, name string) error {
	err := t.do(ctx, func(c *ftp.ServerConn) error {
		return c.Delete(name)
	})
	if err != nil {
		return t.wrap("удаление "+name, name, err)
	}
	return nil
}

// Rename перемещает файл. Каталог назначения создаётся при отсутствии.
func (t *FTPTransport) Rename(ctx context.Context, from, to string) error {
	err := t.do(ctx, func(c *ftp.ServerConn) error {
		if dir := path.Dir(to); dir != "." {
			// Каталог может уже существовать: ошибку MKD игнорируем.
			_ = c.MakeDir(dir)
		}
		return c.Rename(from, to)
	})
	if err != nil {
		return t.wrap("перемещение "+from, from, err)
	}
	return nil
}

// AcquireLock захватывает блокировку каталогом <файл>.lock.d: команда MKD
// атомарна на сервере, содержимое блокировки хранится внутри каталога.
func (t *FTPTransport) AcquireLock(ctx context.Context, fileName string, timeout time.Duration) (*connector.FileLock, error) {
	return acquireLock(ctx, t.locks(), fileName, timeout, t.now, t.logger)
}

// ReleaseLock снимает блокировку.
func (t *FTPTransport) ReleaseLock(ctx context.Context, lock *connector.FileLock) error {
	return releaseLock(ctx, t.locks(), lock, t.logger)
}

func (t *FTPTransport) locks() ftpLocks {
	return ftpLocks{
		run: func(ctx context.Context, op func(ftpDir) error) error {
			return t.do(ctx, func(c *ftp.ServerConn) error { return op(ftpCommands{c}) })
		},
		wrap: t.wrap,
	}
}

// Close завершает FTP-сессию.
func (t *FTPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return nil
	}
	err := t.conn.Quit()
	t.conn = nil
	return err
}

func (t *FTPTransport) wrap(op, name string, err error) error {
	if isFTPNotFound(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if apperrors.CodeOf(err) != "" || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return ioError(op, err)
}

// isFTPStatus сообщает, что ошибка - ответ сервера, а не сбой соединения.
func isFTPStatus(err error) bool {
	var tpErr *textproto.Error
	return errors.As(err, &tpErr)
}

// isFTPNotFound распознаёт ответ 550 на RETR/DELE/RNFR.
func isFTPNotFound(err error) bool {
	var tpErr *textproto.Error
	return errors.As(err, &tpErr) && tpErr.Code == ftp.StatusFileUnavailable
}
