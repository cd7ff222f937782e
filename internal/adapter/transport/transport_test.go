package transport

import (
	"context"
	"errors"
	"net/textproto"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Kargones/apk-exchange/internal/exchange/connector"
	"github.com/Kargones/apk-exchange/internal/pkg/apperrors"

	"github.com/jlaffaye/ftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T, now func() time.Time) *LocalTransport {
	t.Helper()
	tr, err := NewLocalTransport(t.TempDir(), Options{Now: now})
	require.NoError(t, err)
	return tr
}

func TestLocalTransport_ОперацииНадФайлами(t *testing.T) {
	tr := newLocal(t, nil)
	ctx := context.Background()
	name := connector.MessageFileName("APK", "ERP")

	_, err := tr.Fetch(ctx, name)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, tr.Put(ctx, name, []byte("<Message/>")))
	data, err := tr.Fetch(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "<Message/>", string(data))

	require.NoError(t, tr.Put(ctx, name, []byte("<Message>2</Message>")))
	data, err = tr.Fetch(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, "<Message>2</Message>", string(data), "повторная запись заменяет файл")

	entries, err := os.ReadDir(tr.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "временные файлы не остаются")

	quarantine := connector.QuarantineFile(name, time.Unix(1700000000, 0))
	require.NoError(t, tr.Rename(ctx, name, quarantine))
	_, err = os.Stat(filepath.Join(tr.dir, "error", name+".1700000000"))
	assert.NoError(t, err)

	assert.ErrorIs(t, tr.Remove(ctx, name), ErrNotFound)
	require.NoError(t, tr.Remove(ctx, quarantine))
	assert.ErrorIs(t, tr.Rename(ctx, name, "other.xml"), ErrNotFound)
}

func TestLocalTransport_НедопустимоеИмя(t *testing.T) {
	tr := newLocal(t, nil)
	ctx := context.Background()

	for _, name := range []string{"../escape.xml", "/etc/passwd", ""} {
		_, err := tr.Fetch(ctx, name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
		assert.ErrorIs(t, tr.Put(ctx, name, nil), ErrInvalidName, name)
	}
}

func TestLocalTransport_ОтменённыйКонтекст(t *testing.T) {
	tr := newLocal(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tr.Fetch(ctx, "a.xml")
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, tr.Put(ctx, "a.xml", nil), context.Canceled)
	_, err = tr.AcquireLock(ctx, "a.xml", time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalTransport_Блокировка(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tr := newLocal(t, clock)
	ctx := context.Background()

	lock, err := tr.AcquireLock(ctx, "Message_ERP_APK.xml", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "Message_ERP_APK.xml", lock.FileName)
	assert.NotEmpty(t, lock.LockID)

	_, err = tr.AcquireLock(ctx, "Message_ERP_APK.xml", time.Minute)
	assert.ErrorIs(t, err, ErrLockConflict)

	_, err = tr.AcquireLock(ctx, "Message_APK_ERP.xml", time.Minute)
	assert.NoError(t, err, "блокировки разных файлов независимы")

	require.NoError(t, tr.ReleaseLock(ctx, lock))
	_, err = tr.Fetch(ctx, lock.LockFile())
	assert.ErrorIs(t, err, ErrNotFound)

	again, err := tr.AcquireLock(ctx, "Message_ERP_APK.xml", time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, lock.LockID, again.LockID)

	assert.NoError(t, tr.ReleaseLock(ctx, nil))
}

func TestLocalTransport_ПерехватИстёкшейБлокировки(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tr := newLocal(t, func() time.Time { return now })
	ctx := context.Background()

	old, err := tr.AcquireLock(ctx, "m.xml", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	fresh, err := tr.AcquireLock(ctx, "m.xml", time.Minute)
	require.NoError(t, err)
	assert.NotEqual(t, old.LockID, fresh.LockID)

	assert.ErrorIs(t, tr.ReleaseLock(ctx, old), ErrLockLost, "старый владелец не снимает чужую блокировку")
	_, err = tr.Fetch(ctx, fresh.LockFile())
	assert.NoError(t, err)
}

func TestLocalTransport_ПовреждённаяБлокировкаПерехватывается(t *testing.T) {
	tr := newLocal(t, nil)
	ctx := context.Background()
	require.NoError(t, tr.Put(ctx, connector.LockFileName("m.xml"), []byte("мусор")))

	lock, err := tr.AcquireLock(ctx, "m.xml", time.Minute)
	require.NoError(t, err)
	assert.NotEmpty(t, lock.LockID)
}

func TestLocalTransport_КонкурентныйЗахват(t *testing.T) {
	tr := newLocal(t, nil)
	ctx := context.Background()

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := tr.AcquireLock(ctx, "m.xml", time.Minute); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestNewLocalTransport_ПустойКаталог(t *testing.T) {
	_, err := NewLocalTransport("", Options{})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrTransportConnect))
}

func TestFactory(t *testing.T) {
	f := NewFactory(Options{})

	tr, err := f.Open(connector.TransportSettings{Type: connector.TransportLocal, Directory: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &LocalTransport{}, tr)

	tr, err = f.Open(connector.TransportSettings{Type: connector.TransportFTP, Host: "ftp.local", Passive: true})
	require.NoError(t, err)
	ftpTr, ok := tr.(*FTPTransport)
	require.True(t, ok)
	assert.Equal(t, "ftp.local:21", ftpTr.Addr())
	assert.NoError(t, ftpTr.Close(), "закрытие без соединения")

	_, err = f.Open(connector.TransportSettings{Type: "smb"})
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = f.Open(connector.TransportSettings{Type: connector.TransportFTP})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrTransportConnect))
}

func TestFTPTransport_РазборОшибок(t *testing.T) {
	tr, err := NewFTPTransport(connector.TransportSettings{Host: "::1", Port: 2121, Passive: true}, Options{})
	require.NoError(t, err)
	assert.Equal(t, "[::1]:2121", tr.Addr())

	notFound := &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: "No such file"}
	assert.True(t, isFTPNotFound(notFound))
	assert.True(t, isFTPStatus(notFound))
	assert.ErrorIs(t, tr.wrap("чтение", "m.xml", notFound), ErrNotFound)

	denied := &textproto.Error{Code: ftp.StatusNotLoggedIn, Msg: "Not logged in"}
	assert.False(t, isFTPNotFound(denied))
	assert.True(t, apperrors.IsCode(tr.wrap("чтение", "m.xml", denied), apperrors.ErrTransportIO))

	assert.False(t, isFTPStatus(errors.New("connection reset")))
	assert.ErrorIs(t, tr.wrap("чтение", "m.xml", context.Canceled), context.Canceled)
}

func TestFTPTransport_НедоступныйСервер(t *testing.T) {
	tr, err := NewFTPTransport(connector.TransportSettings{
		Host: "127.0.0.1", Port: 1, Passive: true, Timeout: time.Second,
	}, Options{})
	require.NoError(t, err)

	_, err = tr.Fetch(context.Background(), "m.xml")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrTransportConnect))
}
