package transport

import (
	"context"
	"io"
	"net/textproto"
	"path"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Kargones/apk-exchange/internal/exchange/connector"
	"github.com/Kargones/apk-exchange/internal/pkg/logging"

	"github.com/jlaffaye/ftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFTP - каталог FTP-сервера в памяти. Ошибки отдаются кодами ответа,
// как их возвращает ftp.ServerConn.
type memFTP struct {
	mu    sync.Mutex
	now   func() time.Time
	dirs  map[string]time.Time
	files map[string][]byte

	// beforeRename вызывается перед RNFR, вне мьютекса.
	beforeRename func(from, to string)
}

func newMemFTP() *memFTP {
	return &memFTP{now: time.Now, dirs: map[string]time.Time{}, files: map[string][]byte{}}
}

var (
	nop     = logging.NewNopLogger()
	hourAgo = time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)
)

func unavailable(p string) error {
	return &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: p + ": No such file or directory"}
}

func (m *memFTP) MakeDir(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dirs[p]; ok {
		return &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: p + ": File exists"}
	}
	m.dirs[p] = m.now()
	return nil
}

func (m *memFTP) RemoveDir(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dirs[p]; !ok {
		return unavailable(p)
	}
	for name := range m.files {
		if path.Dir(name) == p {
			return &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: p + ": Directory not empty"}
		}
	}
	delete(m.dirs, p)
	return nil
}

// List перечисляет только каталоги верхнего уровня: других там не бывает.
func (m *memFTP) List(p string) ([]*ftp.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p != "." {
		return nil, unavailable(p)
	}
	var entries []*ftp.Entry
	for d, created := range m.dirs {
		entries = append(entries, &ftp.Entry{Name: d, Type: ftp.EntryTypeFolder, Time: created})
	}
	return entries, nil
}

func (m *memFTP) Rename(from, to string) error {
	if m.beforeRename != nil {
		m.beforeRename(from, to)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	created, ok := m.dirs[from]
	if !ok {
		return unavailable(from)
	}
	if _, ok := m.dirs[to]; ok {
		return &textproto.Error{Code: ftp.StatusFileUnavailable, Msg: to + ": File exists"}
	}
	delete(m.dirs, from)
	m.dirs[to] = created
	for name, data := range m.files {
		if path.Dir(name) == from {
			delete(m.files, name)
			m.files[path.Join(to, path.Base(name))] = data
		}
	}
	return nil
}

func (m *memFTP) Delete(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[p]; !ok {
		return unavailable(p)
	}
	delete(m.files, p)
	return nil
}

func (m *memFTP) Stor(p string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dirs[path.Dir(p)]; !ok {
		return unavailable(p)
	}
	m.files[p] = data
	return nil
}

func (m *memFTP) readFile(p string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[p]
	if !ok {
		return nil, unavailable(p)
	}
	return data, nil
}

func (m *memFTP) dirNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for d := range m.dirs {
		names = append(names, d)
	}
	sort.Strings(names)
	return names
}

func memLocks(t *testing.T, m *memFTP) ftpLocks {
	t.Helper()
	tr, err := NewFTPTransport(connector.TransportSettings{Host: "localhost", Passive: true}, Options{})
	require.NoError(t, err)
	return ftpLocks{
		run:  func(_ context.Context, op func(ftpDir) error) error { return op(m) },
		wrap: tr.wrap,
	}
}

func TestFTPLock_ЗахватИСнятие(t *testing.T) {
	m := newMemFTP()
	locks := memLocks(t, m)
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	ctx := context.Background()

	lock, err := acquireLock(ctx, locks, "Message_APK_ERP.xml", time.Minute, clock, nop)
	require.NoError(t, err)
	assert.Equal(t, []string{"Message_APK_ERP.xml.lock.d"}, m.dirNames())

	raw, err := m.readFile("Message_APK_ERP.xml.lock.d/owner.json")
	require.NoError(t, err)
	held, err := connector.DecodeFileLock(raw)
	require.NoError(t, err)
	assert.Equal(t, lock.LockID, held.LockID)

	_, err = acquireLock(ctx, locks, "Message_APK_ERP.xml", time.Minute, clock, nop)
	assert.ErrorIs(t, err, ErrLockConflict)

	require.NoError(t, releaseLock(ctx, locks, lock, nop))
	assert.Empty(t, m.dirNames())
	assert.NoError(t, releaseLock(ctx, locks, lock, nop), "повторное снятие ничего не делает")
}

func TestFTPLock_ПерехватПереносомВСторону(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(m *memFTP)
	}{
		{
			name: "истёкшая блокировка",
			prepare: func(m *memFTP) {
				old := connector.NewFileLock("m.xml", time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC))
				data, _ := old.Encode()
				m.dirs["m.xml.lock.d"] = hourAgo
				m.files["m.xml.lock.d/owner.json"] = data
			},
		},
		{
			name: "повреждённое содержимое",
			prepare: func(m *memFTP) {
				m.dirs["m.xml.lock.d"] = hourAgo
				m.files["m.xml.lock.d/owner.json"] = []byte("мусор")
			},
		},
		{
			name: "каталог без содержимого",
			prepare: func(m *memFTP) {
				m.dirs["m.xml.lock.d"] = hourAgo
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMemFTP()
			tt.prepare(m)
			var renames []string
			m.beforeRename = func(from, to string) { renames = append(renames, from+" -> "+to) }
			now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

			lock, err := acquireLock(context.Background(), memLocks(t, m), "m.xml", time.Minute,
				func() time.Time { return now }, nop)
			require.NoError(t, err)

			require.Len(t, renames, 1)
			assert.True(t, strings.HasPrefix(renames[0], "m.xml.lock.d -> m.xml.lock."), renames[0])
			assert.Equal(t, []string{"m.xml.lock.d"}, m.dirNames(), "перенесённый каталог удалён")
			raw, err := m.readFile("m.xml.lock.d/owner.json")
			require.NoError(t, err)
			held, err := connector.DecodeFileLock(raw)
			require.NoError(t, err)
			assert.Equal(t, lock.LockID, held.LockID)
		})
	}
}

func TestFTPLock_КаталогБезСодержимогоДержитсяДоТаймаута(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := newMemFTP()
	m.now = clock
	locks := memLocks(t, m)
	ctx := context.Background()

	require.NoError(t, m.MakeDir("m.xml.lock.d"))

	_, err := acquireLock(ctx, locks, "m.xml", time.Minute, clock, nop)
	require.ErrorIs(t, err, ErrLockConflict)
	assert.Contains(t, err.Error(), "lock_id=pending")

	now = now.Add(2 * time.Minute)
	lock, err := acquireLock(ctx, locks, "m.xml", time.Minute, clock, nop)
	require.NoError(t, err)
	assert.NotEqual(t, pendingLockID, lock.LockID)
}

func TestFTPLock_СвежаяБлокировкаНеТеряетсяПриПерехвате(t *testing.T) {
	m := newMemFTP()
	locks := memLocks(t, m)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	stale := connector.NewFileLock("m.xml", now.Add(-time.Hour))
	data, err := stale.Encode()
	require.NoError(t, err)
	m.dirs["m.xml.lock.d"] = hourAgo
	m.files["m.xml.lock.d/owner.json"] = data

	// Пока этот узел решает, что блокировка брошена, другой узел успевает
	// перехватить её и захватить заново.
	var rival *connector.FileLock
	m.beforeRename = func(from, _ string) {
		if rival != nil || from != "m.xml.lock.d" {
			return
		}
		m.beforeRename = nil
		require.NoError(t, m.Rename("m.xml.lock.d", "m.xml.lock.other.stale.d"))
		require.NoError(t, locks.dropLock(ctx, "m.xml.lock.other.stale"))
		fresh := connector.NewFileLock("m.xml", now)
		rival = &fresh
		raw, err := fresh.Encode()
		require.NoError(t, err)
		require.NoError(t, locks.createLock(ctx, fresh.LockFile(), raw))
	}

	_, err = acquireLock(ctx, locks, "m.xml", time.Minute, clock, nop)
	assert.ErrorIs(t, err, ErrLockConflict)

	require.NotNil(t, rival)
	raw, err := m.readFile("m.xml.lock.d/owner.json")
	require.NoError(t, err)
	held, err := connector.DecodeFileLock(raw)
	require.NoError(t, err)
	assert.Equal(t, rival.LockID, held.LockID, "блокировка другого узла возвращена на место")
	assert.Equal(t, []string{"m.xml.lock.d"}, m.dirNames())
	assert.NoError(t, releaseLock(ctx, locks, rival, nop))
}

func TestFTPLock_СнятиеЧужойБлокировки(t *testing.T) {
	m := newMemFTP()
	locks := memLocks(t, m)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	old, err := acquireLock(ctx, locks, "m.xml", time.Minute, clock, nop)
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	fresh, err := acquireLock(ctx, locks, "m.xml", time.Minute, clock, nop)
	require.NoError(t, err)

	assert.ErrorIs(t, releaseLock(ctx, locks, old, nop), ErrLockLost)
	assert.Equal(t, []string{"m.xml.lock.d"}, m.dirNames())
	assert.NoError(t, releaseLock(ctx, locks, fresh, nop))
}

func TestFTPLock_КонкурентныйЗахват(t *testing.T) {
	m := newMemFTP()
	locks := memLocks(t, m)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := acquireLock(context.Background(), locks, "m.xml", time.Minute, time.Now, nop); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
