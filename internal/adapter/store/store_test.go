package store

import (
	"context"
	"testing"
	"time"

	"github.com/Kargones/apk-exchange/internal/exchange/audit"
	"github.com/Kargones/apk-exchange/internal/exchange/entity"
	"github.com/Kargones/apk-exchange/internal/exchange/result"
	"github.com/Kargones/apk-exchange/internal/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore открывает SQLite в памяти с применёнными миграциями.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Driver: DriverSQLite, Path: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestOpen_НекорректныеПараметры(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"неизвестный драйвер", Config{Driver: "postgres"}},
		{"sqlite без пути", Config{Driver: DriverSQLite}},
		{"sqlserver без сервера", Config{Driver: DriverSQLServer}},
		{"sqlserver с неверным портом", Config{Driver: DriverSQLServer, Server: "db", Port: 70000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(context.Background(), tt.cfg, nil)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrStoreOpen))
		})
	}
}

func TestSQLServerDSN(t *testing.T) {
	dsn, err := sqlServerDSN(Config{
		Server: "db.local", User: "exchange", Password: "p;ss=word", Database: "apk", Timeout: 15 * time.Second,
	})
	require.NoError(t, err)
	assert.Contains(t, dsn, "server=db.local;")
	assert.Contains(t, dsn, "port=1433;")
	assert.Contains(t, dsn, "encrypt=disable;")
	assert.Contains(t, dsn, "password=p%3Bss%3Dword;")
	assert.Contains(t, dsn, "connection timeout=15")

	dsn, err = sqlServerDSN(Config{Server: "db.local", Encrypt: true, Port: 1533})
	require.NoError(t, err)
	assert.Contains(t, dsn, "encrypt=true;")
	assert.Contains(t, dsn, "port=1533;")
}

func TestMigrate_Идемпотентно(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Migrate(ctx))
	version, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(sqliteMigrations), version)

	for _, table := range []string{
		"exchange_entities", "exchange_changes", "exchange_connector_state",
		"exchange_logs", "exchange_unmapped_objects",
	} {
		var n int
		require.NoError(t, s.DB().QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n))
		assert.Equal(t, 1, n, table)
	}
}

func TestMigrations_ДиалектыСогласованы(t *testing.T) {
	require.Equal(t, len(sqliteMigrations), len(sqlServerMigrations))
	for i := range sqliteMigrations {
		assert.Len(t, sqlServerMigrations[i], len(sqliteMigrations[i]), "миграция %d", i+1)
	}
}

func TestStore_Сущности(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	org := &entity.Organization{Ref: "org-1", Name: "АПК", INN: "7700000001"}

	created, err := s.Upsert(ctx, org)
	require.NoError(t, err)
	assert.True(t, created)

	org.Name = "АПК холдинг"
	created, err = s.Upsert(ctx, org)
	require.NoError(t, err)
	assert.False(t, created)

	found, err := s.Find(ctx, entity.KindOrganization, "org-1")
	require.NoError(t, err)
	assert.Equal(t, org, found)

	ok, err := s.Exists(ctx, entity.KindOrganization, "org-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, entity.KindCounterparty, "org-1")
	require.NoError(t, err)
	assert.False(t, ok, "вид сущности входит в ключ")

	n, err := s.Count(ctx, entity.KindOrganization)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestStore_MarkDeleted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Upsert(ctx, &entity.Currency{Ref: "cur-1", Code: "643", Name: "RUB"})
	require.NoError(t, err)

	found, err := s.MarkDeleted(ctx, entity.KindCurrency, "cur-1")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = s.MarkDeleted(ctx, entity.KindCurrency, "cur-1")
	require.NoError(t, err)
	assert.False(t, found, "повторное удаление")

	_, err = s.Find(ctx, entity.KindCurrency, "cur-1")
	assert.ErrorIs(t, err, ErrNotFound)
	ok, err := s.Exists(ctx, entity.KindCurrency, "cur-1")
	require.NoError(t, err)
	assert.False(t, ok)

	created, err := s.Upsert(ctx, &entity.Currency{Ref: "cur-1", Code: "643", Name: "RUB"})
	require.NoError(t, err)
	assert.False(t, created, "повторная загрузка восстанавливает запись")
	ok, err = s.Exists(ctx, entity.KindCurrency, "cur-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_UpsertБезGUID(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Upsert(context.Background(), &entity.Organization{})
	assert.Error(t, err)
}

func TestStore_Изменения(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RegisterChange(ctx, "erp", entity.KindOrganization, "org-1", false))
	require.NoError(t, s.RegisterChange(ctx, "erp", entity.KindCounterparty, "cp-1", false))
	require.NoError(t, s.RegisterChange(ctx, "bank", entity.KindOrganization, "org-1", false))

	changes, err := s.PendingChanges(ctx, "erp")
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, "org-1", changes[0].GUID)
	assert.Equal(t, entity.KindCounterparty, changes[1].Kind)
	assert.Zero(t, changes[0].MessageNo)
	assert.False(t, changes[0].RegisteredAt.IsZero())

	require.NoError(t, s.AssignMessageNo(ctx, "erp", []int64{changes[0].ID, changes[1].ID}, 1))

	// Объект изменён снова после отправки: уйдёт в следующем сообщении.
	require.NoError(t, s.RegisterChange(ctx, "erp", entity.KindCounterparty, "cp-1", true))

	cleared, err := s.ClearConfirmed(ctx, "erp", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cleared)

	changes, err = s.PendingChanges(ctx, "erp")
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "cp-1", changes[0].GUID)
	assert.True(t, changes[0].Deleted)
	assert.Zero(t, changes[0].MessageNo)

	other, err := s.PendingChanges(ctx, "bank")
	require.NoError(t, err)
	assert.Len(t, other, 1, "изменения других подключений не затронуты")

	cleared, err = s.ClearConfirmed(ctx, "erp", 0)
	require.NoError(t, err)
	assert.Zero(t, cleared)
	assert.NoError(t, s.AssignMessageNo(ctx, "erp", nil, 2))
}

func TestStore_Состояние(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	st, err := s.LoadState(ctx, "erp")
	require.NoError(t, err)
	assert.Equal(t, ConnectorState{Connector: "erp"}, st)
	assert.Equal(t, int64(1), st.NextMessageNo())
	assert.False(t, st.NeedsConfirmation())

	st.SentNo, st.ReceivedNo = 3, 5
	require.NoError(t, s.SaveState(ctx, st))
	st.AckedNo = 5
	require.NoError(t, s.SaveState(ctx, st))

	loaded, err := s.LoadState(ctx, "erp")
	require.NoError(t, err)
	assert.Equal(t, int64(3), loaded.SentNo)
	assert.Equal(t, int64(5), loaded.ReceivedNo)
	assert.Equal(t, int64(5), loaded.AckedNo)
	assert.False(t, loaded.NeedsConfirmation())
	assert.False(t, loaded.UpdatedAt.IsZero())
}

func TestStore_ЖурналЧерезJournal(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	j := audit.NewJournal(s, nil, clock)

	l, err := j.MarkAsStarted(ctx, "erp", result.DirectionIncoming)
	require.NoError(t, err)
	assert.Positive(t, l.ID)
	require.NoError(t, j.MarkAsProcessing(ctx, l, "ERP-7", 7))

	done, err := s.HasCompletedMessage(ctx, "erp", "ERP-7")
	require.NoError(t, err)
	assert.False(t, done)

	now = now.Add(2 * time.Second)
	p := result.NewProcessing()
	p.ProcessedCount = 2
	p.Errors = []string{"password=secret"}
	require.NoError(t, j.MarkAsCompleted(ctx, l, p, nil))

	done, err = s.HasCompletedMessage(ctx, "erp", "ERP-7")
	require.NoError(t, err)
	assert.True(t, done)

	logs, err := s.RecentLogs(ctx, "erp", 5)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, result.StatusCompleted, logs[0].Status)
	assert.Equal(t, int64(2000), logs[0].DurationMs)
	assert.Equal(t, []string{"password=***"}, logs[0].Errors)
	assert.Empty(t, logs[0].Warnings)
	assert.True(t, logs[0].StartedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.True(t, logs[0].FinishedAt.Equal(now))

	now = now.AddDate(0, 0, 40)
	deleted, err := j.Cleanup(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestStore_HasCompletedMessageУчитываетНаправление(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	j := audit.NewJournal(s, nil, nil)

	l, err := j.MarkAsStarted(ctx, "erp", result.DirectionOutgoing)
	require.NoError(t, err)
	require.NoError(t, j.MarkAsProcessing(ctx, l, "APK-1", 1))
	require.NoError(t, j.MarkAsCompleted(ctx, l, result.NewProcessing(), nil))

	done, err := s.HasCompletedMessage(ctx, "erp", "APK-1")
	require.NoError(t, err)
	assert.False(t, done)
}

func TestStore_ОбъектыБезСопоставления(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RecordUnmappedObject(ctx, "erp", "Справочник.Склады", "s-1", 3))
	require.NoError(t, s.RecordUnmappedObject(ctx, "erp", "Справочник.Склады", "s-2", 4))
	require.NoError(t, s.RecordUnmappedObject(ctx, "erp", "Документ.Заказ", "", 4))
	require.NoError(t, s.RecordUnmappedObject(ctx, "bank", "Справочник.Склады", "s-9", 1))

	items, err := s.UnmappedObjects(ctx, "erp")
	require.NoError(t, err)
	require.Len(t, items, 2)

	byType := map[string]audit.UnmappedObject{}
	for _, it := range items {
		byType[it.ObjectType] = it
	}
	stores := byType["Справочник.Склады"]
	assert.Equal(t, int64(2), stores.Occurrences)
	assert.Equal(t, "s-2", stores.LastRef)
	assert.Equal(t, int64(4), stores.LastMessageNo)
	assert.False(t, stores.FirstSeen.After(stores.LastSeen))
}

func TestDBTime_Scan(t *testing.T) {
	var v dbTime
	require.NoError(t, v.Scan(nil))
	assert.False(t, v.Valid)

	require.NoError(t, v.Scan("2024-03-01T10:00:00.000000000Z"))
	assert.True(t, v.Valid)
	assert.Equal(t, 10, v.Time.Hour())

	ts := time.Date(2024, 3, 1, 13, 0, 0, 0, time.FixedZone("MSK", 3*3600))
	require.NoError(t, v.Scan(ts))
	assert.Equal(t, time.UTC, v.Time.Location())
	assert.Equal(t, 10, v.Time.Hour())

	assert.Error(t, v.Scan("01.03.2024"))
	assert.Error(t, v.Scan(42))
}

func TestRebind(t *testing.T) {
	mssql, err := dialectFor(DriverSQLServer)
	require.NoError(t, err)
	assert.Equal(t, "SELECT a FROM t WHERE x = @p1 AND y = @p2", mssql.rebind("SELECT a FROM t WHERE x = ? AND y = ?"))
	assert.Equal(t, "INSERT INTO t (a, b) OUTPUT INSERTED.id VALUES (@p1, @p2)",
		mssql.rebind(mssql.returningID("t", []string{"a", "b"})))

	lite, err := dialectFor(DriverSQLite)
	require.NoError(t, err)
	assert.Equal(t, "x = ?", lite.rebind("x = ?"))
	assert.Equal(t, "INSERT INTO t (a) VALUES (?) RETURNING id", lite.returningID("t", []string{"a"}))

	_, err = dialectFor("oracle")
	assert.Error(t, err)
}
