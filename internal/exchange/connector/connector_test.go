package connector

import (
	"testing"
	"time"

	"github.com/Kargones/apk-exchange/internal/exchange/message"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConnector() Connector {
	return Connector{
		Name:         "erp",
		OwnNode:      "АПК",
		PeerNode:     "БП",
		ExchangePlan: "СинхронизацияДанныхЧерезУниверсальныйФормат",
		Transport:    TransportSettings{Type: TransportLocal, Directory: "/tmp/exchange"},
	}
}

func TestConnector_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Connector)
		wantErr error
	}{
		{"валидный", func(*Connector) {}, nil},
		{"без имени", func(c *Connector) { c.Name = " " }, ErrNameRequired},
		{"без узла партнёра", func(c *Connector) { c.PeerNode = "" }, ErrNodeRequired},
		{"одинаковые узлы", func(c *Connector) { c.PeerNode = c.OwnNode }, ErrSameNodes},
		{"без плана обмена", func(c *Connector) { c.ExchangePlan = "" }, ErrExchangePlanRequired},
		{"ftp без host", func(c *Connector) { c.Transport = TransportSettings{Type: TransportFTP} }, ErrTransportInvalid},
		{"local без каталога", func(c *Connector) { c.Transport.Directory = "" }, ErrTransportInvalid},
		{"неизвестный транспорт", func(c *Connector) { c.Transport.Type = "s3" }, ErrTransportInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConnector()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestConnector_Versions(t *testing.T) {
	c := validConnector()
	assert.Equal(t, []string{message.DefaultFormatVersion}, c.AvailableSendingVersions())
	assert.Equal(t, message.DefaultFormatVersion, c.HighestSendingVersion())
	assert.Equal(t, message.FormatEnterpriseData, c.FormatName())

	c.SendingVersions = []string{"1.8", "1.11", "1.10"}
	assert.Equal(t, "1.11", c.HighestSendingVersion())

	versions := c.AvailableSendingVersions()
	versions[0] = "0.0"
	assert.Equal(t, "1.8", c.SendingVersions[0])
}

func TestConnector_ObjectTypes(t *testing.T) {
	c := validConnector()
	assert.True(t, c.SendsObjectType("Справочник.Организации"))

	c.ObjectTypes = []message.ObjectTypeCapability{
		{Name: "Справочник.Организации", Sending: true, Receiving: true},
		{Name: "Справочник.Договоры", Sending: false, Receiving: true},
	}
	assert.True(t, c.SendsObjectType("Справочник.Организации"))
	assert.False(t, c.SendsObjectType("Справочник.Договоры"))
	assert.True(t, c.ReceivesObjectType("Справочник.Договоры"))
	assert.False(t, c.ReceivesObjectType("Справочник.Валюты"))
}

func TestConnector_Files(t *testing.T) {
	c := validConnector()
	assert.Equal(t, "Message_АПК_БП.xml", c.OutgoingFile())
	assert.Equal(t, "Message_БП_АПК.xml", c.IncomingFile())
	assert.Equal(t, "Message_БП_АПК.xml.lock", LockFileName(c.IncomingFile()))

	now := time.Unix(1700000000, 0)
	assert.Equal(t, "error/Message_БП_АПК.xml.1700000000", QuarantineFile(c.IncomingFile(), now))
}

func TestConnector_EffectiveLockTimeout(t *testing.T) {
	c := validConnector()
	assert.Equal(t, DefaultLockTimeout, c.EffectiveLockTimeout())
	c.LockTimeout = time.Minute
	assert.Equal(t, time.Minute, c.EffectiveLockTimeout())
}

func TestFileLock_IsExpired(t *testing.T) {
	created := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	lock := FileLock{FileName: "f.xml", LockID: "id", CreatedAt: created}

	assert.False(t, lock.IsExpired(created.Add(299*time.Second), 0))
	assert.True(t, lock.IsExpired(created.Add(301*time.Second), 0))
	assert.True(t, lock.IsExpired(created.Add(11*time.Second), 10*time.Second))
	assert.False(t, lock.IsExpired(created.Add(5*time.Second), 10*time.Second))
}

func TestFileLock_EncodeDecode(t *testing.T) {
	lock := NewFileLock("Message_БП_АПК.xml", time.Now())
	require.NotEmpty(t, lock.LockID)
	assert.Equal(t, "Message_БП_АПК.xml.lock", lock.LockFile())

	data, err := lock.Encode()
	require.NoError(t, err)

	decoded, err := DecodeFileLock(data)
	require.NoError(t, err)
	assert.Equal(t, lock.LockID, decoded.LockID)
	assert.True(t, lock.CreatedAt.Equal(decoded.CreatedAt))

	_, err = DecodeFileLock([]byte("мусор"))
	assert.Error(t, err)
	_, err = DecodeFileLock([]byte(`{"file_name":"x"}`))
	assert.Error(t, err)
}

func TestNewFileLock_УникальныеИдентификаторы(t *testing.T) {
	a := NewFileLock("f", time.Now())
	b := NewFileLock("f", time.Now())
	assert.NotEqual(t, a.LockID, b.LockID)
}
