// Package connector описывает подключение обмена с одним узлом-партнёром:
// коды узлов, план обмена, версии формата, транспорт и блокировку файла.
package connector

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Kargones/apk-exchange/internal/exchange/message"
)

// Типы транспорта.
const (
	TransportFTP   = "ftp"
	TransportLocal = "local"
)

// DefaultLockTimeout - время, после которого блокировка считается брошенной.
const DefaultLockTimeout = 300 * time.Second

// Ошибки валидации подключения.
var (
	ErrNameRequired         = errors.New("connector: не указано имя подключения")
	ErrNodeRequired         = errors.New("connector: не указаны коды узлов")
	ErrSameNodes            = errors.New("connector: коды своего узла и узла-партнёра совпадают")
	ErrExchangePlanRequired = errors.New("connector: не указан план обмена")
	ErrTransportInvalid     = errors.New("connector: некорректные настройки транспорта")
)

// TransportSettings - настройки файлового транспорта подключения.
type TransportSettings struct {
	// Type - "ftp" или "local".
	Type string

	Host     string
	Port     int
	User     string
	Password string
	Passive  bool

	// Directory - каталог обмена на FTP или в локальной файловой системе.
	Directory string

	Timeout time.Duration
}

// Connector - настройки обмена с одним узлом.
type Connector struct {
	Name string

	// OwnNode - код этого узла (префикс) в сообщениях.
	OwnNode string

	// PeerNode - код узла-партнёра.
	PeerNode string
	PeerGUID string
	PeerName string

	ExchangePlan string

	// Format - значение Format в отправляемых сообщениях.
	Format string

	SendingVersions   []string
	ReceivingVersions []string

	// ObjectTypes - типы объектов, которые этот узел готов отправлять и принимать.
	ObjectTypes []message.ObjectTypeCapability

	Transport   TransportSettings
	LockTimeout time.Duration
}

// Validate проверяет обязательные поля подключения.
func (c Connector) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrNameRequired
	}
	if strings.TrimSpace(c.OwnNode) == "" || strings.TrimSpace(c.PeerNode) == "" {
		return fmt.Errorf("%w: %s", ErrNodeRequired, c.Name)
	}
	if c.OwnNode == c.PeerNode {
		return fmt.Errorf("%w: %s", ErrSameNodes, c.Name)
	}
	if strings.TrimSpace(c.ExchangePlan) == "" {
		return fmt.Errorf("%w: %s", ErrExchangePlanRequired, c.Name)
	}
	switch c.Transport.Type {
	case TransportFTP:
		if c.Transport.Host == "" {
			return fmt.Errorf("%w: %s: не указан host", ErrTransportInvalid, c.Name)
		}
	case TransportLocal:
		if c.Transport.Directory == "" {
			return fmt.Errorf("%w: %s: не указан каталог", ErrTransportInvalid, c.Name)
		}
	default:
		return fmt.Errorf("%w: %s: неизвестный тип %q", ErrTransportInvalid, c.Name, c.Transport.Type)
	}
	return nil
}

// FormatName возвращает Format для заголовка, по умолчанию EnterpriseData.
func (c Connector) FormatName() string {
	if c.Format == "" {
		return message.FormatEnterpriseData
	}
	return c.Format
}

// AvailableSendingVersions возвращает версии для AvailableVersion исходящих
// сообщений. Пустой список заменяется версией по умолчанию.
func (c Connector) AvailableSendingVersions() []string {
	if len(c.SendingVersions) == 0 {
		return []string{message.DefaultFormatVersion}
	}
	return slices.Clone(c.SendingVersions)
}

// HighestSendingVersion возвращает версию, в которой формируется тело сообщения.
func (c Connector) HighestSendingVersion() string {
	return message.HighestVersion(c.SendingVersions)
}

// SendsObjectType сообщает, отправляет ли подключение объекты типа.
// Пустой список типов означает отсутствие ограничений.
func (c Connector) SendsObjectType(objectType string) bool {
	if len(c.ObjectTypes) == 0 {
		return true
	}
	for _, t := range c.ObjectTypes {
		if t.Name == objectType {
			return t.Sending
		}
	}
	return false
}

// ReceivesObjectType сообщает, принимает ли подключение объекты типа.
func (c Connector) ReceivesObjectType(objectType string) bool {
	if len(c.ObjectTypes) == 0 {
		return true
	}
	for _, t := range c.ObjectTypes {
		if t.Name == objectType {
			return t.Receiving
		}
	}
	return false
}

// EffectiveLockTimeout возвращает таймаут блокировки или значение по умолчанию.
func (c Connector) EffectiveLockTimeout() time.Duration {
	if c.LockTimeout <= 0 {
		return DefaultLockTimeout
	}
	return c.LockTimeout
}
