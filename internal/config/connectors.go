package config

import (
	"fmt"
	"os"
	"time"

	"github.com/Kargones/apk-exchange/internal/exchange/connector"
	"github.com/Kargones/apk-exchange/internal/exchange/message"
)

// ExchangeConfig - настройки обмена.
type ExchangeConfig struct {
	// Timezone - часовой пояс CreationDate без зоны, например "Europe/Moscow".
	// Пусто - локальный пояс процесса.
	Timezone string `yaml:"timezone" env:"BR_EXCHANGE_TIMEZONE"`

	Connectors []ConnectorConfig `yaml:"connectors"`
}

// ConnectorConfig - описание подключения в YAML.
type ConnectorConfig struct {
	Name         string `yaml:"name"`
	OwnNode      string `yaml:"ownNode"`
	PeerNode     string `yaml:"peerNode"`
	PeerGUID     string `yaml:"peerGuid"`
	PeerName     string `yaml:"peerName"`
	ExchangePlan string `yaml:"exchangePlan"`
	Format       string `yaml:"format"`

	SendingVersions   []string `yaml:"sendingVersions"`
	ReceivingVersions []string `yaml:"receivingVersions"`

	// ObjectTypes - пусто: подключение отправляет и принимает все типы.
	ObjectTypes []ObjectTypeConfig `yaml:"objectTypes"`

	Transport   TransportConfig `yaml:"transport"`
	LockTimeout time.Duration   `yaml:"lockTimeout"`
}

// ObjectTypeConfig - тип объекта и направления, в которых он участвует.
type ObjectTypeConfig struct {
	Name      string `yaml:"name"`
	Sending   bool   `yaml:"sending"`
	Receiving bool   `yaml:"receiving"`
}

// TransportConfig - файловый транспорт подключения.
type TransportConfig struct {
	Type      string `yaml:"type"`
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Passive   *bool  `yaml:"passive"`
	Directory string `yaml:"directory"`

	// PasswordEnv - переменная окружения с паролем FTP. Имеет приоритет над Password.
	PasswordEnv string `yaml:"passwordEnv"`

	Timeout time.Duration `yaml:"timeout"`
}

// password возвращает пароль FTP с учётом PasswordEnv.
func (t TransportConfig) password() (string, error) {
	if t.PasswordEnv == "" {
		return t.Password, nil
	}
	v, ok := os.LookupEnv(t.PasswordEnv)
	if !ok || v == "" {
		return "", fmt.Errorf("переменная окружения %s с паролем не задана", t.PasswordEnv)
	}
	return v, nil
}

// ToConnector преобразует описание в connector.Connector.
func (c ConnectorConfig) ToConnector() (connector.Connector, error) {
	pwd, err := c.Transport.password()
	if err != nil {
		return connector.Connector{}, fmt.Errorf("подключение %q: %w", c.Name, err)
	}
	passive := true
	if c.Transport.Passive != nil {
		passive = *c.Transport.Passive
	}

	types := make([]message.ObjectTypeCapability, 0, len(c.ObjectTypes))
	for _, t := range c.ObjectTypes {
		types = append(types, message.ObjectTypeCapability{Name: t.Name, Sending: t.Sending, Receiving: t.Receiving})
	}

	conn := connector.Connector{
		Name:              c.Name,
		OwnNode:           c.OwnNode,
		PeerNode:          c.PeerNode,
		PeerGUID:          c.PeerGUID,
		PeerName:          c.PeerName,
		ExchangePlan:      c.ExchangePlan,
		Format:            c.Format,
		SendingVersions:   c.SendingVersions,
		ReceivingVersions: c.ReceivingVersions,
		ObjectTypes:       types,
		LockTimeout:       c.LockTimeout,
		Transport: connector.TransportSettings{
			Type:      c.Transport.Type,
			Host:      c.Transport.Host,
			Port:      c.Transport.Port,
			User:      c.Transport.User,
			Password:  pwd,
			Passive:   passive,
			Directory: c.Transport.Directory,
			Timeout:   c.Transport.Timeout,
		},
	}
	if err := conn.Validate(); err != nil {
		return connector.Connector{}, err
	}
	return conn, nil
}

// Connectors возвращает все настроенные подключения.
func (c *Config) Connectors() ([]connector.Connector, error) {
	out := make([]connector.Connector, 0, len(c.Exchange.Connectors))
	seen := make(map[string]bool, len(c.Exchange.Connectors))
	for _, cc := range c.Exchange.Connectors {
		conn, err := cc.ToConnector()
		if err != nil {
			return nil, err
		}
		if seen[conn.Name] {
			return nil, fmt.Errorf("подключение %q описано дважды", conn.Name)
		}
		seen[conn.Name] = true
		out = append(out, conn)
	}
	return out, nil
}

// Location возвращает часовой пояс обмена.
func (c *Config) Location() (*time.Location, error) {
	if c.Exchange.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Exchange.Timezone)
	if err != nil {
		return nil, fmt.Errorf("exchange: некорректный часовой пояс %q: %w", c.Exchange.Timezone, err)
	}
	return loc, nil
}
