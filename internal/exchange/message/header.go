package message

import (
	"slices"
	"strings"
	"time"
)

// FormatEnterpriseData - значение Format для сообщений EnterpriseData.
const FormatEnterpriseData = "EnterpriseData"

// ObjectTypeCapability описывает, может ли узел отправлять и принимать
// объекты указанного типа.
type ObjectTypeCapability struct {
	Name      string
	Sending   bool
	Receiving bool
}

// Header - заголовок сообщения обмена.
//
// Значение неизменяемо по соглашению: Parse и конструкторы копируют срезы,
// методы возвращают копии.
type Header struct {
	Format       string
	CreationDate time.Time
	ExchangePlan string
	From         string
	To           string

	// MessageNo - номер сообщения отправителя, монотонно растёт.
	MessageNo int64

	// ReceivedNo - последний номер сообщения партнёра, полученный отправителем.
	ReceivedNo int64

	AvailableVersions    []string
	AvailableObjectTypes []ObjectTypeCapability

	// NewFrom - новый код узла-отправителя, если он был переназначен.
	NewFrom string
}

// Clone возвращает копию заголовка с независимыми срезами.
func (h Header) Clone() Header {
	h.AvailableVersions = slices.Clone(h.AvailableVersions)
	h.AvailableObjectTypes = slices.Clone(h.AvailableObjectTypes)
	return h
}

// IsConfirmation сообщает, что сообщение содержит только подтверждение приёма.
func (h Header) IsConfirmation() bool {
	return h.MessageNo == 0 && h.ReceivedNo > 0
}

// IsEnterpriseData сообщает, что формат сообщения - EnterpriseData.
// 1С присылает либо короткое имя, либо URL пространства имён формата.
func (h Header) IsEnterpriseData() bool {
	f := strings.TrimRight(strings.TrimSpace(h.Format), "/")
	if f == FormatEnterpriseData {
		return true
	}
	return strings.Contains(f, "/"+FormatEnterpriseData)
}

// HighestAvailableVersion возвращает старшую из доступных версий формата.
func (h Header) HighestAvailableVersion() string {
	return HighestVersion(h.AvailableVersions)
}

// ObjectType ищет описание возможностей для типа объекта.
func (h Header) ObjectType(name string) (ObjectTypeCapability, bool) {
	for _, c := range h.AvailableObjectTypes {
		if c.Name == name {
			return c, true
		}
	}
	return ObjectTypeCapability{}, false
}

// CanPeerSend сообщает, может ли отправитель заголовка присылать объекты типа.
// Пустой список возможностей означает отсутствие ограничений.
func (h Header) CanPeerSend(name string) bool {
	if len(h.AvailableObjectTypes) == 0 {
		return true
	}
	c, ok := h.ObjectType(name)
	return ok && c.Sending
}

// CanPeerReceive сообщает, примет ли отправитель заголовка объекты типа.
func (h Header) CanPeerReceive(name string) bool {
	if len(h.AvailableObjectTypes) == 0 {
		return true
	}
	c, ok := h.ObjectType(name)
	return ok && c.Receiving
}
