// Package message содержит значения сообщения обмена EnterpriseData:
// заголовок, тело с объектами и разобранное сообщение целиком.
package message

import "strconv"

// Пространства имён формата сообщений.
const (
	NamespaceMessage        = "http://www.1c.ru/SSL/Exchange/Message"
	NamespaceEnterpriseData = "http://v8.1c.ru/edi/edi_stnd/EnterpriseData/"
)

// ParsedMessage - разобранное входящее сообщение.
type ParsedMessage struct {
	Header Header
	Body   Body

	// SourceFile - имя файла, из которого прочитано сообщение (может быть пустым).
	SourceFile string
}

// MessageID - ключ идемпотентности сообщения: "<From>_<MessageNo>".
func (m ParsedMessage) MessageID() string {
	return MessageID(m.Header.From, m.Header.MessageNo)
}

// IsConfirmation сообщает, что сообщение только подтверждает приём.
func (m ParsedMessage) IsConfirmation() bool {
	return m.Header.IsConfirmation()
}

// MessageID собирает ключ идемпотентности из узла-отправителя и номера.
func MessageID(from string, messageNo int64) string {
	return from + "_" + strconv.FormatInt(messageNo, 10)
}
