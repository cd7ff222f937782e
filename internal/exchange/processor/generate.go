package processor

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/Kargones/apk-exchange/internal/exchange/connector"
	"github.com/Kargones/apk-exchange/internal/exchange/message"
	"github.com/Kargones/apk-exchange/internal/pkg/logging"
)

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// GenerateOutgoingMessage формирует сообщение с данными для узла-партнёра.
// Заголовок содержит коды узлов подключения, номера messageNo и receivedNo,
// версии и типы объектов подключения. Тело формируется в пространстве имён
// старшей версии отправки.
func (p *Processor) GenerateOutgoingMessage(conn connector.Connector, messageNo, receivedNo int64, objects []message.Object) ([]byte, error) {
	if messageNo < 0 || receivedNo < 0 {
		return nil, generateError("номера сообщений не могут быть отрицательными", nil)
	}
	if conn.OwnNode == "" || conn.PeerNode == "" || conn.ExchangePlan == "" {
		return nil, generateError("в подключении не заданы узлы или план обмена", nil)
	}

	var buf bytes.Buffer
	buf.WriteString(xmlDeclaration)

	w := &xmlWriter{enc: xml.NewEncoder(&buf)}
	w.enc.Indent("", "  ")

	w.start("Message", xml.Attr{Name: xml.Name{Local: "xmlns:msg"}, Value: message.NamespaceMessage})
	p.writeHeader(w, conn, messageNo, receivedNo)

	w.start("Body", xml.Attr{
		Name:  xml.Name{Local: "xmlns"},
		Value: message.NamespaceEnterpriseData + conn.HighestSendingVersion(),
	})
	for i, o := range objects {
		if err := w.object(o); err != nil {
			return nil, generateError(fmt.Sprintf("объект %d (%s) не может быть записан", i, o.Type), err)
		}
	}
	w.end("Body")
	w.end("Message")

	if w.err == nil {
		w.err = w.enc.Flush()
	}
	if w.err != nil {
		return nil, generateError("ошибка записи XML", w.err)
	}
	buf.WriteByte('\n')

	p.logger.Debug("сформировано исходящее сообщение",
		logging.KeyConnector, conn.Name,
		logging.KeyMessageNo, messageNo,
		"received_no", receivedNo,
		"objects", len(objects),
	)
	return buf.Bytes(), nil
}

// GenerateConfirmationOnlyMessage формирует сообщение без данных,
// подтверждающее приём сообщения партнёра с номером receivedNo.
// Подтверждать можно только реально принятое сообщение: receivedNo > 0.
func (p *Processor) GenerateConfirmationOnlyMessage(conn connector.Connector, receivedNo int64) ([]byte, error) {
	if receivedNo <= 0 {
		return nil, generateError(fmt.Sprintf("нечего подтверждать: номер принятого сообщения %d", receivedNo), nil)
	}
	return p.GenerateOutgoingMessage(conn, 0, receivedNo, nil)
}

func (p *Processor) writeHeader(w *xmlWriter, conn connector.Connector, messageNo, receivedNo int64) {
	w.start("msg:" + elHeader)
	w.leaf("msg:"+elFormat, conn.FormatName())
	w.leaf("msg:"+elCreationDate, p.now().In(p.location).Format(DateLayout))

	w.start("msg:" + elConfirmation)
	w.leaf("msg:"+elExchangePlan, conn.ExchangePlan)
	w.leaf("msg:"+elTo, conn.PeerNode)
	w.leaf("msg:"+elFrom, conn.OwnNode)
	w.leaf("msg:"+elMessageNo, strconv.FormatInt(messageNo, 10))
	w.leaf("msg:"+elReceivedNo, strconv.FormatInt(receivedNo, 10))
	w.end("msg:" + elConfirmation)

	for _, v := range conn.AvailableSendingVersions() {
		w.leaf("msg:"+elAvailableVersion, v)
	}

	if len(conn.ObjectTypes) > 0 {
		w.start("msg:" + elAvailableObjectTypes)
		for _, t := range conn.ObjectTypes {
			w.start("msg:" + elObjectType)
			w.leaf("msg:"+elName, t.Name)
			w.leaf("msg:"+elSending, capabilityValue(t.Sending))
			w.leaf("msg:"+elReceiving, capabilityValue(t.Receiving))
			w.end("msg:" + elObjectType)
		}
		w.end("msg:" + elAvailableObjectTypes)
	}
	w.end("msg:" + elHeader)
}

func capabilityValue(enabled bool) string {
	if enabled {
		return "*"
	}
	return ""
}

// xmlWriter запоминает первую ошибку кодировщика, чтобы не проверять каждый вызов.
type xmlWriter struct {
	enc *xml.Encoder
	err error
}

func (w *xmlWriter) start(name string, attrs ...xml.Attr) {
	if w.err != nil {
		return
	}
	w.err = w.enc.EncodeToken(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (w *xmlWriter) end(name string) {
	if w.err != nil {
		return
	}
	w.err = w.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *xmlWriter) text(s string) {
	if w.err != nil || s == "" {
		return
	}
	w.err = w.enc.EncodeToken(xml.CharData(s))
}

func (w *xmlWriter) leaf(name, value string) {
	w.start(name)
	w.text(value)
	w.end(name)
}

func (w *xmlWriter) empty(name, kind string) {
	w.start(name, xml.Attr{Name: xml.Name{Local: attrEmpty}, Value: kind})
	w.end(name)
}

func (w *xmlWriter) object(o message.Object) error {
	if !validName(o.Type) {
		return fmt.Errorf("недопустимое имя типа объекта %q", o.Type)
	}
	var attrs []xml.Attr
	if o.Ref != "" {
		attrs = append(attrs, xml.Attr{Name: xml.Name{Local: attrRef}, Value: o.Ref})
	}
	w.start(o.Type, attrs...)
	if err := w.properties(o.Properties); err != nil {
		return err
	}
	w.end(o.Type)
	return w.err
}

func (w *xmlWriter) properties(props message.Properties) error {
	for _, p := range props {
		if !validName(p.Name) {
			return fmt.Errorf("недопустимое имя свойства %q", p.Name)
		}
		if err := w.value(p.Name, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// value записывает свойство; список превращается в повторяющиеся элементы.
// Пустые список и структура записываются пустым элементом с отметкой attrEmpty.
func (w *xmlWriter) value(name string, v message.Value) error {
	switch v.Kind() {
	case message.KindList:
		items := v.Items()
		if len(items) == 0 {
			w.empty(name, emptyListValue)
			break
		}
		for _, item := range items {
			if item.Kind() == message.KindList {
				return fmt.Errorf("вложенный список в свойстве %q не представим в XML", name)
			}
			if err := w.value(name, item); err != nil {
				return err
			}
		}
	case message.KindMap:
		fields := v.Fields()
		if len(fields) == 0 {
			w.empty(name, emptyMapValue)
			break
		}
		w.start(name)
		if err := w.properties(fields); err != nil {
			return err
		}
		w.end(name)
	default:
		if !utf8.ValidString(v.Text()) {
			return fmt.Errorf("значение свойства %q не является корректной строкой UTF-8", name)
		}
		w.leaf(name, v.Text())
	}
	return w.err
}

// validName проверяет имя элемента XML без префикса пространства имён.
func validName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && (r == '.' || r == '-' || unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}
