package processor

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Kargones/apk-exchange/internal/exchange/message"
	"github.com/Kargones/apk-exchange/internal/pkg/logging"
)

// Имена элементов заголовка (локальные, без префикса msg:).
const (
	elHeader               = "Header"
	elBody                 = "Body"
	elFormat               = "Format"
	elCreationDate         = "CreationDate"
	elConfirmation         = "Confirmation"
	elExchangePlan         = "ExchangePlan"
	elFrom                 = "From"
	elTo                   = "To"
	elMessageNo            = "MessageNo"
	elReceivedNo           = "ReceivedNo"
	elNewFrom              = "NewFrom"
	elAvailableVersion     = "AvailableVersion"
	elAvailableObjectTypes = "AvailableObjectTypes"
	elObjectType           = "ObjectType"
	elName                 = "Name"
	elSending              = "Sending"
	elReceiving            = "Receiving"
	attrRef                = "Ref"

	// attrEmpty отмечает пустой список или пустую структуру: без него
	// пустой элемент читается как пустая строка.
	attrEmpty      = "empty"
	emptyListValue = "list"
	emptyMapValue  = "map"
)

// ParseIncomingMessage разбирает содержимое файла обмена.
// При любой ошибке возвращается *apperrors.AppError с кодом EXCHANGE.PARSE_FAILED
// и частичный результат не возвращается.
func (p *Processor) ParseIncomingMessage(raw []byte) (*message.ParsedMessage, error) {
	return p.ParseIncomingFile("", raw)
}

// ParseIncomingFile разбирает сообщение и запоминает имя исходного файла.
func (p *Processor) ParseIncomingFile(name string, raw []byte) (*message.ParsedMessage, error) {
	root, err := readTree(raw)
	if err != nil {
		return nil, parseError("некорректный XML сообщения обмена", err)
	}

	headerNode := root.child(elHeader)
	if headerNode == nil {
		return nil, parseError("в сообщении отсутствует заголовок Header", nil)
	}
	header, err := p.parseHeader(headerNode)
	if err != nil {
		return nil, err
	}

	var objects []message.Object
	if bodyNode := root.child(elBody); bodyNode != nil {
		objects = make([]message.Object, 0, len(bodyNode.children))
		for _, el := range bodyNode.children {
			objects = append(objects, message.Object{
				Type:       el.name,
				Ref:        strings.TrimSpace(el.attrs[attrRef]),
				Properties: propertiesOf(el),
			})
		}
	}

	parsed := &message.ParsedMessage{
		Header:     header,
		Body:       message.NewBody(objects),
		SourceFile: name,
	}
	p.logger.Debug("сообщение обмена разобрано",
		logging.KeyMessageID, parsed.MessageID(),
		"file", name,
		"objects", len(objects),
		"confirmation", header.IsConfirmation(),
	)
	return parsed, nil
}

func (p *Processor) parseHeader(h *node) (message.Header, error) {
	// Поля подтверждения ищем в блоке Confirmation, затем прямо в Header.
	conf := h.child(elConfirmation)
	field := func(name string) (string, bool) {
		for _, scope := range []*node{conf, h} {
			if scope == nil {
				continue
			}
			if c := scope.child(name); c != nil {
				return c.value(), true
			}
		}
		return "", false
	}
	required := func(name string) (string, error) {
		v, ok := field(name)
		if !ok || v == "" {
			return "", parseError(fmt.Sprintf("отсутствует обязательное поле заголовка %s", name), nil)
		}
		return v, nil
	}

	var header message.Header
	var err error

	if c := h.child(elFormat); c != nil {
		header.Format = c.value()
	}
	if header.Format == "" {
		return message.Header{}, parseError("отсутствует обязательное поле заголовка Format", nil)
	}
	if header.ExchangePlan, err = required(elExchangePlan); err != nil {
		return message.Header{}, err
	}
	if header.From, err = required(elFrom); err != nil {
		return message.Header{}, err
	}
	if header.To, err = required(elTo); err != nil {
		return message.Header{}, err
	}

	messageNo, err := required(elMessageNo)
	if err != nil {
		return message.Header{}, err
	}
	if header.MessageNo, err = parseNumber(elMessageNo, messageNo); err != nil {
		return message.Header{}, err
	}
	if received, ok := field(elReceivedNo); ok && received != "" {
		if header.ReceivedNo, err = parseNumber(elReceivedNo, received); err != nil {
			return message.Header{}, err
		}
	}

	if c := h.child(elCreationDate); c != nil && c.value() != "" {
		if header.CreationDate, err = p.parseDate(c.value()); err != nil {
			return message.Header{}, parseError("некорректное значение CreationDate", err)
		}
	}

	header.NewFrom, _ = field(elNewFrom)

	for _, v := range h.childrenNamed(elAvailableVersion) {
		if s := v.value(); s != "" {
			header.AvailableVersions = append(header.AvailableVersions, s)
		}
	}
	if len(header.AvailableVersions) == 0 {
		header.AvailableVersions = []string{message.DefaultFormatVersion}
	}

	typeNodes := h.childrenNamed(elObjectType)
	if wrapper := h.child(elAvailableObjectTypes); wrapper != nil {
		typeNodes = append(typeNodes, wrapper.childrenNamed(elObjectType)...)
	}
	for _, t := range typeNodes {
		if c, ok := parseCapability(t); ok {
			header.AvailableObjectTypes = append(header.AvailableObjectTypes, c)
		}
	}

	return header, nil
}

func parseNumber(field, s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, parseError(fmt.Sprintf("некорректное значение %s", field), err)
	}
	if n < 0 {
		return 0, parseError(fmt.Sprintf("отрицательное значение %s", field), nil)
	}
	return n, nil
}

// parseDate принимает дату без зоны (в p.location) или RFC 3339.
func (p *Processor) parseDate(s string) (time.Time, error) {
	for _, layout := range []string{DateLayout, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.ParseInLocation(layout, s, p.location); err == nil {
			return t, nil
		}
	}
	return time.Parse(time.RFC3339Nano, s)
}

// parseCapability читает описание типа объекта из дочерних элементов
// или атрибутов ObjectType.
func parseCapability(n *node) (message.ObjectTypeCapability, bool) {
	get := func(name string) string {
		if c := n.child(name); c != nil {
			return c.value()
		}
		return strings.TrimSpace(n.attrs[name])
	}
	name := get(elName)
	if name == "" {
		return message.ObjectTypeCapability{}, false
	}
	return message.ObjectTypeCapability{
		Name:      name,
		Sending:   capabilityEnabled(get(elSending)),
		Receiving: capabilityEnabled(get(elReceiving)),
	}, true
}

// capabilityEnabled: 1С пишет "*" или список версий, пустое значение означает запрет.
func capabilityEnabled(s string) bool {
	switch strings.ToLower(s) {
	case "", "false", "0", "-":
		return false
	default:
		return true
	}
}

// propertiesOf превращает дочерние элементы в упорядоченные свойства.
// Повторяющиеся элементы с одним именем собираются в список на месте первого,
// поэтому список из одного элемента читается как само значение элемента.
// Текст между дочерними элементами игнорируется, текст листа сохраняется
// без изменений. Атрибуты элементов-свойств, кроме отметки пустого
// значения, не переносятся: значения EnterpriseData передаются элементами.
func propertiesOf(n *node) message.Properties {
	if len(n.children) == 0 {
		return nil
	}
	groups := make(map[string][]message.Value)
	var order []string
	for _, c := range n.children {
		if _, seen := groups[c.name]; !seen {
			order = append(order, c.name)
		}
		groups[c.name] = append(groups[c.name], valueOf(c))
	}

	props := make(message.Properties, 0, len(order))
	for _, name := range order {
		values := groups[name]
		if len(values) == 1 {
			props = append(props, message.Prop(name, values[0]))
			continue
		}
		props = append(props, message.Prop(name, message.ListOf(values...)))
	}
	return props
}

func valueOf(n *node) message.Value {
	if len(n.children) > 0 {
		return message.MapOf(propertiesOf(n)...)
	}
	switch n.attrs[attrEmpty] {
	case emptyListValue:
		return message.ListOf()
	case emptyMapValue:
		return message.MapOf()
	}
	return message.String(n.raw())
}
