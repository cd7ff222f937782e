package mapping

import (
	"strings"

	"github.com/Kargones/apk-exchange/internal/exchange/message"
)

// Имена свойств справочников EnterpriseData.
const (
	fieldName         = "Наименование"
	fieldFullName     = "НаименованиеПолное"
	fieldINN          = "ИНН"
	fieldKPP          = "КПП"
	fieldCode         = "Код"
	fieldLegalForm    = "ЮридическоеФизическоеЛицо"
	fieldCountry      = "СтранаРегистрации"
	fieldNumber       = "Номер"
	fieldDate         = "Дата"
	fieldContractKind = "ВидДоговора"
	fieldOrganization = "Организация"
	fieldCounterparty = "Контрагент"
	fieldCurrency     = "ВалютаВзаиморасчетов"
)

// keyFields собирает поля объекта для проверки обязательности.
func keyFields(obj message.Object, names ...string) map[string]string {
	out := make(map[string]string, len(names)+1)
	out[message.PropRef] = obj.ReferenceID()
	for _, n := range names {
		out[n] = strings.TrimSpace(obj.Field(n))
	}
	return out
}

// nestedRef извлекает GUID вложенной ссылки: <Организация><Ссылка>guid</Ссылка>...
// Допускается и скалярное значение <Организация>guid</Организация>.
func nestedRef(obj message.Object, name string) string {
	for _, props := range []message.Properties{obj.KeyProperties(), obj.Properties} {
		v, ok := props.Get(name)
		if !ok {
			continue
		}
		if v.IsScalar() {
			return strings.TrimSpace(v.Text())
		}
		if ref, ok := v.Lookup(message.PropRef); ok {
			return strings.TrimSpace(ref.Text())
		}
	}
	return ""
}

// nestedField извлекает поле вложенной структуры или скалярное значение свойства.
func nestedField(obj message.Object, name, field string) string {
	for _, props := range []message.Properties{obj.KeyProperties(), obj.Properties} {
		v, ok := props.Get(name)
		if !ok {
			continue
		}
		if v.IsScalar() {
			return strings.TrimSpace(v.Text())
		}
		if inner, ok := v.Lookup(field); ok {
			return strings.TrimSpace(inner.Text())
		}
	}
	return ""
}

// propsBuilder собирает непустые скалярные свойства в заданном порядке.
type propsBuilder struct {
	props message.Properties
}

func (b *propsBuilder) add(name, value string) *propsBuilder {
	if value != "" {
		b.props = append(b.props, message.Prop(name, message.String(value)))
	}
	return b
}

func (b *propsBuilder) addValue(name string, v message.Value) *propsBuilder {
	b.props = append(b.props, message.Prop(name, v))
	return b
}

func refValue(guid string) message.Value {
	return message.MapOf(message.Prop(message.PropRef, message.String(guid)))
}

func keyed(objectType, ref string, key *propsBuilder, rest *propsBuilder) message.Object {
	props := message.Properties{message.Prop(message.PropKeyProperties, message.MapOf(key.props...))}
	if rest != nil {
		props = append(props, rest.props...)
	}
	return message.Object{Type: objectType, Ref: ref, Properties: props}
}
