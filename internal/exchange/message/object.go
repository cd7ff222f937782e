package message

import "strings"

// Имена служебных свойств EnterpriseData.
const (
	PropKeyProperties = "КлючевыеСвойства"
	PropRef           = "Ссылка"
	PropObjectRef     = "СсылкаНаОбъект"
	propObjectRefEn   = "ObjectRef"
)

// Типы объекта-маркера удаления.
const (
	TypeObjectDeletion   = "УдалениеОбъекта"
	TypeObjectDeletionEn = "ObjectDeletion"
)

// Object - объект из тела сообщения: тип, ссылка и свойства.
type Object struct {
	// Type - имя типа объекта, например "Справочник.Организации".
	Type string

	// Ref - значение атрибута Ref элемента, если он был указан.
	Ref string

	Properties Properties
}

// ReferenceID возвращает GUID объекта: атрибут Ref, затем
// КлючевыеСвойства/Ссылка, затем Ссылка верхнего уровня.
func (o Object) ReferenceID() string {
	if o.Ref != "" {
		return o.Ref
	}
	if s := strings.TrimSpace(o.Properties.Text(PropKeyProperties, PropRef)); s != "" {
		return s
	}
	return strings.TrimSpace(o.Properties.Text(PropRef))
}

// KeyProperties возвращает свойства блока КлючевыеСвойства.
func (o Object) KeyProperties() Properties {
	v, ok := o.Properties.Get(PropKeyProperties)
	if !ok {
		return nil
	}
	return v.Fields()
}

// Field ищет свойство сначала в КлючевыеСвойства, затем на верхнем уровне.
func (o Object) Field(name string) string {
	if s := o.KeyProperties().Text(name); s != "" {
		return s
	}
	return o.Properties.Text(name)
}

// IsDeletion сообщает, что объект - маркер удаления.
func (o Object) IsDeletion() bool {
	return o.Type == TypeObjectDeletion || o.Type == TypeObjectDeletionEn
}

// DeletionTarget извлекает тип и GUID удаляемого объекта из вложенной
// ссылки вида СсылкаНаОбъект/СсылкаНаОбъект/СправочникСсылка.Организации.
func (o Object) DeletionTarget() (objectType, ref string, ok bool) {
	if !o.IsDeletion() {
		return "", "", false
	}
	return findTypedRef(o.Properties, 0)
}

const maxRefDepth = 8

func findTypedRef(props Properties, depth int) (string, string, bool) {
	if depth > maxRefDepth {
		return "", "", false
	}
	for _, p := range props {
		if t, ok := RefTypeToObjectType(p.Name); ok && p.Value.IsScalar() {
			if ref := strings.TrimSpace(p.Value.Text()); ref != "" {
				return t, ref, true
			}
		}
	}
	for _, p := range props {
		if p.Name != PropObjectRef && p.Name != propObjectRefEn {
			continue
		}
		if t, ref, ok := findTypedRef(p.Value.Fields(), depth+1); ok {
			return t, ref, true
		}
	}
	return "", "", false
}

// RefTypeToObjectType превращает имя ссылочного типа в имя типа объекта:
// "СправочникСсылка.Организации" → "Справочник.Организации",
// "CatalogRef.Organizations" → "Catalog.Organizations".
func RefTypeToObjectType(refType string) (string, bool) {
	prefix, name, found := strings.Cut(refType, ".")
	if !found || name == "" {
		return "", false
	}
	for _, suffix := range []string{"Ссылка", "Ref"} {
		if base, ok := strings.CutSuffix(prefix, suffix); ok && base != "" {
			return base + "." + name, true
		}
	}
	return "", false
}

// ObjectTypeToRefType - обратное преобразование для формирования маркеров удаления.
func ObjectTypeToRefType(objectType string) string {
	prefix, name, found := strings.Cut(objectType, ".")
	if !found {
		return objectType
	}
	suffix := "Ссылка"
	if isASCII(prefix) {
		suffix = "Ref"
	}
	return prefix + suffix + "." + name
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// NewDeletion создаёт маркер удаления объекта указанного типа.
func NewDeletion(objectType, ref string) Object {
	inner := MapOf(Prop(ObjectTypeToRefType(objectType), String(ref)))
	return Object{
		Type: TypeObjectDeletion,
		Properties: Properties{
			Prop(PropObjectRef, MapOf(Prop(PropObjectRef, inner))),
		},
	}
}
