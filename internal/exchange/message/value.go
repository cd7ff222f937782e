package message

import "slices"

// Kind - вид значения свойства объекта.
type Kind int

const (
	// KindScalar - текстовое значение элемента без дочерних элементов.
	KindScalar Kind = iota
	// KindMap - элемент с дочерними элементами.
	KindMap
	// KindList - повторяющиеся элементы с одинаковым именем.
	KindList
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindMap:
		return "map"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// Value - значение свойства: строка, вложенная структура или список.
// Нулевое значение - пустая строка.
type Value struct {
	kind   Kind
	text   string
	fields Properties
	items  []Value
}

// String создаёт скалярное значение.
func String(s string) Value {
	return Value{kind: KindScalar, text: s}
}

// MapOf создаёт структурное значение из свойств.
func MapOf(props ...Property) Value {
	return Value{kind: KindMap, fields: slices.Clone(Properties(props))}
}

// ListOf создаёт список значений.
func ListOf(items ...Value) Value {
	return Value{kind: KindList, items: slices.Clone(items)}
}

// Kind возвращает вид значения.
func (v Value) Kind() Kind { return v.kind }

// IsScalar сообщает, что значение скалярное.
func (v Value) IsScalar() bool { return v.kind == KindScalar }

// Text возвращает строку скалярного значения. Для map и list - пустая строка.
func (v Value) Text() string {
	if v.kind != KindScalar {
		return ""
	}
	return v.text
}

// Fields возвращает копию свойств структурного значения.
func (v Value) Fields() Properties {
	if v.kind != KindMap {
		return nil
	}
	return slices.Clone(v.fields)
}

// Items возвращает копию элементов списка.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return slices.Clone(v.items)
}

// Lookup спускается по вложенным структурам. Для списка путь
// продолжается по первому элементу.
func (v Value) Lookup(path ...string) (Value, bool) {
	cur := v
	for _, name := range path {
		if cur.kind == KindList {
			if len(cur.items) == 0 {
				return Value{}, false
			}
			cur = cur.items[0]
		}
		if cur.kind != KindMap {
			return Value{}, false
		}
		next, ok := cur.fields.Get(name)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Equal сравнивает значения структурно.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindMap:
		return v.fields.Equal(other.fields)
	case KindList:
		return slices.EqualFunc(v.items, other.items, Value.Equal)
	default:
		return v.text == other.text
	}
}

// Property - именованное свойство объекта в порядке следования в XML.
type Property struct {
	Name  string
	Value Value
}

// Prop - сокращение для Property{Name, Value}.
func Prop(name string, v Value) Property {
	return Property{Name: name, Value: v}
}

// Properties - упорядоченный набор свойств объекта.
type Properties []Property

// Get возвращает значение первого свойства с указанным именем.
func (p Properties) Get(name string) (Value, bool) {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Value, true
		}
	}
	return Value{}, false
}

// Lookup ищет значение по пути имён вложенных свойств.
func (p Properties) Lookup(path ...string) (Value, bool) {
	if len(path) == 0 {
		return Value{}, false
	}
	first, ok := p.Get(path[0])
	if !ok {
		return Value{}, false
	}
	return first.Lookup(path[1:]...)
}

// Text возвращает строку по пути или пустую строку.
func (p Properties) Text(path ...string) string {
	v, ok := p.Lookup(path...)
	if !ok {
		return ""
	}
	return v.Text()
}

// Names возвращает имена свойств в исходном порядке.
func (p Properties) Names() []string {
	names := make([]string, len(p))
	for i, prop := range p {
		names[i] = prop.Name
	}
	return names
}

// Set возвращает копию набора, где свойство name заменено или добавлено в конец.
func (p Properties) Set(name string, v Value) Properties {
	out := slices.Clone(p)
	for i := range out {
		if out[i].Name == name {
			out[i].Value = v
			return out
		}
	}
	return append(out, Property{Name: name, Value: v})
}

// Equal сравнивает наборы с учётом порядка.
func (p Properties) Equal(other Properties) bool {
	return slices.EqualFunc(p, other, func(a, b Property) bool {
		return a.Name == b.Name && a.Value.Equal(b.Value)
	})
}
