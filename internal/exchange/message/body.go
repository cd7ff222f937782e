package message

import "slices"

// Body - тело сообщения: объекты в исходном порядке.
type Body struct {
	objects []Object
}

// NewBody копирует объекты в новое тело.
func NewBody(objects []Object) Body {
	return Body{objects: slices.Clone(objects)}
}

// Objects возвращает копию списка объектов.
func (b Body) Objects() []Object {
	return slices.Clone(b.objects)
}

// ObjectsCount возвращает количество объектов.
func (b Body) ObjectsCount() int {
	return len(b.objects)
}

// IsEmpty сообщает, что тело не содержит объектов.
func (b Body) IsEmpty() bool {
	return len(b.objects) == 0
}

// ObjectsByType возвращает новый срез объектов указанного типа в исходном порядке.
func (b Body) ObjectsByType(objectType string) []Object {
	out := make([]Object, 0)
	for _, o := range b.objects {
		if o.Type == objectType {
			out = append(out, o)
		}
	}
	return out
}

// Types возвращает различные типы объектов в порядке первого появления.
func (b Body) Types() []string {
	seen := make(map[string]struct{})
	var types []string
	for _, o := range b.objects {
		if _, ok := seen[o.Type]; ok {
			continue
		}
		seen[o.Type] = struct{}{}
		types = append(types, o.Type)
	}
	return types
}
