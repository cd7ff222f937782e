package mapping

import (
	"slices"
	"sync"

	"github.com/Kargones/apk-exchange/internal/exchange/entity"
)

// Registry хранит сопоставления по типу объекта 1С.
// Создаётся явно и передаётся зависимостями; безопасен для чтения из горутин.
type Registry struct {
	mu       sync.RWMutex
	mappings map[string]ObjectMapping
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{mappings: make(map[string]ObjectMapping)}
}

// RegisterMapping регистрирует сопоставление для типа. Повторная
// регистрация того же типа заменяет предыдущую.
func (r *Registry) RegisterMapping(objectType string, m ObjectMapping) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings[objectType] = m
}

// Register регистрирует сопоставление под его собственным типом.
func (r *Registry) Register(m ObjectMapping) {
	r.RegisterMapping(m.ObjectType(), m)
}

// Resolve ищет сопоставление для типа. Отсутствие сопоставления не ошибка:
// вызывающий пропускает такой объект.
func (r *Registry) Resolve(objectType string) (ObjectMapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mappings[objectType]
	return m, ok
}

// ResolveKind ищет сопоставление по виду сущности (для исходящих сообщений).
// При нескольких подходящих выбирается тип с наименьшим именем.
func (r *Registry) ResolveKind(kind entity.Kind) (ObjectMapping, bool) {
	for _, t := range r.Types() {
		m, ok := r.Resolve(t)
		if ok && m.EntityKind() == kind {
			return m, true
		}
	}
	return nil, false
}

// Types возвращает зарегистрированные типы в отсортированном порядке.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.mappings))
	for t := range r.mappings {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Len возвращает количество зарегистрированных типов.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mappings)
}

// NewDefaultRegistry регистрирует встроенные сопоставления справочников.
func NewDefaultRegistry(resolver RefResolver) *Registry {
	r := NewRegistry()
	r.Register(OrganizationMapping{})
	r.Register(CounterpartyMapping{})
	r.Register(CurrencyMapping{})
	r.Register(ContractMapping{Resolver: resolver})
	return r
}
