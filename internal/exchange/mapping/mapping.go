// Package mapping сопоставляет объекты EnterpriseData локальным сущностям.
// Каждому типу объекта 1С соответствует одна реализация ObjectMapping,
// реализации регистрируются в явно созданном Registry.
package mapping

import (
	"context"
	"errors"
	"fmt"

	"github.com/Kargones/apk-exchange/internal/exchange/entity"
	"github.com/Kargones/apk-exchange/internal/exchange/message"
	"github.com/Kargones/apk-exchange/internal/exchange/result"
)

// ObjectMapping преобразует объект одного типа 1С в локальную сущность и обратно.
type ObjectMapping interface {
	// ObjectType - тип объекта 1С, например "Справочник.Организации".
	ObjectType() string

	// EntityKind - вид локальной сущности.
	EntityKind() entity.Kind

	// MapFrom1C строит сущность из объекта. Возвращает *DependencyNotReadyError,
	// если связанная сущность ещё не загружена.
	MapFrom1C(ctx context.Context, obj message.Object) (entity.Entity, error)

	// MapTo1C строит объект сообщения из сущности.
	MapTo1C(ctx context.Context, e entity.Entity) (message.Object, error)

	// ValidateStructure проверяет обязательные поля объекта до преобразования.
	ValidateStructure(obj message.Object) result.Validation
}

// RefResolver проверяет, загружена ли сущность с указанным GUID.
type RefResolver interface {
	Exists(ctx context.Context, kind entity.Kind, guid string) (bool, error)
}

// ErrDependencyNotReady - признак ошибки неготовой зависимости для errors.Is.
var ErrDependencyNotReady = errors.New("связанный объект ещё не загружен")

// ErrUnexpectedEntity возвращается MapTo1C при сущности чужого вида.
var ErrUnexpectedEntity = errors.New("неожиданный вид сущности")

// DependencyNotReadyError - объект ссылается на сущность, которой ещё нет
// локально. Пакет стоит повторить после загрузки зависимости.
type DependencyNotReadyError struct {
	ObjectType  string
	Ref         string
	MissingKind entity.Kind
	MissingRef  string
}

func (e *DependencyNotReadyError) Error() string {
	return fmt.Sprintf("%s %s: не загружен %s %s", e.ObjectType, e.Ref, e.MissingKind, e.MissingRef)
}

// Is позволяет проверять ошибку через errors.Is(err, ErrDependencyNotReady).
func (e *DependencyNotReadyError) Is(target error) bool {
	return target == ErrDependencyNotReady
}

// IsDependencyNotReady сообщает, что ошибку можно повторить позже.
func IsDependencyNotReady(err error) bool {
	return errors.Is(err, ErrDependencyNotReady)
}

func unexpected(objectType string, e entity.Entity) error {
	return fmt.Errorf("%w: %s не принимает %T", ErrUnexpectedEntity, objectType, e)
}
