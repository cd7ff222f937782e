// Package datamapper применяет объекты входящего сообщения к локальному
// хранилищу через реестр сопоставлений и готовит объекты для отправки.
//
// Ошибка одного объекта не прерывает обработку пакета: она попадает в
// result.Processing, и обработка продолжается со следующего объекта.
// Каждый объект сохраняется отдельно, без общей транзакции на сообщение.
package datamapper

import (
	"context"
	"fmt"

	"github.com/Kargones/apk-exchange/internal/exchange/connector"
	"github.com/Kargones/apk-exchange/internal/exchange/entity"
	"github.com/Kargones/apk-exchange/internal/exchange/mapping"
	"github.com/Kargones/apk-exchange/internal/exchange/message"
	"github.com/Kargones/apk-exchange/internal/exchange/result"
	"github.com/Kargones/apk-exchange/internal/pkg/logging"
)

// EntityStore - хранилище локальных сущностей с upsert по GUID 1С.
type EntityStore interface {
	// Upsert создаёт или обновляет сущность. created=true для новой записи.
	Upsert(ctx context.Context, e entity.Entity) (created bool, err error)

	// MarkDeleted помечает сущность удалённой. found=false, если её нет.
	MarkDeleted(ctx context.Context, kind entity.Kind, guid string) (found bool, err error)
}

// Mapper применяет входящие объекты и готовит исходящие.
type Mapper struct {
	registry *mapping.Registry
	store    EntityStore
	logger   logging.Logger
}

// New создаёт Mapper.
func New(registry *mapping.Registry, store EntityStore, logger logging.Logger) *Mapper {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Mapper{registry: registry, store: store, logger: logger}
}

// ProcessIncomingObjects применяет объекты по порядку:
//   - тип без сопоставления пропускается и попадает в Unmapped;
//   - тип, который подключение не принимает, пропускается с предупреждением;
//   - маркер удаления помечает целевую сущность удалённой;
//   - остальные объекты проверяются, преобразуются и сохраняются.
//
// Возвращённый результат содержит ошибки каждого неудачного объекта.
func (m *Mapper) ProcessIncomingObjects(ctx context.Context, objects []message.Object, conn connector.Connector) result.Processing {
	res := result.NewProcessing()
	log := logging.ForExchange(m.logger, conn.Name, result.DirectionIncoming)

	for i, obj := range objects {
		if err := ctx.Err(); err != nil {
			res.Success = false
			res.Errors = append(res.Errors,
				fmt.Sprintf("обработка прервана на объекте %d из %d: %v", i+1, len(objects), err))
			break
		}

		if obj.IsDeletion() {
			m.applyDeletion(ctx, obj, conn, &res, log)
			continue
		}

		// Тип без сопоставления попадает в Unmapped даже при ограничениях
		// подключения: вызывающий код учитывает такие типы в журнале.
		om, ok := m.registry.Resolve(obj.Type)
		if !ok {
			res.Unmapped = append(res.Unmapped, result.UnmappedRef{ObjectType: obj.Type, Ref: obj.ReferenceID()})
			continue
		}
		if !conn.ReceivesObjectType(obj.Type) {
			res.Warnings = append(res.Warnings, notReceived(obj.Type, obj.ReferenceID(), conn))
			continue
		}

		m.applyObject(ctx, om, obj, &res, log)
	}

	log.Info("входящие объекты обработаны",
		"total", len(objects),
		"processed", res.ProcessedCount,
		"created", len(res.CreatedIDs),
		"updated", len(res.UpdatedIDs),
		"deleted", len(res.DeletedIDs),
		"unmapped", len(res.Unmapped),
		"errors", len(res.Errors),
		"retryable", res.RetryableCount,
	)
	return res
}

func (m *Mapper) applyObject(ctx context.Context, om mapping.ObjectMapping, obj message.Object, res *result.Processing, log logging.Logger) {
	ref := obj.ReferenceID()
	label := obj.Type + " " + ref

	validation := om.ValidateStructure(obj)
	for _, w := range validation.Warnings {
		res.Warnings = append(res.Warnings, label+": "+w)
	}
	if !validation.Valid {
		m.fail(res, log, obj, fmt.Errorf("некорректная структура: %w", validation.Err()))
		return
	}

	e, err := mapFrom1C(ctx, om, obj)
	if err != nil {
		m.fail(res, log, obj, err)
		return
	}

	created, err := m.store.Upsert(ctx, e)
	if err != nil {
		m.fail(res, log, obj, fmt.Errorf("сохранение: %w", err))
		return
	}

	res.ProcessedCount++
	if created {
		res.CreatedIDs = append(res.CreatedIDs, e.GUID())
	} else {
		res.UpdatedIDs = append(res.UpdatedIDs, e.GUID())
	}
}

func (m *Mapper) applyDeletion(ctx context.Context, obj message.Object, conn connector.Connector, res *result.Processing, log logging.Logger) {
	targetType, ref, ok := obj.DeletionTarget()
	if !ok {
		m.fail(res, log, obj, fmt.Errorf("маркер удаления не содержит ссылки на объект"))
		return
	}
	om, ok := m.registry.Resolve(targetType)
	if !ok {
		res.Unmapped = append(res.Unmapped, result.UnmappedRef{ObjectType: targetType, Ref: ref})
		return
	}
	if !conn.ReceivesObjectType(targetType) {
		res.Warnings = append(res.Warnings, notReceived(targetType, ref, conn))
		return
	}

	found, err := m.store.MarkDeleted(ctx, om.EntityKind(), ref)
	if err != nil {
		m.fail(res, log, obj, fmt.Errorf("удаление %s %s: %w", targetType, ref, err))
		return
	}
	res.ProcessedCount++
	if !found {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("%s %s: удаляемый объект не найден локально", targetType, ref))
		return
	}
	res.DeletedIDs = append(res.DeletedIDs, ref)
}

func notReceived(objectType, ref string, conn connector.Connector) string {
	return fmt.Sprintf("%s %s: тип не принимается подключением %s", objectType, ref, conn.Name)
}

func (m *Mapper) fail(res *result.Processing, log logging.Logger, obj message.Object, err error) {
	res.Success = false
	if mapping.IsDependencyNotReady(err) {
		res.RetryableCount++
	}
	msg := fmt.Sprintf("%s %s: %v", obj.Type, obj.ReferenceID(), err)
	res.Errors = append(res.Errors, msg)
	log.Warn("объект не загружен",
		logging.KeyObject, obj.Type,
		logging.KeyRef, obj.ReferenceID(),
		logging.KeyError, err.Error(),
		"retryable", mapping.IsDependencyNotReady(err),
	)
}

// mapFrom1C изолирует панику сопоставления, превращая её в ошибку объекта.
func mapFrom1C(ctx context.Context, om mapping.ObjectMapping, obj message.Object) (e entity.Entity, err error) {
	defer func() {
		if r := recover(); r != nil {
			e, err = nil, fmt.Errorf("паника при преобразовании: %v", r)
		}
	}()
	e, err = om.MapFrom1C(ctx, obj)
	if err == nil && e == nil {
		err = fmt.Errorf("сопоставление не вернуло сущность")
	}
	return e, err
}

func mapTo1C(ctx context.Context, om mapping.ObjectMapping, e entity.Entity) (obj message.Object, err error) {
	defer func() {
		if r := recover(); r != nil {
			obj, err = message.Object{}, fmt.Errorf("паника при преобразовании: %v", r)
		}
	}()
	return om.MapTo1C(ctx, e)
}
