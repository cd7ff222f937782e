package datamapper

import (
	"context"
	"fmt"

	"github.com/Kargones/apk-exchange/internal/exchange/connector"
	"github.com/Kargones/apk-exchange/internal/exchange/entity"
	"github.com/Kargones/apk-exchange/internal/exchange/message"
	"github.com/Kargones/apk-exchange/internal/exchange/result"
	"github.com/Kargones/apk-exchange/internal/pkg/logging"
)

// PrepareOutgoingObjects преобразует сущности в объекты сообщения.
// Сущности без сопоставления попадают в Unmapped, типы, которые подключение
// не отправляет, пропускаются с предупреждением.
func (m *Mapper) PrepareOutgoingObjects(ctx context.Context, entities []entity.Entity, conn connector.Connector) ([]message.Object, result.Processing) {
	res := result.NewProcessing()
	log := logging.ForExchange(m.logger, conn.Name, result.DirectionOutgoing)
	objects := make([]message.Object, 0, len(entities))

	for _, e := range entities {
		om, ok := m.registry.ResolveKind(e.Kind())
		if !ok {
			res.Unmapped = append(res.Unmapped, result.UnmappedRef{ObjectType: string(e.Kind()), Ref: e.GUID()})
			continue
		}
		if !conn.SendsObjectType(om.ObjectType()) {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("%s %s: тип не отправляется подключением %s", om.ObjectType(), e.GUID(), conn.Name))
			continue
		}

		obj, err := mapTo1C(ctx, om, e)
		if err != nil {
			res.Success = false
			res.Errors = append(res.Errors, fmt.Sprintf("%s %s: %v", om.ObjectType(), e.GUID(), err))
			log.Warn("объект не выгружен", logging.KeyObject, om.ObjectType(), logging.KeyRef, e.GUID(), logging.KeyError, err.Error())
			continue
		}
		objects = append(objects, obj)
		res.ProcessedCount++
	}
	return objects, res
}

// DeletionObject формирует маркер удаления для сущности указанного вида.
func (m *Mapper) DeletionObject(kind entity.Kind, guid string, conn connector.Connector) (message.Object, bool) {
	om, ok := m.registry.ResolveKind(kind)
	if !ok || !conn.SendsObjectType(om.ObjectType()) {
		return message.Object{}, false
	}
	return message.NewDeletion(om.ObjectType(), guid), true
}
