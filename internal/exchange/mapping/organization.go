package mapping

import (
	"context"

	"github.com/Kargones/apk-exchange/internal/exchange/entity"
	"github.com/Kargones/apk-exchange/internal/exchange/message"
	"github.com/Kargones/apk-exchange/internal/exchange/result"
)

// TypeOrganizations - справочник организаций.
const TypeOrganizations = "Справочник.Организации"

// OrganizationMapping сопоставляет Справочник.Организации и entity.Organization.
type OrganizationMapping struct{}

func (OrganizationMapping) ObjectType() string      { return TypeOrganizations }
func (OrganizationMapping) EntityKind() entity.Kind { return entity.KindOrganization }

// ValidateStructure требует GUID и наименование, ИНН без КПП - предупреждение.
func (OrganizationMapping) ValidateStructure(obj message.Object) result.Validation {
	fields := keyFields(obj, fieldName, fieldINN, fieldKPP)
	v := result.Require(fields, message.PropRef, fieldName)
	if fields[fieldINN] != "" && fields[fieldKPP] == "" {
		v = v.WithWarning("у организации " + fields[fieldName] + " не заполнен КПП")
	}
	return v
}

func (OrganizationMapping) MapFrom1C(_ context.Context, obj message.Object) (entity.Entity, error) {
	return &entity.Organization{
		Ref:      obj.ReferenceID(),
		Name:     obj.Field(fieldName),
		FullName: obj.Field(fieldFullName),
		INN:      obj.Field(fieldINN),
		KPP:      obj.Field(fieldKPP),
	}, nil
}

func (m OrganizationMapping) MapTo1C(_ context.Context, e entity.Entity) (message.Object, error) {
	o, ok := e.(*entity.Organization)
	if !ok {
		return message.Object{}, unexpected(m.ObjectType(), e)
	}
	key := (&propsBuilder{}).
		add(message.PropRef, o.Ref).
		add(fieldName, o.Name).
		add(fieldFullName, o.FullName).
		add(fieldINN, o.INN).
		add(fieldKPP, o.KPP)
	return keyed(TypeOrganizations, o.Ref, key, nil), nil
}
