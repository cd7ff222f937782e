package mapping

import (
	"context"

	"github.com/Kargones/apk-exchange/internal/exchange/entity"
	"github.com/Kargones/apk-exchange/internal/exchange/message"
	"github.com/Kargones/apk-exchange/internal/exchange/result"
)

// TypeCounterparties - справочник контрагентов.
const TypeCounterparties = "Справочник.Контрагенты"

// CounterpartyMapping сопоставляет Справочник.Контрагенты и entity.Counterparty.
type CounterpartyMapping struct{}

func (CounterpartyMapping) ObjectType() string      { return TypeCounterparties }
func (CounterpartyMapping) EntityKind() entity.Kind { return entity.KindCounterparty }

func (CounterpartyMapping) ValidateStructure(obj message.Object) result.Validation {
	fields := keyFields(obj, fieldName, fieldINN, fieldLegalForm)
	v := result.Require(fields, message.PropRef, fieldName)
	switch fields[fieldLegalForm] {
	case "", entity.LegalFormCompany, entity.LegalFormIndividual:
	default:
		v = v.Merge(result.Invalid("неизвестное значение " + fieldLegalForm + ": " + fields[fieldLegalForm]))
	}
	if fields[fieldINN] == "" {
		v = v.WithWarning("у контрагента " + fields[fieldName] + " не заполнен ИНН")
	}
	return v
}

func (CounterpartyMapping) MapFrom1C(_ context.Context, obj message.Object) (entity.Entity, error) {
	return &entity.Counterparty{
		Ref:       obj.ReferenceID(),
		Name:      obj.Field(fieldName),
		FullName:  obj.Field(fieldFullName),
		INN:       obj.Field(fieldINN),
		KPP:       obj.Field(fieldKPP),
		LegalForm: obj.Field(fieldLegalForm),
		Country:   nestedField(obj, fieldCountry, fieldName),
	}, nil
}

func (m CounterpartyMapping) MapTo1C(_ context.Context, e entity.Entity) (message.Object, error) {
	c, ok := e.(*entity.Counterparty)
	if !ok {
		return message.Object{}, unexpected(m.ObjectType(), e)
	}
	key := (&propsBuilder{}).
		add(message.PropRef, c.Ref).
		add(fieldName, c.Name).
		add(fieldFullName, c.FullName).
		add(fieldINN, c.INN).
		add(fieldKPP, c.KPP).
		add(fieldLegalForm, c.LegalForm)
	rest := &propsBuilder{}
	if c.Country != "" {
		rest.addValue(fieldCountry, message.MapOf(message.Prop(fieldName, message.String(c.Country))))
	}
	return keyed(TypeCounterparties, c.Ref, key, rest), nil
}
