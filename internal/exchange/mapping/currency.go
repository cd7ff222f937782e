package mapping

import (
	"context"

	"github.com/Kargones/apk-exchange/internal/exchange/entity"
	"github.com/Kargones/apk-exchange/internal/exchange/message"
	"github.com/Kargones/apk-exchange/internal/exchange/result"
)

// TypeCurrencies - справочник валют.
const TypeCurrencies = "Справочник.Валюты"

// CurrencyMapping сопоставляет Справочник.Валюты и entity.Currency.
type CurrencyMapping struct{}

func (CurrencyMapping) ObjectType() string      { return TypeCurrencies }
func (CurrencyMapping) EntityKind() entity.Kind { return entity.KindCurrency }

func (CurrencyMapping) ValidateStructure(obj message.Object) result.Validation {
	return result.Require(keyFields(obj, fieldCode), message.PropRef, fieldCode)
}

func (CurrencyMapping) MapFrom1C(_ context.Context, obj message.Object) (entity.Entity, error) {
	return &entity.Currency{
		Ref:      obj.ReferenceID(),
		Code:     obj.Field(fieldCode),
		Name:     obj.Field(fieldName),
		FullName: obj.Field(fieldFullName),
	}, nil
}

func (m CurrencyMapping) MapTo1C(_ context.Context, e entity.Entity) (message.Object, error) {
	c, ok := e.(*entity.Currency)
	if !ok {
		return message.Object{}, unexpected(m.ObjectType(), e)
	}
	key := (&propsBuilder{}).
		add(message.PropRef, c.Ref).
		add(fieldCode, c.Code).
		add(fieldName, c.Name)
	rest := (&propsBuilder{}).add(fieldFullName, c.FullName)
	return keyed(TypeCurrencies, c.Ref, key, rest), nil
}
