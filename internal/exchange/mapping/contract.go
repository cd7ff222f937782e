package mapping

import (
	"context"
	"fmt"
	"time"

	"github.com/Kargones/apk-exchange/internal/exchange/entity"
	"github.com/Kargones/apk-exchange/internal/exchange/message"
	"github.com/Kargones/apk-exchange/internal/exchange/result"
)

// TypeContracts - справочник договоров.
const TypeContracts = "Справочник.Договоры"

// knownContractKind проверяет вид договора по перечислению EnterpriseData.
func knownContractKind(kind string) bool {
	switch kind {
	case "СПоставщиком", "СПокупателем", "СКомитентом", "СКомиссионером", "Прочее":
		return true
	default:
		return false
	}
}

// ContractMapping сопоставляет Справочник.Договоры и entity.Contract.
// Договор загружается только после своей организации и контрагента.
type ContractMapping struct {
	Resolver RefResolver
}

func (ContractMapping) ObjectType() string      { return TypeContracts }
func (ContractMapping) EntityKind() entity.Kind { return entity.KindContract }

func (ContractMapping) ValidateStructure(obj message.Object) result.Validation {
	fields := keyFields(obj, fieldName, fieldContractKind, fieldDate)
	fields[fieldOrganization] = nestedRef(obj, fieldOrganization)
	fields[fieldCounterparty] = nestedRef(obj, fieldCounterparty)

	v := result.Require(fields, message.PropRef, fieldName, fieldOrganization, fieldCounterparty)
	if kind := fields[fieldContractKind]; kind != "" && !knownContractKind(kind) {
		v = v.WithWarning("неизвестный вид договора " + kind)
	}
	if d := fields[fieldDate]; d != "" {
		if _, err := parseDate(d); err != nil {
			v = v.Merge(result.Invalid("некорректная дата договора " + d))
		}
	}
	return v
}

func (m ContractMapping) MapFrom1C(ctx context.Context, obj message.Object) (entity.Entity, error) {
	c := &entity.Contract{
		Ref:              obj.ReferenceID(),
		Name:             obj.Field(fieldName),
		Number:           obj.Field(fieldNumber),
		ContractKind:     obj.Field(fieldContractKind),
		Currency:         nestedField(obj, fieldCurrency, fieldCode),
		OrganizationGUID: nestedRef(obj, fieldOrganization),
		CounterpartyGUID: nestedRef(obj, fieldCounterparty),
	}
	if d := obj.Field(fieldDate); d != "" {
		date, err := parseDate(d)
		if err != nil {
			return nil, fmt.Errorf("%s %s: некорректная дата %q: %w", TypeContracts, c.Ref, d, err)
		}
		c.Date = date
	}

	deps := []struct {
		kind entity.Kind
		guid string
	}{
		{entity.KindOrganization, c.OrganizationGUID},
		{entity.KindCounterparty, c.CounterpartyGUID},
	}
	for _, dep := range deps {
		if err := m.requireLoaded(ctx, c.Ref, dep.kind, dep.guid); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (m ContractMapping) requireLoaded(ctx context.Context, ref string, kind entity.Kind, guid string) error {
	if guid == "" {
		return fmt.Errorf("%s %s: не указана ссылка на %s", TypeContracts, ref, kind)
	}
	if m.Resolver == nil {
		return nil
	}
	ok, err := m.Resolver.Exists(ctx, kind, guid)
	if err != nil {
		return fmt.Errorf("%s %s: проверка %s %s: %w", TypeContracts, ref, kind, guid, err)
	}
	if !ok {
		return &DependencyNotReadyError{ObjectType: TypeContracts, Ref: ref, MissingKind: kind, MissingRef: guid}
	}
	return nil
}

func (m ContractMapping) MapTo1C(_ context.Context, e entity.Entity) (message.Object, error) {
	c, ok := e.(*entity.Contract)
	if !ok {
		return message.Object{}, unexpected(m.ObjectType(), e)
	}
	key := (&propsBuilder{}).
		add(message.PropRef, c.Ref).
		add(fieldName, c.Name).
		add(fieldNumber, c.Number).
		add(fieldContractKind, c.ContractKind)
	if !c.Date.IsZero() {
		key.add(fieldDate, c.Date.Format(dateLayout))
	}
	key.addValue(fieldOrganization, refValue(c.OrganizationGUID)).
		addValue(fieldCounterparty, refValue(c.CounterpartyGUID))

	rest := &propsBuilder{}
	if c.Currency != "" {
		rest.addValue(fieldCurrency, message.MapOf(message.Prop(fieldCode, message.String(c.Currency))))
	}
	return keyed(TypeContracts, c.Ref, key, rest), nil
}

const dateLayout = "2006-01-02T15:04:05"

// parseDate разбирает дату договора: 1С пишет дату со временем, иногда без него.
func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{dateLayout, "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("ожидается формат %s", dateLayout)
}
