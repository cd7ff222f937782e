package mapping

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Kargones/apk-exchange/internal/exchange/entity"
	"github.com/Kargones/apk-exchange/internal/exchange/message"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	known map[string]bool
	err   error
}

func (f fakeResolver) Exists(_ context.Context, kind entity.Kind, guid string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.known[string(kind)+"/"+guid], nil
}

func keyObject(objectType, ref string, props ...message.Property) message.Object {
	return message.Object{
		Type:       objectType,
		Ref:        ref,
		Properties: message.Properties{message.Prop(message.PropKeyProperties, message.MapOf(props...))},
	}
}

func str(name, value string) message.Property {
	return message.Prop(name, message.String(value))
}

func contractObject() message.Object {
	return keyObject(TypeContracts, "dog-1",
		str("Наименование", "Основной"),
		str("Номер", "15"),
		str("Дата", "2024-02-01T00:00:00"),
		str("ВидДоговора", "СПокупателем"),
		message.Prop("Организация", message.MapOf(str("Ссылка", "org-1"), str("Наименование", "АПК"))),
		message.Prop("Контрагент", message.MapOf(str("Ссылка", "cp-1"))),
	)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Resolve(TypeOrganizations)
	assert.False(t, ok)

	r.Register(OrganizationMapping{})
	m, ok := r.Resolve(TypeOrganizations)
	require.True(t, ok)
	assert.Equal(t, entity.KindOrganization, m.EntityKind())

	r.RegisterMapping(TypeOrganizations, CounterpartyMapping{})
	m, _ = r.Resolve(TypeOrganizations)
	assert.IsType(t, CounterpartyMapping{}, m, "последняя регистрация побеждает")
	assert.Equal(t, 1, r.Len())
}

func TestNewDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry(fakeResolver{})
	assert.Equal(t, []string{TypeCurrencies, TypeContracts, TypeCounterparties, TypeOrganizations}, r.Types())

	m, ok := r.ResolveKind(entity.KindContract)
	require.True(t, ok)
	assert.Equal(t, TypeContracts, m.ObjectType())

	_, ok = NewRegistry().ResolveKind(entity.KindContract)
	assert.False(t, ok)
}

func TestRegistry_КонкурентноеЧтение(t *testing.T) {
	r := NewDefaultRegistry(nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = r.Resolve(TypeContracts)
			_ = r.Types()
		}()
	}
	r.Register(CurrencyMapping{})
	wg.Wait()
}

func TestOrganizationMapping(t *testing.T) {
	m := OrganizationMapping{}
	obj := keyObject(TypeOrganizations, "org-1", str("Наименование", "АПК"), str("ИНН", "7701"))

	v := m.ValidateStructure(obj)
	assert.True(t, v.Valid)
	assert.Len(t, v.Warnings, 1, "ИНН без КПП")

	e, err := m.MapFrom1C(context.Background(), obj)
	require.NoError(t, err)
	assert.Equal(t, &entity.Organization{Ref: "org-1", Name: "АПК", INN: "7701"}, e)

	back, err := m.MapTo1C(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, "org-1", back.Ref)
	assert.Equal(t, "АПК", back.Field("Наименование"))
	assert.Equal(t, "org-1", back.KeyProperties().Text("Ссылка"))

	invalid := m.ValidateStructure(keyObject(TypeOrganizations, ""))
	assert.False(t, invalid.Valid)
	assert.Len(t, invalid.Errors, 2)

	_, err = m.MapTo1C(context.Background(), &entity.Currency{})
	assert.ErrorIs(t, err, ErrUnexpectedEntity)
}

func TestCounterpartyMapping(t *testing.T) {
	m := CounterpartyMapping{}
	obj := keyObject(TypeCounterparties, "cp-1",
		str("Наименование", "Ромашка"),
		str("ИНН", "5001"),
		str("ЮридическоеФизическоеЛицо", "ЮридическоеЛицо"),
	)
	obj.Properties = obj.Properties.Set("СтранаРегистрации", message.MapOf(str("Наименование", "РОССИЯ")))

	assert.True(t, m.ValidateStructure(obj).Valid)

	e, err := m.MapFrom1C(context.Background(), obj)
	require.NoError(t, err)
	cp := e.(*entity.Counterparty)
	assert.Equal(t, "РОССИЯ", cp.Country)
	assert.Equal(t, entity.LegalFormCompany, cp.LegalForm)

	back, err := m.MapTo1C(context.Background(), cp)
	require.NoError(t, err)
	again, err := m.MapFrom1C(context.Background(), back)
	require.NoError(t, err)
	assert.Equal(t, cp, again)

	wrongForm := keyObject(TypeCounterparties, "cp-2", str("Наименование", "X"), str("ЮридическоеФизическоеЛицо", "ИП"))
	v := m.ValidateStructure(wrongForm)
	assert.False(t, v.Valid)
	assert.NotEmpty(t, v.Warnings, "нет ИНН")
}

func TestCurrencyMapping(t *testing.T) {
	m := CurrencyMapping{}
	obj := keyObject(TypeCurrencies, "cur-1", str("Код", "643"), str("Наименование", "руб."))
	obj.Properties = obj.Properties.Set("НаименованиеПолное", message.String("Российский рубль"))

	e, err := m.MapFrom1C(context.Background(), obj)
	require.NoError(t, err)
	assert.Equal(t, &entity.Currency{Ref: "cur-1", Code: "643", Name: "руб.", FullName: "Российский рубль"}, e)

	back, err := m.MapTo1C(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, "Российский рубль", back.Properties.Text("НаименованиеПолное"))

	assert.False(t, m.ValidateStructure(keyObject(TypeCurrencies, "cur-2")).Valid)
}

func TestContractMapping_ЗависимостиЗагружены(t *testing.T) {
	m := ContractMapping{Resolver: fakeResolver{known: map[string]bool{
		"organization/org-1": true,
		"counterparty/cp-1":  true,
	}}}
	obj := contractObject()
	obj.Properties = obj.Properties.Set("ВалютаВзаиморасчетов", message.MapOf(str("Код", "643")))

	require.True(t, m.ValidateStructure(obj).Valid)

	e, err := m.MapFrom1C(context.Background(), obj)
	require.NoError(t, err)
	c := e.(*entity.Contract)
	assert.Equal(t, "org-1", c.OrganizationGUID)
	assert.Equal(t, "cp-1", c.CounterpartyGUID)
	assert.Equal(t, "643", c.Currency)
	assert.True(t, c.Date.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)))

	back, err := m.MapTo1C(context.Background(), c)
	require.NoError(t, err)
	again, err := m.MapFrom1C(context.Background(), back)
	require.NoError(t, err)
	assert.Equal(t, c, again)
}

func TestContractMapping_ЗависимостьНеГотова(t *testing.T) {
	m := ContractMapping{Resolver: fakeResolver{known: map[string]bool{"organization/org-1": true}}}

	_, err := m.MapFrom1C(context.Background(), contractObject())
	require.Error(t, err)
	assert.True(t, IsDependencyNotReady(err))

	var dep *DependencyNotReadyError
	require.True(t, errors.As(err, &dep))
	assert.Equal(t, entity.KindCounterparty, dep.MissingKind)
	assert.Equal(t, "cp-1", dep.MissingRef)
	assert.Contains(t, dep.Error(), "cp-1")
}

func TestContractMapping_ОшибкаРезолвера(t *testing.T) {
	m := ContractMapping{Resolver: fakeResolver{err: errors.New("нет соединения")}}

	_, err := m.MapFrom1C(context.Background(), contractObject())
	require.Error(t, err)
	assert.False(t, IsDependencyNotReady(err))
}

func TestContractMapping_Валидация(t *testing.T) {
	m := ContractMapping{}
	obj := keyObject(TypeContracts, "dog-2", str("Наименование", "Без сторон"), str("Дата", "01.02.2024"), str("ВидДоговора", "Аренда"))

	v := m.ValidateStructure(obj)
	assert.False(t, v.Valid)
	assert.Len(t, v.Errors, 3, "нет организации, контрагента и дата некорректна")
	assert.Len(t, v.Warnings, 1)

	scalarRefs := keyObject(TypeContracts, "dog-3",
		str("Наименование", "Скалярные ссылки"),
		str("Организация", "org-1"),
		str("Контрагент", "cp-1"),
	)
	assert.True(t, m.ValidateStructure(scalarRefs).Valid)
}
