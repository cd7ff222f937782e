// Package entity содержит локальные сущности, которые синхронизируются
// через обмен. Сущности хранятся в виде JSON-документа с ключом по GUID 1С.
package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind - вид локальной сущности.
type Kind string

const (
	KindOrganization Kind = "organization"
	KindCounterparty Kind = "counterparty"
	KindContract     Kind = "contract"
	KindCurrency     Kind = "currency"
)

// Kinds возвращает все известные виды сущностей.
func Kinds() []Kind {
	return []Kind{KindOrganization, KindCounterparty, KindContract, KindCurrency}
}

// Entity - локальная сущность, сопоставленная объекту 1С.
type Entity interface {
	Kind() Kind

	// GUID - идентификатор объекта в 1С, естественный ключ для upsert.
	GUID() string

	// Presentation - краткое представление для логов и журнала.
	Presentation() string
}

// Organization - собственная организация.
type Organization struct {
	Ref      string `json:"ref"`
	Name     string `json:"name"`
	FullName string `json:"full_name,omitempty"`
	INN      string `json:"inn,omitempty"`
	KPP      string `json:"kpp,omitempty"`
}

func (o *Organization) Kind() Kind           { return KindOrganization }
func (o *Organization) GUID() string         { return o.Ref }
func (o *Organization) Presentation() string { return o.Name }

// Юридический вид контрагента.
const (
	LegalFormCompany    = "ЮридическоеЛицо"
	LegalFormIndividual = "ФизическоеЛицо"
)

// Counterparty - контрагент.
type Counterparty struct {
	Ref       string `json:"ref"`
	Name      string `json:"name"`
	FullName  string `json:"full_name,omitempty"`
	INN       string `json:"inn,omitempty"`
	KPP       string `json:"kpp,omitempty"`
	LegalForm string `json:"legal_form,omitempty"`
	Country   string `json:"country,omitempty"`
}

func (c *Counterparty) Kind() Kind           { return KindCounterparty }
func (c *Counterparty) GUID() string         { return c.Ref }
func (c *Counterparty) Presentation() string { return c.Name }

// Contract - договор с контрагентом.
type Contract struct {
	Ref              string    `json:"ref"`
	Name             string    `json:"name"`
	Number           string    `json:"number,omitempty"`
	Date             time.Time `json:"date,omitempty"`
	ContractKind     string    `json:"contract_kind,omitempty"`
	Currency         string    `json:"currency,omitempty"`
	CounterpartyGUID string    `json:"counterparty_guid"`
	OrganizationGUID string    `json:"organization_guid"`
}

func (c *Contract) Kind() Kind   { return KindContract }
func (c *Contract) GUID() string { return c.Ref }

func (c *Contract) Presentation() string {
	if c.Number == "" {
		return c.Name
	}
	return c.Name + " № " + c.Number
}

// Currency - валюта.
type Currency struct {
	Ref      string `json:"ref"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	FullName string `json:"full_name,omitempty"`
}

func (c *Currency) Kind() Kind           { return KindCurrency }
func (c *Currency) GUID() string         { return c.Ref }
func (c *Currency) Presentation() string { return c.Name + " (" + c.Code + ")" }

// New создаёт пустую сущность указанного вида.
func New(kind Kind) (Entity, error) {
	switch kind {
	case KindOrganization:
		return &Organization{}, nil
	case KindCounterparty:
		return &Counterparty{}, nil
	case KindContract:
		return &Contract{}, nil
	case KindCurrency:
		return &Currency{}, nil
	default:
		return nil, fmt.Errorf("неизвестный вид сущности %q", kind)
	}
}

// Encode сериализует сущность для хранения.
func Encode(e Entity) ([]byte, error) {
	return json.Marshal(e)
}

// Decode восстанавливает сущность из сохранённого документа.
func Decode(kind Kind, payload []byte) (Entity, error) {
	e, err := New(kind)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, e); err != nil {
		return nil, fmt.Errorf("некорректные данные сущности %s: %w", kind, err)
	}
	return e, nil
}
