package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		name   string
		entity Entity
	}{
		{"организация", &Organization{Ref: "o1", Name: "АПК", INN: "7701"}},
		{"контрагент", &Counterparty{Ref: "c1", Name: "Ромашка", LegalForm: LegalFormCompany}},
		{"договор", &Contract{Ref: "d1", Name: "Основной", Number: "15", Date: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), CounterpartyGUID: "c1", OrganizationGUID: "o1"}},
		{"валюта", &Currency{Ref: "v1", Code: "643", Name: "руб."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.entity)
			require.NoError(t, err)

			decoded, err := Decode(tt.entity.Kind(), data)
			require.NoError(t, err)
			assert.Equal(t, tt.entity, decoded)
			assert.Equal(t, tt.entity.GUID(), decoded.GUID())
		})
	}
}

func TestDecode_Ошибки(t *testing.T) {
	_, err := Decode("unknown", []byte(`{}`))
	assert.Error(t, err)

	_, err = Decode(KindOrganization, []byte(`не json`))
	assert.Error(t, err)
}

func TestPresentation(t *testing.T) {
	assert.Equal(t, "Основной № 15", (&Contract{Name: "Основной", Number: "15"}).Presentation())
	assert.Equal(t, "Основной", (&Contract{Name: "Основной"}).Presentation())
	assert.Equal(t, "руб. (643)", (&Currency{Name: "руб.", Code: "643"}).Presentation())
	assert.Len(t, Kinds(), 4)
}
