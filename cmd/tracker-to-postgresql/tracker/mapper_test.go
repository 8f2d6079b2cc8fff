package tracker

import (
	"testing"

	"github.com/grupoitc/tracker-mirror/cmd/tracker-to-postgresql/helper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapProjectResolvesByIDAndLabel(t *testing.T) {
	helper.InitTestLogging()

	byID := MapProject(RawProject{
		ID:           1,
		Name:         "Soporte Abbaco",
		CustomFields: []CustomField{{ID: 19, Value: "Abbaco"}},
	})
	require.NotNil(t, byID.Product)
	assert.Equal(t, "Abbaco", *byID.Product)

	byLabel := MapProject(RawProject{
		ID:           1,
		Name:         "Soporte Abbaco",
		CustomFields: []CustomField{{ID: 999, Name: "Producto", Value: "Abbaco"}},
	})
	require.NotNil(t, byLabel.Product)
	assert.Equal(t, "Abbaco", *byLabel.Product)

	// The numeric id wins when both could match.
	both := MapProject(RawProject{
		ID: 1,
		CustomFields: []CustomField{
			{ID: 999, Name: "Producto", Value: "WrongOne"},
			{ID: 19, Name: "Algo Distinto", Value: "Abbaco"},
		},
	})
	require.NotNil(t, both.Product)
	assert.Equal(t, "Abbaco", *both.Product)
}

func TestMapProjectFields(t *testing.T) {
	helper.InitTestLogging()

	p := MapProject(RawProject{
		ID:         77,
		Name:       "Implantación Cliente Sur",
		Identifier: "imp-sur",
		Status:     1,
		Parent:     &RawReference{ID: 3, Name: "Servicios"},
		CreatedOn:  "2024-06-30T10:00:00Z",
		CustomFields: []CustomField{
			{ID: 20, Value: "Cliente Sur"},
			{ID: 22, Value: "Mantenimiento"},
			{ID: 24, Value: "120"},
			{ID: 25, Value: float64(1)},
		},
	})

	assert.Equal(t, int64(77), p.ID)
	require.NotNil(t, p.ParentName)
	assert.Equal(t, "Servicios", *p.ParentName)
	require.NotNil(t, p.Client)
	assert.Equal(t, "Cliente Sur", *p.Client)
	require.NotNil(t, p.Category)
	assert.Equal(t, "Mantenimiento", *p.Category)
	require.NotNil(t, p.HourCap)
	assert.Equal(t, 120.0, *p.HourCap)
	require.NotNil(t, p.Resale)
	assert.Equal(t, "Si", *p.Resale)
	require.NotNil(t, p.CreatedOn)
	assert.Nil(t, p.Product)
	assert.Nil(t, p.Team)
}

func TestNormalizeResale(t *testing.T) {
	helper.InitTestLogging()

	tcs := []struct {
		name     string
		input    any
		expected *string
	}{
		{"numeric one", float64(1), helper.StringToPtr("Si")},
		{"si", "Si", helper.StringToPtr("Si")},
		{"yes mixed case", "YES", helper.StringToPtr("Si")},
		{"numeric zero", float64(0), helper.StringToPtr("No")},
		{"no", "No", helper.StringToPtr("No")},
		{"pass-through", "tal vez", helper.StringToPtr("tal vez")},
		// Only the unaccented spellings are collapsed; anything else is
		// preserved verbatim so no data is silently rewritten.
		{"accented si passes through", "Sí", helper.StringToPtr("Sí")},
		{"absent", nil, nil},
		{"empty string", "", nil},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeResale(tc.input)
			if tc.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tc.expected, *got)
		})
	}
}

func TestMapWorkItem(t *testing.T) {
	helper.InitTestLogging()

	epic := MapWorkItem(RawWorkItem{
		ID:             42,
		Subject:        "Fase 1 - Análisis",
		Status:         RawReference{Name: "In Progress"},
		EstimatedHours: 80,
		SpentHours:     12.5,
		Project:        RawReference{ID: 100, Name: "Implantación"},
		CustomFields: []CustomField{
			{ID: 15, Value: "EXT-991"},
			{ID: 16, Value: "2025-01-10"},
			{ID: 17, Value: "2025-03-01"},
			{ID: 18, Value: "no es fecha"},
		},
	})

	assert.Equal(t, int64(100), epic.ProjectID)
	assert.Equal(t, int64(42), epic.WorkItemID)
	assert.Equal(t, "In Progress", epic.Status)
	assert.Equal(t, 80.0, epic.EstimatedHours)
	require.NotNil(t, epic.ExternalID)
	assert.Equal(t, "EXT-991", *epic.ExternalID)
	require.NotNil(t, epic.PlannedStart)
	assert.Equal(t, *helper.DateToPtr("2025-01-10"), *epic.PlannedStart)
	require.NotNil(t, epic.PlannedEnd)
	// An unparsable date is unknown, not an error.
	assert.Nil(t, epic.ActualEnd)
}
