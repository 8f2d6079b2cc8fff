package tracker

import (
	"strconv"
	"strings"
	"time"
)

// Field is the closed set of semantic custom attributes the engine reads
// off tracker records.
type Field int

const (
	FieldExternalID Field = iota
	FieldPlannedStart
	FieldPlannedEnd
	FieldActualEnd
	FieldProduct
	FieldClient
	FieldServiceLine
	FieldCategory
	FieldTeam
	FieldHourCap
	FieldResale
	FieldSponsorProject
)

type fieldKey struct {
	id    int64
	label string
}

// fieldKeys pins every semantic field to both its numeric id and its
// human-readable label on the tracker. Lookups try the id first and fall
// back to the label, so the mapping survives tracker instances where the
// ids drifted but the labels did not.
var fieldKeys = map[Field]fieldKey{
	FieldExternalID:     {15, "ID Externo"},
	FieldPlannedStart:   {16, "Fecha Inicio Planificada"},
	FieldPlannedEnd:     {17, "Fecha Fin Planificada"},
	FieldActualEnd:      {18, "Fecha Fin Real"},
	FieldProduct:        {19, "Producto"},
	FieldClient:         {20, "Cliente"},
	FieldServiceLine:    {21, "Es Servicio"},
	FieldCategory:       {22, "Categoría"},
	FieldTeam:           {23, "Equipo"},
	FieldHourCap:        {24, "Tope de Horas"},
	FieldResale:         {25, "Reventa"},
	FieldSponsorProject: {26, "Proyecto Patrocinador"},
}

// Resolve returns the raw value of a semantic field, trying the numeric id
// first, then the label. nil means the attribute is absent.
func Resolve(fields []CustomField, f Field) any {
	key, ok := fieldKeys[f]
	if !ok {
		return nil
	}
	for i := range fields {
		if fields[i].ID == key.id {
			return fields[i].Value
		}
	}
	for i := range fields {
		if fields[i].Name == key.label {
			return fields[i].Value
		}
	}
	return nil
}

// ResolveString resolves a field as a trimmed string pointer. Empty and
// absent values both collapse to nil.
func ResolveString(fields []CustomField, f Field) *string {
	s := valueToString(Resolve(fields, f))
	if s == "" {
		return nil
	}
	return &s
}

// ResolveFloat resolves a field as a float pointer. Unparsable values
// collapse to nil.
func ResolveFloat(fields []CustomField, f Field) *float64 {
	switch v := Resolve(fields, f).(type) {
	case float64:
		return &v
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		return &parsed
	}
	return nil
}

// ResolveDate resolves a field as a calendar date. An unparsable date is
// nil, never an error; downstream treats nil as "unknown".
func ResolveDate(fields []CustomField, f Field) *time.Time {
	s := valueToString(Resolve(fields, f))
	if s == "" {
		return nil
	}
	return ParseDate(s)
}

// ParseDate accepts the tracker's date formats (plain date or RFC 3339
// timestamp) and returns nil for anything else.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	return nil
}

func valueToString(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		if value {
			return "1"
		}
		return "0"
	}
	return ""
}
