package tracker

import (
	"strings"

	"github.com/grupoitc/tracker-mirror/cmd/tracker-to-postgresql/shared"
)

// MapProject converts one raw tracker project into its canonical mirror
// shape. Pure function: no I/O, same input yields the same output.
func MapProject(raw RawProject) shared.ProjectMirror {
	p := shared.ProjectMirror{
		ID:             raw.ID,
		Name:           raw.Name,
		Identifier:     raw.Identifier,
		Status:         raw.Status,
		Product:        ResolveString(raw.CustomFields, FieldProduct),
		Client:         ResolveString(raw.CustomFields, FieldClient),
		ServiceLine:    ResolveString(raw.CustomFields, FieldServiceLine),
		Category:       ResolveString(raw.CustomFields, FieldCategory),
		Team:           ResolveString(raw.CustomFields, FieldTeam),
		HourCap:        ResolveFloat(raw.CustomFields, FieldHourCap),
		Resale:         NormalizeResale(Resolve(raw.CustomFields, FieldResale)),
		SponsorProject: ResolveString(raw.CustomFields, FieldSponsorProject),
		CreatedOn:      ParseDate(raw.CreatedOn),
	}
	if raw.Parent != nil && raw.Parent.Name != "" {
		name := raw.Parent.Name
		p.ParentName = &name
	}
	return p
}

// MapWorkItem converts one raw tracker issue into its canonical epic
// shape. Pure function.
func MapWorkItem(raw RawWorkItem) shared.EpicMirror {
	return shared.EpicMirror{
		ProjectID:      raw.Project.ID,
		WorkItemID:     raw.ID,
		Subject:        raw.Subject,
		Status:         raw.Status.Name,
		EstimatedHours: raw.EstimatedHours,
		SpentHours:     raw.SpentHours,
		ExternalID:     ResolveString(raw.CustomFields, FieldExternalID),
		PlannedStart:   ResolveDate(raw.CustomFields, FieldPlannedStart),
		PlannedEnd:     ResolveDate(raw.CustomFields, FieldPlannedEnd),
		ActualEnd:      ResolveDate(raw.CustomFields, FieldActualEnd),
	}
}

// NormalizeResale collapses the tracker's loosely-typed boolean-ish resale
// flag: 1/"si"/"yes" become "Si", 0/"no" become "No", anything else passes
// through trimmed, absence stays nil.
func NormalizeResale(v any) *string {
	if v == nil {
		return nil
	}
	s := valueToString(v)
	if s == "" {
		return nil
	}
	normalized := s
	switch strings.ToLower(s) {
	case "1", "si", "yes":
		normalized = "Si"
	case "0", "no":
		normalized = "No"
	}
	return &normalized
}
