package tracker

import (
	"github.com/grupoitc/tracker-mirror/cmd/tracker-to-postgresql/shared"
)

// Category is the classification of one mirrored project.
type Category int

const (
	CategoryOther Category = iota
	CategoryMaintenance
	CategoryOnSite
	CategoryExternalProject
	CategoryInternalProject
)

const (
	categoryMaintenanceLabel = "Mantenimiento"
	categoryOnSiteLabel      = "On-Site"
	categoryInternalLabel    = "Proyectos Internos"
	categoryLicensesLabel    = "Licencias"
)

// Classify buckets a project by its category attribute, matched
// case-sensitively against the fixed vocabulary. A missing or empty
// category is Other; any other non-empty category is an external project.
func Classify(p shared.ProjectMirror) Category {
	if p.Category == nil || *p.Category == "" {
		return CategoryOther
	}
	switch *p.Category {
	case categoryMaintenanceLabel:
		return CategoryMaintenance
	case categoryOnSiteLabel:
		return CategoryOnSite
	case categoryInternalLabel:
		return CategoryInternalProject
	}
	return CategoryExternalProject
}

// BelongsToPartition decides whether a classified project is written into
// a partition's mirror. License records never land anywhere; the check is
// repeated here as a filter rather than assumed from Classify alone.
func BelongsToPartition(p shared.ProjectMirror, partition shared.Partition) bool {
	if p.Category != nil && *p.Category == categoryLicensesLabel {
		return false
	}
	category := Classify(p)
	switch partition {
	case shared.PartitionMaintenance:
		// On-Site work shares the maintenance lifecycle.
		return category == CategoryMaintenance || category == CategoryOnSite
	case shared.PartitionExternalProject:
		return category != CategoryMaintenance && category != CategoryOther
	case shared.PartitionInternalProject:
		return category == CategoryInternalProject
	}
	return false
}
