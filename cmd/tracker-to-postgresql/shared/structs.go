package shared

import (
	"fmt"
	"time"
)

// Partition is one of the three independently-lifecycled local datasets the
// flat tracker project list is routed into.
type Partition string

const (
	PartitionMaintenance     Partition = "maintenance"
	PartitionExternalProject Partition = "external"
	PartitionInternalProject Partition = "internal"
)

// ParsePartition validates a partition name coming from the HTTP surface.
func ParsePartition(s string) (Partition, error) {
	switch Partition(s) {
	case PartitionMaintenance, PartitionExternalProject, PartitionInternalProject:
		return Partition(s), nil
	}
	return "", fmt.Errorf("unknown partition: %q", s)
}

// MirrorTable returns the mirror table a partition syncs into.
func (p Partition) MirrorTable() string {
	switch p {
	case PartitionMaintenance:
		return "maintenance_projects"
	case PartitionExternalProject:
		return "external_projects"
	case PartitionInternalProject:
		return "internal_projects"
	}
	return ""
}

// EditableTable returns the annotation table paired with the partition's
// mirror table.
func (p Partition) EditableTable() string {
	return p.MirrorTable() + "_editable"
}

// ProjectMirror is the canonical internal shape of one tracker project.
// Every field is replaced on every sync; user annotations live in the
// editable tables, never here.
type ProjectMirror struct {
	ID             int64
	Name           string
	Identifier     string
	ParentName     *string
	Status         int
	Product        *string
	Client         *string
	ServiceLine    *string
	Category       *string
	Team           *string
	HourCap        *float64
	Resale         *string
	SponsorProject *string
	CreatedOn      *time.Time
}

// EpicMirror is the canonical shape of one child work-item of a project.
type EpicMirror struct {
	ProjectID      int64
	WorkItemID     int64
	Subject        string
	Status         string
	EstimatedHours float64
	SpentHours     float64
	ExternalID     *string
	PlannedStart   *time.Time
	PlannedEnd     *time.Time
	ActualEnd      *time.Time
}

// RecordFailure captures one record that could not be persisted during a
// partial-success batch.
type RecordFailure struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

// BatchResult is the outcome of one mirror upsert pass. Failed records are
// recorded, not re-raised; the loop keeps going.
type BatchResult struct {
	Inserted int             `json:"inserted"`
	Updated  int             `json:"updated"`
	Failed   []RecordFailure `json:"failed,omitempty"`
}

// Total counts every record the batch attempted.
func (b BatchResult) Total() int {
	return b.Inserted + b.Updated + len(b.Failed)
}

// SyncReport is returned by a partition sync run. It is transient; the
// caller serializes it back to the UI.
type SyncReport struct {
	Partition      Partition       `json:"partition"`
	Fetched        int             `json:"fetched"`
	Inserted       int             `json:"inserted"`
	Updated        int             `json:"updated"`
	Total          int             `json:"total"`
	Failed         []RecordFailure `json:"failed,omitempty"`
	ShadowsCreated int64           `json:"shadowsCreated"`
	DurationMs     int64           `json:"durationMs"`
}

// EpicRollups are the aggregates computed over one project's mirrored
// work-items, pushed by the caller into the parent's editable date fields.
type EpicRollups struct {
	Count          int64      `json:"count"`
	EstimatedHours float64    `json:"estimatedHours"`
	SpentHours     float64    `json:"spentHours"`
	MinStart       *time.Time `json:"minStart,omitempty"`
	MaxEnd         *time.Time `json:"maxEnd,omitempty"`
}

// EpicSyncReport is returned by an epic batch sync for one project.
type EpicSyncReport struct {
	ProjectID   int64       `json:"projectId"`
	ProjectCode string      `json:"projectCode"`
	Inserted    int         `json:"inserted"`
	Updated     int         `json:"updated"`
	Total       int         `json:"total"`
	Rollups     EpicRollups `json:"rollups"`
}
