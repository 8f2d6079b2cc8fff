package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/grupoitc/tracker-mirror/cmd/tracker-to-postgresql/postgresql"
	"github.com/grupoitc/tracker-mirror/cmd/tracker-to-postgresql/shared"
	"github.com/grupoitc/tracker-mirror/cmd/tracker-to-postgresql/tracker"
	"go.uber.org/zap"
)

// Syncer is the engine's command surface: one call per sync run, awaited
// by the HTTP layer, no background scheduling.
type Syncer struct {
	db      *postgresql.Connection
	tracker *tracker.Client
}

func New(db *postgresql.Connection, trackerClient *tracker.Client) *Syncer {
	return &Syncer{
		db:      db,
		tracker: trackerClient,
	}
}

// PartitionOptions narrow one partition sync run.
type PartitionOptions struct {
	Product  *string
	Team     *string
	MaxTotal int
}

// SyncPartition runs one full mirror pass for a partition: fetch every
// project from the tracker, map and route them, upsert the survivors into
// the partition's mirror table and finally backfill missing editable
// shadows. The shadow pass runs strictly after the upserts so the joined
// views are complete once this returns.
func (s *Syncer) SyncPartition(ctx context.Context, partition shared.Partition, opts PartitionOptions) (shared.SyncReport, error) {
	start := time.Now()
	report := shared.SyncReport{Partition: partition}

	if partition == shared.PartitionInternalProject && opts.Product == nil {
		return report, errors.New("internal project sync requires a product filter")
	}

	query := tracker.ProjectQuery{Product: opts.Product, Team: opts.Team}
	rawProjects, err := s.tracker.FetchAllProjects(ctx, query, opts.MaxTotal)
	if err != nil {
		return report, err
	}
	report.Fetched = len(rawProjects)

	records := make([]shared.ProjectMirror, 0, len(rawProjects))
	for i := range rawProjects {
		record := tracker.MapProject(rawProjects[i])
		if tracker.BelongsToPartition(record, partition) {
			records = append(records, record)
		}
	}

	batch := s.db.UpsertProjects(partition, records)
	report.Inserted = batch.Inserted
	report.Updated = batch.Updated
	report.Total = batch.Total()
	report.Failed = batch.Failed

	shadows, err := s.db.EnsureEditableShadows(partition)
	if err != nil {
		return report, err
	}
	report.ShadowsCreated = shadows
	report.DurationMs = time.Since(start).Milliseconds()

	observePartitionSync(partition, batch)

	zap.S().Infow("Partition sync finished",
		"partition", partition,
		"fetched", report.Fetched,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"failed", len(report.Failed),
		"shadowsCreated", report.ShadowsCreated,
		"durationMs", report.DurationMs)
	return report, nil
}

// SyncProjectEpics mirrors one project's epics and pushes the rolled-up
// date window into the parent's editable row. The upserts are atomic per
// project; a failure leaves no partial epic state behind.
func (s *Syncer) SyncProjectEpics(ctx context.Context, projectID int64, projectCode string) (shared.EpicSyncReport, error) {
	report := shared.EpicSyncReport{ProjectID: projectID, ProjectCode: projectCode}

	rawItems, err := s.tracker.FetchAllWorkItems(ctx, projectID)
	if err != nil {
		return report, err
	}
	if len(rawItems) == 0 {
		zap.S().Debugf("Project %d (%s) has no epics, nothing to sync", projectID, projectCode)
		return report, nil
	}

	epics := make([]shared.EpicMirror, 0, len(rawItems))
	for i := range rawItems {
		epics = append(epics, tracker.MapWorkItem(rawItems[i]))
	}

	inserted, updated, err := s.db.UpsertEpics(projectID, epics)
	if err != nil {
		return report, err
	}
	report.Inserted = inserted
	report.Updated = updated
	report.Total = inserted + updated

	rollups, err := s.db.EpicRollupsFor(projectID)
	if err != nil {
		return report, err
	}
	report.Rollups = rollups

	if rollups.Count > 0 {
		if err := s.db.PushParentDates(projectID, rollups); err != nil {
			return report, err
		}
	}

	observeEpicSync(report)

	zap.S().Infow("Epic sync finished",
		"projectId", projectID,
		"projectCode", projectCode,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"epics", rollups.Count)
	return report, nil
}
