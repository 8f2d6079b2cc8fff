package postgresql

import (
	"context"
	"fmt"

	"github.com/grupoitc/tracker-mirror/cmd/tracker-to-postgresql/shared"
	"go.uber.org/zap"
)

const upsertEpicQuery = `
		INSERT INTO project_epics (project_id, work_item_id, subject, status, estimated_hours, spent_hours, external_id, planned_start, planned_end, actual_end, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		ON CONFLICT (project_id, work_item_id) DO UPDATE SET
			subject = EXCLUDED.subject,
			status = EXCLUDED.status,
			estimated_hours = EXCLUDED.estimated_hours,
			spent_hours = EXCLUDED.spent_hours,
			external_id = EXCLUDED.external_id,
			planned_start = EXCLUDED.planned_start,
			planned_end = EXCLUDED.planned_end,
			actual_end = EXCLUDED.actual_end,
			synced_at = now()
	`

// UpsertEpics writes one project's work-items inside a single transaction:
// either every epic of this run becomes visible or none does. Unlike the
// project mirror there is no partial success here; readers must never see
// a half-synced epic set. Insert-vs-update is decided against the id set
// preloaded in one query before the upserts.
func (c *Connection) UpsertEpics(projectID int64, epics []shared.EpicMirror) (inserted int, updated int, err error) {
	if len(epics) == 0 {
		return 0, 0, nil
	}

	ctx, cncl := get1MinuteContext()
	defer cncl()
	tx, err := c.Db.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}

	existing, err := c.loadExistingEpicIDs(ctx, tx, projectID, epics)
	if err != nil {
		rollback(ctx, tx)
		return 0, 0, err
	}

	for i := range epics {
		epic := &epics[i]
		_, err = tx.Exec(ctx, upsertEpicQuery,
			projectID, epic.WorkItemID, epic.Subject, epic.Status,
			epic.EstimatedHours, epic.SpentHours, epic.ExternalID,
			epic.PlannedStart, epic.PlannedEnd, epic.ActualEnd)
		if err != nil {
			zap.S().Warnf("Error upserting epic: %v (projectId: %d, workItemId: %d)", err, projectID, epic.WorkItemID)
			rollback(ctx, tx)
			return 0, 0, err
		}
		if _, ok := existing[epic.WorkItemID]; ok {
			updated++
		} else {
			inserted++
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, 0, err
	}
	return inserted, updated, nil
}

// loadExistingEpicIDs fetches which of the incoming work-items are already
// mirrored, in one round-trip instead of one query per item.
func (c *Connection) loadExistingEpicIDs(ctx context.Context, tx queryer, projectID int64, epics []shared.EpicMirror) (map[int64]struct{}, error) {
	ids := make([]int64, 0, len(epics))
	for i := range epics {
		ids = append(ids, epics[i].WorkItemID)
	}

	rows, err := tx.Query(ctx, `SELECT work_item_id FROM project_epics WHERE project_id = $1 AND work_item_id = ANY($2)`, projectID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to preload mirrored epic ids: %w", err)
	}
	defer rows.Close()

	existing := make(map[int64]struct{}, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing[id] = struct{}{}
	}
	return existing, rows.Err()
}

// EpicRollupsFor computes the aggregates over every mirrored work-item of
// a project with a single query.
func (c *Connection) EpicRollupsFor(projectID int64) (shared.EpicRollups, error) {
	ctx, cncl := get1MinuteContext()
	defer cncl()

	var rollups shared.EpicRollups
	err := c.Db.QueryRow(ctx, `
		SELECT COUNT(*), COALESCE(SUM(estimated_hours), 0), COALESCE(SUM(spent_hours), 0), MIN(planned_start), MAX(planned_end)
		FROM project_epics WHERE project_id = $1
	`, projectID).Scan(&rollups.Count, &rollups.EstimatedHours, &rollups.SpentHours, &rollups.MinStart, &rollups.MaxEnd)
	if err != nil {
		return shared.EpicRollups{}, fmt.Errorf("failed to compute epic rollups for project %d: %w", projectID, err)
	}
	return rollups, nil
}

// PushParentDates writes the rolled-up date window into the parent
// project's editable row. This is the only place a sync run touches an
// editable table, and it writes the two date overrides only — status,
// risk, progress and the free-text annotations are never modified.
func (c *Connection) PushParentDates(projectID int64, rollups shared.EpicRollups) error {
	ctx, cncl := get1MinuteContext()
	defer cncl()
	_, err := c.Db.Exec(ctx, `
		UPDATE external_projects_editable
		SET start_date_override = $2, end_date_override = $3, updated_at = now()
		WHERE id = $1
	`, projectID, rollups.MinStart, rollups.MaxEnd)
	if err != nil {
		return fmt.Errorf("failed to push epic rollup dates to project %d: %w", projectID, err)
	}
	return nil
}
