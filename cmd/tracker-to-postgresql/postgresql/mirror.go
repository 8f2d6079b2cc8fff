package postgresql

import (
	"fmt"

	"github.com/grupoitc/tracker-mirror/cmd/tracker-to-postgresql/shared"
	"github.com/omeid/pgerror"
	"go.uber.org/zap"
)

// The mirror upsert decides insert-vs-update from the database's own
// conflict signal (xmax = 0 on the returned row) instead of a separate
// existence pre-check, so the counts stay correct under concurrent
// writers.
const upsertProjectTemplate = `
		INSERT INTO %s (id, name, identifier, parent_name, status, product, client, service_line, category, team, hour_cap, resale, sponsor_project, created_on, synced_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			identifier = EXCLUDED.identifier,
			parent_name = EXCLUDED.parent_name,
			status = EXCLUDED.status,
			product = EXCLUDED.product,
			client = EXCLUDED.client,
			service_line = EXCLUDED.service_line,
			category = EXCLUDED.category,
			team = EXCLUDED.team,
			hour_cap = EXCLUDED.hour_cap,
			resale = EXCLUDED.resale,
			sponsor_project = EXCLUDED.sponsor_project,
			created_on = EXCLUDED.created_on,
			synced_at = now()
		RETURNING (xmax = 0) AS inserted
	`

// UpsertProjects mirrors every record into the partition's mirror table,
// one independently-committed upsert per record. A failing record is
// recorded in the result and skipped; the loop never aborts. There is
// deliberately no surrounding transaction: a page-fetch failure later in
// the run must not throw away rows that already landed.
func (c *Connection) UpsertProjects(partition shared.Partition, records []shared.ProjectMirror) shared.BatchResult {
	var result shared.BatchResult
	query := fmt.Sprintf(upsertProjectTemplate, partition.MirrorTable())

	for i := range records {
		record := &records[i]
		if c.isDryRun {
			zap.S().Infof("DRY_RUN: would upsert project %d (%s) into %s", record.ID, record.Name, partition.MirrorTable())
			continue
		}

		ctx, cncl := get1MinuteContext()
		var inserted bool
		err := c.Db.QueryRow(ctx, query,
			record.ID, record.Name, record.Identifier, record.ParentName, record.Status,
			record.Product, record.Client, record.ServiceLine, record.Category, record.Team,
			record.HourCap, record.Resale, record.SponsorProject, record.CreatedOn,
		).Scan(&inserted)
		cncl()
		if err != nil {
			if e := pgerror.ConnectionException(err); e != nil {
				zap.S().Errorw("PostgreSQL connection failed while mirroring project",
					"error", err,
					"projectId", record.ID,
					"partition", partition)
			} else {
				zap.S().Warnw("Failed to mirror project",
					"error", err,
					"projectId", record.ID,
					"partition", partition)
			}
			result.Failed = append(result.Failed, shared.RecordFailure{ID: record.ID, Error: err.Error()})
			continue
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}
	return result
}

// EnsureEditableShadows creates one empty annotation row for every mirror
// row that does not have one yet. Insert-only by construction, which is
// what makes re-running it on every sync safe for existing user edits.
// Must run after UpsertProjects for the same partition so the joined
// *_complete views never miss a row.
func (c *Connection) EnsureEditableShadows(partition shared.Partition) (int64, error) {
	if c.isDryRun {
		zap.S().Infof("DRY_RUN: would initialize editable shadows for %s", partition)
		return 0, nil
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id)
		SELECT m.id FROM %s m
		WHERE NOT EXISTS (SELECT 1 FROM %s e WHERE e.id = m.id)
	`, partition.EditableTable(), partition.MirrorTable(), partition.EditableTable())

	ctx, cncl := get1MinuteContext()
	defer cncl()
	cmdTag, err := c.Db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to initialize editable shadows for %s: %w", partition, err)
	}
	return cmdTag.RowsAffected(), nil
}
