package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PgxIface is the subset of pgxpool.Pool the engine uses. Tests substitute
// a pgxmock pool through it.
type PgxIface interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Connection wraps the shared connection pool plus the engine's write
// paths. All sync writes go through here; the UI reads the joined
// *_complete views directly and never through this type.
type Connection struct {
	Db       PgxIface
	isDryRun bool
}

// Relations every deployment must provide before the service starts. The
// views are read-side only but their absence means a broken rollout, so
// they are verified together with the tables.
var requiredRelations = []string{
	"maintenance_projects",
	"maintenance_projects_editable",
	"external_projects",
	"external_projects_editable",
	"internal_projects",
	"internal_projects_editable",
	"project_epics",
	"maintenance_projects_complete",
	"external_projects_complete",
	"internal_projects_complete",
}

// Connect opens the pool and verifies the schema. DryRun makes every
// mirror write a log line instead of a statement.
func Connect(user string, password string, dbName string, host string, port int, sslMode string, dryRun bool) (*Connection, error) {
	zap.S().Infof("Connecting to %s@%s:%d/%s [%s]", user, host, port, dbName, sslMode)

	conString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbName, sslMode)

	establishCtx, establishCncl := get5SecondContext()
	defer establishCncl()
	db, err := pgxpool.New(establishCtx, conString)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection to postgres database: %w", err)
	}

	c := &Connection{
		Db:       db,
		isDryRun: dryRun,
	}
	if dryRun {
		zap.S().Infof("Running in DRY_RUN mode. Mirror writes will be logged, not executed")
	}

	if !c.IsAvailable() {
		return nil, errors.New("database is not available")
	}
	if err := c.verifySchema(); err != nil {
		return nil, err
	}
	return c, nil
}

// IsAvailable reports whether the database answers a ping.
func (c *Connection) IsAvailable() bool {
	if c.Db == nil {
		return false
	}
	ctx, cncl := get5SecondContext()
	defer cncl()
	if err := c.Db.Ping(ctx); err != nil {
		zap.S().Debugf("Failed to ping database: %s", err)
		return false
	}
	return true
}

// Shutdown closes the pool.
func (c *Connection) Shutdown() {
	c.Db.Close()
}

// HealthCheck exposes database reachability as a readiness check.
func (c *Connection) HealthCheck() healthcheck.Check {
	return func() error {
		if !c.IsAvailable() {
			return errors.New("database is not available")
		}
		return nil
	}
}

func (c *Connection) verifySchema() error {
	ctx, cncl := get5SecondContext()
	defer cncl()
	for _, relation := range requiredRelations {
		var name string
		query := `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1
			UNION SELECT table_name FROM information_schema.views WHERE table_schema = 'public' AND table_name = $1`
		row := c.Db.QueryRow(ctx, query, relation)
		if err := row.Scan(&name); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("relation %s does not exist in the database", relation)
			}
			return fmt.Errorf("failed to check for relation %s: %w", relation, err)
		}
	}
	return nil
}

// queryer lets the preload run against a transaction or the pool alike.
type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func rollback(ctx context.Context, tx pgx.Tx) {
	if errR := tx.Rollback(ctx); errR != nil {
		zap.S().Errorf("Error rolling back transaction: %v", errR)
	}
}

func get5SecondContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func get1MinuteContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 1*time.Minute)
}
