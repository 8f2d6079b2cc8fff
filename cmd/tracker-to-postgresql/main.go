package main

/*
Target architecture:

Incoming REST call --> http.go
One handler per command. It parses the parameters and hands off to the
sync engine (syncer package), which pulls from the tracker (tracker
package) and writes through the database layer (postgresql package).
The handler returns the finished report as JSON.
*/

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/grupoitc/tracker-mirror/cmd/tracker-to-postgresql/postgresql"
	"github.com/grupoitc/tracker-mirror/cmd/tracker-to-postgresql/syncer"
	"github.com/grupoitc/tracker-mirror/cmd/tracker-to-postgresql/tracker"
	"github.com/grupoitc/tracker-mirror/internal"
	"github.com/heptiolabs/healthcheck"
	"github.com/united-manufacturing-hub/umh-utils/env"
	"go.elastic.co/ecszap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var buildtime string

func main() {
	var logLevel = os.Getenv("LOGGING_LEVEL")
	encoderConfig := ecszap.NewDefaultEncoderConfig()
	var core zapcore.Core
	switch logLevel {
	case "DEVELOPMENT":
		core = ecszap.NewCore(encoderConfig, os.Stdout, zap.DebugLevel)
	default:
		core = ecszap.NewCore(encoderConfig, os.Stdout, zap.InfoLevel)
	}
	logger := zap.New(core, zap.AddCaller())
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	zap.S().Infof("This is tracker-to-postgresql build date: %s", buildtime)

	// Tracker configuration. Both values are required: the client refuses
	// to start without credentials rather than failing on the first sync.
	trackerBaseURL, err := env.GetAsString("TRACKER_BASE_URL", true, "")
	if err != nil {
		zap.S().Fatalf("Failed to get TRACKER_BASE_URL from env: %s", err)
	}
	trackerAPIKey, err := env.GetAsString("TRACKER_API_KEY", true, "")
	if err != nil {
		zap.S().Fatalf("Failed to get TRACKER_API_KEY from env: %s", err)
	}
	pageSize, err := env.GetAsInt("TRACKER_PAGE_SIZE", false, 100)
	if err != nil {
		zap.S().Fatalf("Failed to get TRACKER_PAGE_SIZE from env: %s", err)
	}
	pageDelayMs, err := env.GetAsInt("TRACKER_PAGE_DELAY_MS", false, 200)
	if err != nil {
		zap.S().Fatalf("Failed to get TRACKER_PAGE_DELAY_MS from env: %s", err)
	}
	// Bounded test-mode runs; 0 disables the cap.
	defaultMaxTotal, err := env.GetAsInt("SYNC_MAX_TOTAL", false, 0)
	if err != nil {
		zap.S().Fatalf("Failed to get SYNC_MAX_TOTAL from env: %s", err)
	}

	trackerClient, err := tracker.NewClient(tracker.Config{
		BaseURL:   trackerBaseURL,
		APIKey:    trackerAPIKey,
		PageSize:  pageSize,
		PageDelay: time.Duration(pageDelayMs) * time.Millisecond,
	})
	if err != nil {
		zap.S().Fatalf("Failed to configure tracker client: %s", err)
	}

	// Postgres
	PQHost, err := env.GetAsString("POSTGRES_HOST", false, "db")
	if err != nil {
		zap.S().Fatalf("Failed to get POSTGRES_HOST from env: %s", err)
	}
	PQPort, err := env.GetAsInt("POSTGRES_PORT", false, 5432)
	if err != nil {
		zap.S().Fatalf("Failed to get POSTGRES_PORT from env: %s", err)
	}
	PQUser, err := env.GetAsString("POSTGRES_USER", true, "")
	if err != nil {
		zap.S().Fatalf("Failed to get POSTGRES_USER from env: %s", err)
	}
	PQPassword, err := env.GetAsString("POSTGRES_PASSWORD", true, "")
	if err != nil {
		zap.S().Fatalf("Failed to get POSTGRES_PASSWORD from env: %s", err)
	}
	PQDBName, err := env.GetAsString("POSTGRES_DATABASE", true, "")
	if err != nil {
		zap.S().Fatalf("Failed to get POSTGRES_DATABASE from env: %s", err)
	}
	PQSSLMode, err := env.GetAsString("POSTGRES_SSL_MODE", false, "require")
	if err != nil {
		zap.S().Fatalf("Failed to get POSTGRES_SSL_MODE from env: %s", err)
	}
	dryRun, err := env.GetAsBool("DRY_RUN", false, false)
	if err != nil {
		zap.S().Fatalf("Failed to get DRY_RUN from env: %s", err)
	}

	db, err := postgresql.Connect(PQUser, PQPassword, PQDBName, PQHost, PQPort, PQSSLMode, dryRun)
	if err != nil {
		zap.S().Fatalf("Failed to connect to postgres: %s", err)
	}

	engine := syncer.New(db, trackerClient)

	initHealthCheck(db)

	// Accounts allowed to trigger syncs through the REST surface.
	accounts := gin.Accounts{}
	for i := 1; i <= 100; i++ {
		tempUser := os.Getenv("ACCOUNT_NAME_" + strconv.Itoa(i))
		tempPassword := os.Getenv("ACCOUNT_PASSWORD_" + strconv.Itoa(i))
		if tempUser != "" && tempPassword != "" {
			zap.S().Infof("Added account for %s", tempUser)
			accounts[tempUser] = tempPassword
		}
	}
	restUser, err := env.GetAsString("SERVICE_USER", true, "")
	if err != nil {
		zap.S().Fatalf("Failed to get SERVICE_USER from env: %s", err)
	}
	restPassword, err := env.GetAsString("SERVICE_PASSWORD", true, "")
	if err != nil {
		zap.S().Fatalf("Failed to get SERVICE_PASSWORD from env: %s", err)
	}
	accounts[restUser] = restPassword

	gs := internal.NewGracefulShutdown(func() error {
		db.Shutdown()
		return nil
	})

	go SetupRestAPI(engine, accounts, defaultMaxTotal)

	gs.Wait()
}

func initHealthCheck(db *postgresql.Connection) {
	zap.S().Debugf("Setting up healthcheck")

	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(1000))
	health.AddReadinessCheck("database", db.HealthCheck())
	go func() {
		/* #nosec G114 */
		err := http.ListenAndServe("0.0.0.0:8086", health)
		if err != nil {
			zap.S().Errorf("Error starting healthcheck: %s", err)
		}
	}()
}
