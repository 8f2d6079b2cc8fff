package main

import (
	"net/http"
	"strconv"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/grupoitc/tracker-mirror/cmd/tracker-to-postgresql/shared"
	"github.com/grupoitc/tracker-mirror/cmd/tracker-to-postgresql/syncer"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type syncResponse struct {
	Success bool   `json:"success"`
	Report  any    `json:"report,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SetupRestAPI initializes the REST command surface and starts listening.
// The engine runs synchronously inside the request: the response carries
// the finished SyncReport or the failure message. defaultMaxTotal caps
// every run that does not pass its own maxTotal (0 disables the cap).
func SetupRestAPI(engine *syncer.Syncer, accounts gin.Accounts, defaultMaxTotal int) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Combined access/error log through zap, panics recovered with stack.
	router.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(zap.L(), true))

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "online")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1", gin.BasicAuth(accounts))
	{
		v1.POST("/sync/:partition", syncPartitionHandler(engine, defaultMaxTotal))
		v1.POST("/projects/:projectId/epics/sync", syncEpicsHandler(engine))
	}

	err := router.Run(":80")
	if err != nil {
		zap.S().Fatalf("Failed to start REST API: %s", err)
	}
}

func syncPartitionHandler(engine *syncer.Syncer, defaultMaxTotal int) gin.HandlerFunc {
	return func(c *gin.Context) {
		partition, err := shared.ParsePartition(c.Param("partition"))
		if err != nil {
			c.JSON(http.StatusBadRequest, syncResponse{Success: false, Error: err.Error()})
			return
		}

		opts := syncer.PartitionOptions{MaxTotal: defaultMaxTotal}
		if product := c.Query("product"); product != "" {
			opts.Product = &product
		}
		if team := c.Query("team"); team != "" {
			opts.Team = &team
		}
		if maxTotal := c.Query("maxTotal"); maxTotal != "" {
			opts.MaxTotal, err = strconv.Atoi(maxTotal)
			if err != nil {
				c.JSON(http.StatusBadRequest, syncResponse{Success: false, Error: "maxTotal is not a number"})
				return
			}
		}

		report, err := engine.SyncPartition(c.Request.Context(), partition, opts)
		if err != nil {
			// Mirror rows already upserted before the failure stay
			// committed; re-running the sync is cheap and idempotent.
			zap.S().Errorw("Partition sync failed", "partition", partition, "error", err)
			c.JSON(http.StatusInternalServerError, syncResponse{Success: false, Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, syncResponse{Success: true, Report: report})
	}
}

func syncEpicsHandler(engine *syncer.Syncer) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID, err := strconv.ParseInt(c.Param("projectId"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, syncResponse{Success: false, Error: "projectId is not a number"})
			return
		}
		projectCode := c.Query("code")

		report, err := engine.SyncProjectEpics(c.Request.Context(), projectID, projectCode)
		if err != nil {
			zap.S().Errorw("Epic sync failed", "projectId", projectID, "error", err)
			c.JSON(http.StatusInternalServerError, syncResponse{Success: false, Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, syncResponse{Success: true, Report: report})
	}
}
