package syncer

import (
	"github.com/grupoitc/tracker-mirror/cmd/tracker-to-postgresql/shared"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mirroredRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_mirror_records_total",
		Help: "Mirror records written per partition, by outcome",
	}, []string{"partition", "outcome"})

	epicRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_mirror_epics_total",
		Help: "Epic records written, by outcome",
	}, []string{"outcome"})

	syncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_mirror_sync_runs_total",
		Help: "Completed partition sync runs",
	}, []string{"partition"})
)

func observePartitionSync(partition shared.Partition, batch shared.BatchResult) {
	p := string(partition)
	mirroredRecords.WithLabelValues(p, "inserted").Add(float64(batch.Inserted))
	mirroredRecords.WithLabelValues(p, "updated").Add(float64(batch.Updated))
	mirroredRecords.WithLabelValues(p, "failed").Add(float64(len(batch.Failed)))
	syncRuns.WithLabelValues(p).Inc()
}

func observeEpicSync(report shared.EpicSyncReport) {
	epicRecords.WithLabelValues("inserted").Add(float64(report.Inserted))
	epicRecords.WithLabelValues("updated").Add(float64(report.Updated))
}
