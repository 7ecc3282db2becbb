package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Mirror run metrics
var (
	PlaylistsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_playlists_processed_total",
			Help: "Total number of playlist sources processed.",
		},
		[]string{"status"},
	)

	IconDownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_icon_downloads_total",
			Help: "Total number of icon downloads.",
		},
		[]string{"status"},
	)

	BatchesHarvestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mirror_batches_harvested_total",
			Help: "Total number of batch harvest waits, by outcome.",
		},
		[]string{"status"},
	)

	IconJobsQueued = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mirror_icon_jobs_queued",
			Help: "Number of icon jobs submitted to the current download run.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		PlaylistsProcessedTotal,
		IconDownloadsTotal,
		BatchesHarvestedTotal,
		IconJobsQueued,
	)
}
