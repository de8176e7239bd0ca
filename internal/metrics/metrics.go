package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Sweep metrics
	sweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recs_sweep_runs_total",
			Help: "Total number of recommendation sweeps by outcome",
		},
		[]string{"outcome"},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recs_sweep_duration_seconds",
			Help:    "Recommendation sweep duration in seconds",
			Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
		},
	)

	usersProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recs_users_processed_total",
			Help: "Users handled by the sweep, by result",
		},
		[]string{"result"},
	)

	// Pipeline metrics
	candidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recs_candidates_total",
			Help: "Candidates returned per similarity signal",
		},
		[]string{"signal"},
	)

	pipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recs_user_pipeline_duration_seconds",
			Help:    "Per-user recommendation pipeline duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	// Delivery metrics
	deliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recs_deliveries_total",
			Help: "Recommendation batch deliveries by result",
		},
		[]string{"result"},
	)

	// View tracking metrics
	viewsTrackedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recs_views_tracked_total",
			Help: "Tracked listing views by result",
		},
		[]string{"result"},
	)
)

// RecordSweep records a finished sweep.
func RecordSweep(outcome string, duration time.Duration) {
	sweepRunsTotal.WithLabelValues(outcome).Inc()
	sweepDuration.Observe(duration.Seconds())
}

// RecordUser records one user result: delivered, empty, skipped, duplicate or failed.
func RecordUser(result string) {
	usersProcessedTotal.WithLabelValues(result).Inc()
}

func RecordCandidates(signal string, n int) {
	candidatesTotal.WithLabelValues(signal).Add(float64(n))
}

func RecordPipeline(duration time.Duration) {
	pipelineDuration.Observe(duration.Seconds())
}

func RecordDelivery(result string) {
	deliveriesTotal.WithLabelValues(result).Inc()
}

// RecordView records a tracking outcome: recorded, duplicate or error.
func RecordView(result string) {
	viewsTrackedTotal.WithLabelValues(result).Inc()
}

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}
