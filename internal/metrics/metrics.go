package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RunsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ispw_runs_created_total",
			Help: "Total number of generate runs queued",
		},
	)
	RunStatusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ispw_run_status_changes_total",
			Help: "Number of run status transitions",
		},
		[]string{"from", "to"},
	)
	GenerateRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ispw_generate_requests_total",
			Help: "Generate-await requests dispatched to CES, by host",
		},
		[]string{"host"},
	)
	GenerateDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ispw_generate_duration_seconds",
			Help:    "Histogram of generate-await round trip durations",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1s..512s
		},
	)
	Errors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ispw_errors_total",
			Help: "Errors encountered in components",
		},
		[]string{"component", "kind"},
	)
)

func init() {
	prometheus.MustRegister(
		RunsCreated,
		RunStatusChanges,
		GenerateRequests,
		GenerateDurationSeconds,
		Errors,
	)
}

// Handler exposes the prometheus registry as a plain net/http handler so the
// fiber app can mount it through its adaptor middleware.
func Handler() http.Handler {
	return promhttp.Handler()
}

func IncRunsCreated() {
	RunsCreated.Inc()
}

func IncRunStatusChange(from, to string) {
	RunStatusChanges.WithLabelValues(from, to).Inc()
}

func IncGenerateRequest(host string) {
	GenerateRequests.WithLabelValues(host).Inc()
}

func ObserveGenerateDuration(d time.Duration) {
	GenerateDurationSeconds.Observe(d.Seconds())
}

func IncError(component, kind string) {
	Errors.WithLabelValues(component, kind).Inc()
}
