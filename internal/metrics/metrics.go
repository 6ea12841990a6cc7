package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FeedBuilds = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedrank_builds_total",
		Help: "Total feed builds by feed type",
	}, []string{"feed"})
	FeedBuildErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedrank_build_errors_total",
		Help: "Total failed feed builds by feed type",
	}, []string{"feed"})
	FeedBuildDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feedrank_build_duration_seconds",
		Help:    "Feed build duration seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"feed"})
	CacheHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedrank_cache_hits_total",
		Help: "Feed cache hits by feed type",
	}, []string{"feed"})
	CacheMisses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedrank_cache_misses_total",
		Help: "Feed cache misses by feed type",
	}, []string{"feed"})
	CandidatePoolSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feedrank_candidate_pool_size",
		Help:    "Candidate pool size after dedup, by feed type",
		Buckets: []float64{0, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"feed"})
	CommandRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedrank_command_runs_total",
		Help: "Total CLI command runs",
	}, []string{"command"})
	CommandErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "feedrank_command_errors_total",
		Help: "Total CLI command errors",
	}, []string{"command"})
)

func init() {
	prometheus.MustRegister(FeedBuilds, FeedBuildErrors, FeedBuildDuration,
		CacheHits, CacheMisses, CandidatePoolSize, CommandRuns, CommandErrors)
}

// StartServer starts a metrics HTTP server on addr (e.g., ":9090").
func StartServer(addr string) {
	if addr == "" {
		addr = os.Getenv("METRICS_ADDR")
	}
	if addr == "" {
		return
	}
	http.Handle("/metrics", promhttp.Handler())
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	go func() { _ = http.ListenAndServe(addr, nil) }()
}

// ObserveBuildDuration records one feed build duration.
func ObserveBuildDuration(feed string, start time.Time) {
	FeedBuildDuration.WithLabelValues(feed).Observe(time.Since(start).Seconds())
}

// IncCommandRun increments the run counter for a CLI command.
func IncCommandRun(cmd string) { CommandRuns.WithLabelValues(cmd).Inc() }

// IncCommandError increments the error counter for a CLI command.
func IncCommandError(cmd string) { CommandErrors.WithLabelValues(cmd).Inc() }
