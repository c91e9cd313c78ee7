package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	OperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warnboard_operation_seconds",
		Help:    "Time spent serving a dashboard operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	OperationErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warnboard_operation_errors_total",
		Help: "Total number of failed dashboard operations by error code.",
	}, []string{"operation", "code"})

	InconsistentResultsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warnboard_inconsistent_results_total",
		Help: "Total number of results whose declared counts disagree with their issue lists.",
	})

	ImportedBuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warnboard_imported_builds_total",
		Help: "Total number of builds written by imports.",
	})

	ImportedJobsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warnboard_imported_jobs_total",
		Help: "Total number of jobs written by imports.",
	})

	StoredJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warnboard_stored_jobs",
		Help: "Number of jobs in the history store at the last listing.",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warnboard_http_requests_total",
		Help: "Total number of HTTP requests by route and status code.",
	}, []string{"route", "status"})

	HTTPRateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warnboard_http_rate_limited_total",
		Help: "Total number of HTTP requests rejected by the rate limiter.",
	})

	InboxEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warnboard_inbox_events_total",
		Help: "Total number of file system events seen in inbox directories.",
	})

	InboxDroppedBatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warnboard_inbox_dropped_batches_total",
		Help: "Total number of inbox batches dropped because the import queue was full.",
	})

	InboxImportFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warnboard_inbox_import_failures_total",
		Help: "Total number of inbox files that failed to decode plus batches that failed to import.",
	})

	ConfigReloadsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warnboard_config_reloads_total",
		Help: "Total number of configuration reloads triggered by the file watcher.",
	})
)
