package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chitra"

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms to ~40s, generations are slow
		},
		[]string{"method", "route"},
	)

	ledgerAdjustments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "adjustments_total",
			Help:      "Ledger adjustments by reason and outcome.",
		},
		[]string{"reason", "outcome"},
	)

	ledgerCredits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "credits_total",
			Help:      "Absolute credits moved through the ledger by reason.",
		},
		[]string{"reason"},
	)

	verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "iap",
			Name:      "verifications_total",
			Help:      "Receipt verifications by platform and outcome.",
		},
		[]string{"platform", "outcome"},
	)

	purchases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "iap",
			Name:      "purchases_total",
			Help:      "Purchase reconciliation results.",
		},
		[]string{"platform", "result"},
	)

	generations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Generation requests by kind and status.",
		},
		[]string{"kind", "status"},
	)

	generationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Duration of upstream generation calls.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"kind"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "job_runs_total",
			Help:      "Scheduled job executions.",
		},
		[]string{"job", "success"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests,
		httpDuration,
		ledgerAdjustments,
		ledgerCredits,
		verifications,
		purchases,
		generations,
		generationDuration,
		jobRuns,
	)
}

// Handler exposes the registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler records request counts and latencies keyed by the chi
// route pattern so path parameters do not explode label cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RecordLedgerAdjustment counts one ledger adjustment attempt.
func RecordLedgerAdjustment(reason string, amount int, err error) {
	outcome := "applied"
	if err != nil {
		outcome = "rejected"
	}
	ledgerAdjustments.WithLabelValues(reason, outcome).Inc()
	if err == nil {
		if amount < 0 {
			amount = -amount
		}
		ledgerCredits.WithLabelValues(reason).Add(float64(amount))
	}
}

// RecordVerification counts one receipt verification.
func RecordVerification(platform, outcome string) {
	verifications.WithLabelValues(platform, outcome).Inc()
}

// RecordPurchase counts one reconciliation result (granted, duplicate, invalid, ...).
func RecordPurchase(platform, result string) {
	purchases.WithLabelValues(platform, result).Inc()
}

// RecordGeneration counts one generation and its upstream latency.
func RecordGeneration(kind, status string, elapsed time.Duration) {
	generations.WithLabelValues(kind, status).Inc()
	generationDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// RecordJobRun counts one scheduled job execution.
func RecordJobRun(job string, err error) {
	jobRuns.WithLabelValues(job, strconv.FormatBool(err == nil)).Inc()
}
