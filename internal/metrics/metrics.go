package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "instaweb"

	formatLabel = "format"
	reasonLabel = "reason"
	statusLabel = "status"
)

// Rejection reasons for jobs_rejected_total.
const (
	ReasonUnauthorized = "unauthorized"
	ReasonInvalid      = "invalid"
	ReasonRateLimited  = "rate_limited"
	ReasonConcurrency  = "concurrency"
	ReasonQueueFull    = "queue_full"
)

// Registry holds the service collectors. Each Orchestrator owns one so tests
// can build several without clashing on the default registerer.
type Registry struct {
	reg *prometheus.Registry

	jobsSubmitted  *prometheus.CounterVec
	jobsRejected   *prometheus.CounterVec
	jobsFinished   *prometheus.CounterVec
	jobsActive     prometheus.Gauge
	janitorRemoved prometheus.Counter

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// New creates a Registry with every collector registered.
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		jobsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_submitted_total",
			Help:      "number of accepted download jobs",
		}, []string{formatLabel}),
		jobsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_rejected_total",
			Help:      "number of submissions rejected before a job was created",
		}, []string{reasonLabel}),
		jobsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "number of jobs that reached a terminal state",
		}, []string{statusLabel}),
		jobsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "jobs_running",
			Help:      "number of jobs currently held by a worker",
		}),
		janitorRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "janitor_removed_entries_total",
			Help:      "number of expired entries removed from the download root",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Number of HTTP requests partitioned by status code, method and HTTP path.",
		}, []string{"code", "method", "path"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_milliseconds",
			Help:      "Time spent on the request partitioned by status code, method and HTTP path.",
			Buckets:   []float64{50, 300, 1000, 5000, 30000},
		}, []string{"code", "method", "path"}),
	}

	r.reg.MustRegister(
		r.jobsSubmitted,
		r.jobsRejected,
		r.jobsFinished,
		r.jobsActive,
		r.janitorRemoved,
		r.requests,
		r.latency,
	)
	return r
}

// Gatherer exposes the registry to promhttp.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

func (r *Registry) JobSubmitted(format string) {
	r.jobsSubmitted.With(prometheus.Labels{formatLabel: format}).Inc()
}

func (r *Registry) JobRejected(reason string) {
	r.jobsRejected.With(prometheus.Labels{reasonLabel: reason}).Inc()
}

func (r *Registry) JobStarted() {
	r.jobsActive.Inc()
}

func (r *Registry) JobFinished(status string) {
	r.jobsActive.Dec()
	r.jobsFinished.With(prometheus.Labels{statusLabel: status}).Inc()
}

func (r *Registry) JanitorRemoved(n int) {
	r.janitorRemoved.Add(float64(n))
}

// Handler records request count and latency by chi route pattern.
func (r *Registry) Handler(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)

		next.ServeHTTP(ww, req)

		if rctx := chi.RouteContext(req.Context()); rctx != nil {
			rp := rctx.RoutePattern()
			since := float64(time.Since(start).Milliseconds())
			r.requests.WithLabelValues(strconv.Itoa(ww.Status()), req.Method, rp).Inc()
			r.latency.WithLabelValues(strconv.Itoa(ww.Status()), req.Method, rp).Observe(since)
		}
	}
	return http.HandlerFunc(fn)
}
