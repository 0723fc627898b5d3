package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/hoaledger/internal/usecase"
)

var _ usecase.Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Reconstruction metrics
	ReconstructionDuration *prometheus.HistogramVec
	SnapshotCache          *prometheus.CounterVec

	// Compliance metrics
	Variances              *prometheus.CounterVec
	ImmutabilityViolations prometheus.Counter
	InvariantFailures      *prometheus.CounterVec
	AuditEntriesCreated    *prometheus.CounterVec
	OutboxEventsPublished  *prometheus.CounterVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter
}

// New creates all metrics and registers them with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ReconstructionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hoaledger_reconstruction_duration_seconds",
				Help:    "Duration of point-in-time reconstructions",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		SnapshotCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hoaledger_snapshot_cache_total",
				Help: "Snapshot cache lookups by result",
			},
			[]string{"kind", "result"},
		),

		Variances: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hoaledger_variances_total",
				Help: "Balance variances detected by severity",
			},
			[]string{"severity"},
		),
		ImmutabilityViolations: factory.NewCounter(prometheus.CounterOpts{
			Name: "hoaledger_immutability_violations_total",
			Help: "Ledger entries found modified or deleted",
		}),
		InvariantFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hoaledger_invariant_failures_total",
				Help: "Double-entry invariant failures by check",
			},
			[]string{"check"},
		),
		AuditEntriesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hoaledger_audit_entries_total",
				Help: "Audit entries written by event type",
			},
			[]string{"event_type"},
		),
		OutboxEventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hoaledger_outbox_events_published_total",
				Help: "Outbox events handed to the publisher by result",
			},
			[]string{"status"},
		),

		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hoaledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hoaledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "hoaledger_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		}),
	}
}

func (m *Metrics) ObserveReconstruction(kind string, d time.Duration) {
	m.ReconstructionDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) RecordCache(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.SnapshotCache.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) RecordVariance(severity string) {
	m.Variances.WithLabelValues(severity).Inc()
}

func (m *Metrics) RecordImmutabilityViolations(n int) {
	if n > 0 {
		m.ImmutabilityViolations.Add(float64(n))
	}
}

func (m *Metrics) RecordInvariantFailure(check string) {
	m.InvariantFailures.WithLabelValues(check).Inc()
}

func (m *Metrics) RecordAudit(event string) {
	m.AuditEntriesCreated.WithLabelValues(event).Inc()
}

// RecordPublish counts one outbox delivery attempt.
func (m *Metrics) RecordPublish(ok bool) {
	status := "error"
	if ok {
		status = "ok"
	}
	m.OutboxEventsPublished.WithLabelValues(status).Inc()
}

// ObserveHTTP records one served request. path is the route pattern, not the
// raw URL, to keep label cardinality bounded.
func (m *Metrics) ObserveHTTP(method, path string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// RecordRateLimitHit counts one rejected request.
func (m *Metrics) RecordRateLimitHit() {
	m.RateLimitHits.Inc()
}
