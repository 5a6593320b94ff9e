package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "shelf_booking"

var (
	// Booking workflow
	BookingTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "booking_transitions_total",
		Help:      "Booking status transitions applied, by source status, target status and role",
	}, []string{"from", "to", "role"})

	TransitionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "booking_transition_failures_total",
		Help:      "Rejected booking status transitions by reason",
	}, []string{"reason"})

	RequestsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "booking_requests_created_total",
		Help:      "Booking requests submitted",
	})

	RequestsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "booking_requests_closed_total",
		Help:      "Booking requests closed because every booking was resolved",
	})

	// Zone registry
	ZoneMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "zone_mutations_total",
		Help:      "Zone mutations by operation",
	}, []string{"operation"})

	ZonesAffected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "zones_affected_total",
		Help:      "Zones touched by mutations, by operation",
	}, []string{"operation"})

	// Cache
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Cache lookups by cache name and result (hit, miss, error)",
	}, []string{"cache", "result"})

	CacheInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_invalidations_total",
		Help:      "Cache namespace invalidations by result",
	}, []string{"cache", "result"})

	// Outbox relay
	OutboxPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "outbox_messages_total",
		Help:      "Outbox messages processed by outcome (published, failed)",
	}, []string{"outcome"})

	OutboxBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "outbox_batch_duration_seconds",
		Help:      "Duration of one outbox relay batch",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	// HTTP
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}, // 5ms to 10s
	}, []string{"method", "route", "status"})
)

// RecordTransition records an applied booking transition
func RecordTransition(from, to, role string) {
	BookingTransitions.WithLabelValues(from, to, role).Inc()
}

// RecordTransitionFailure records a rejected transition
func RecordTransitionFailure(reason string) {
	TransitionFailures.WithLabelValues(reason).Inc()
}

// RecordZoneMutation records a zone mutation and how many zones it touched
func RecordZoneMutation(operation string, affected int64) {
	ZoneMutations.WithLabelValues(operation).Inc()
	if affected > 0 {
		ZonesAffected.WithLabelValues(operation).Add(float64(affected))
	}
}

// RecordCacheLookup records a cache hit, miss or error
func RecordCacheLookup(cache, result string) {
	CacheLookups.WithLabelValues(cache, result).Inc()
}

// RecordCacheInvalidation records a namespace bump
func RecordCacheInvalidation(cache string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	CacheInvalidations.WithLabelValues(cache, result).Inc()
}

// RecordOutbox records the outcome of publishing one outbox message
func RecordOutbox(outcome string) {
	OutboxPublished.WithLabelValues(outcome).Inc()
}

// RecordRequest records the duration of an HTTP request
func RecordRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler serves the default registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.Handler()
}
