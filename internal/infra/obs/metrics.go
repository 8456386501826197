package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LockAcquisitions counts availability lock attempts by outcome
	// (acquired, timeout, cancelled, released, release_failed).
	LockAcquisitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_lock_acquisitions_total",
			Help: "Availability lock acquisitions and releases by outcome.",
		},
		[]string{"outcome"},
	)

	ReservationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_attempts_total",
			Help: "Reservation create and cancel attempts by result.",
		},
		[]string{"result"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_lookups_total",
			Help: "Response cache lookups by bucket and result (hit, miss, bypass).",
		},
		[]string{"bucket", "result"},
	)

	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "response_cache_invalidations_total",
			Help: "Bucket invalidations by outcome.",
		},
		[]string{"bucket", "outcome"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of http requests handled by the service.",
		},
		[]string{"path", "method", "code"},
	)
)
