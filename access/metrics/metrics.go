// Package metrics registers the Prometheus instruments for the
// access-coordination core. It only registers instruments against the
// default registry; exposing a /metrics endpoint is the embedding
// service's concern, not this package's.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LockGrantsTotal counts successful grants, by source and mode.
	LockGrantsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reddwarf_access_lock_grants_total",
			Help: "Total number of lock requests granted by the access coordinator",
		},
		[]string{"source", "mode"},
	)

	// LockConflictsTotal counts terminal conflicts, by source and type
	// (timeout, denied, interrupted, deadlock).
	LockConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reddwarf_access_lock_conflicts_total",
			Help: "Total number of lock requests that ended in a conflict",
		},
		[]string{"source", "type"},
	)

	// ActiveLockers tracks the number of transactions currently
	// registered with the coordinator.
	ActiveLockers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reddwarf_access_active_lockers",
			Help: "Number of transactions currently registered with the access coordinator",
		},
	)

	// LockWaitDuration records how long a blocking lock request waited
	// before resolving, regardless of outcome.
	LockWaitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reddwarf_access_lock_wait_seconds",
			Help:    "Duration a lock request spent waiting before it resolved",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1, 10},
		},
		[]string{"source"},
	)
)

// RecordGrant increments the grant counter for source and mode.
func RecordGrant(source, mode string) {
	LockGrantsTotal.WithLabelValues(source, mode).Inc()
}

// RecordConflict increments the conflict counter for source and
// conflict type.
func RecordConflict(source, conflictType string) {
	LockConflictsTotal.WithLabelValues(source, conflictType).Inc()
}

// RecordWaitDuration observes the time a lock request spent waiting,
// in seconds.
func RecordWaitDuration(source string, seconds float64) {
	LockWaitDuration.WithLabelValues(source).Observe(seconds)
}

// SetActiveLockers sets the gauge of currently registered transactions.
func SetActiveLockers(count int) {
	ActiveLockers.Set(float64(count))
}
