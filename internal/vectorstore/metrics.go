// Package vectorstore provides Prometheus metrics for the vector store client.
package vectorstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OperationDuration tracks latency of vector store operations.
	// Labels: operation (upsert, search, exact_search, delete, delete_by_path)
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rune",
			Subsystem: "vectorstore",
			Name:      "operation_duration_seconds",
			Help:      "Duration of vector store operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// OperationTotal counts vector store operations by outcome.
	// Labels: operation, result (success, error)
	OperationTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rune",
			Subsystem: "vectorstore",
			Name:      "operations_total",
			Help:      "Total number of vector store operations",
		},
		[]string{"operation", "result"},
	)

	// HealthStatus indicates current health status (1=healthy, 0=degraded).
	HealthStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rune",
			Subsystem: "vectorstore",
			Name:      "health_status",
			Help:      "Current health status of the vector store (1=healthy, 0=degraded)",
		},
	)

	// CircuitBreakerState reports the breaker's state as a number
	// (0=closed, 1=half-open, 2=open) for dashboarding.
	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rune",
			Subsystem: "vectorstore",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// RecordOperationResult records an operation's outcome for metrics.
func RecordOperationResult(operation string, success bool) {
	result := "success"
	if !success {
		result = "error"
	}
	OperationTotal.WithLabelValues(operation, result).Inc()
}

// UpdateHealthStatus sets the health gauge from a boolean status.
func UpdateHealthStatus(healthy bool) {
	if healthy {
		HealthStatus.Set(1)
	} else {
		HealthStatus.Set(0)
	}
}

// UpdateCircuitBreakerState sets the breaker state gauge from its string form.
func UpdateCircuitBreakerState(state string) {
	switch state {
	case "closed":
		CircuitBreakerState.Set(0)
	case "half-open":
		CircuitBreakerState.Set(1)
	case "open":
		CircuitBreakerState.Set(2)
	}
}
