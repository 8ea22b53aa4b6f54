// Package metrics provides Prometheus instrumentation for Stratus.
// Collectors are registered once at package init through promauto and
// shared by the configuration store, the warehouse client, and the API
// layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ConfigUpdates counts persisted configuration mutations by section.
	ConfigUpdates = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stratus",
			Subsystem: "config",
			Name:      "updates_total",
			Help:      "Total configuration updates persisted to disk",
		},
		[]string{"section"},
	)

	// ThresholdValidationFailures counts data-quality rules that failed
	// threshold validation, by rule type.
	ThresholdValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stratus",
			Subsystem: "config",
			Name:      "threshold_validation_failures_total",
			Help:      "Data-quality rules with out-of-range thresholds",
		},
		[]string{"rule_type"},
	)

	// WarehouseQueries counts warehouse queries by outcome.
	WarehouseQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stratus",
			Subsystem: "warehouse",
			Name:      "queries_total",
			Help:      "Total warehouse queries executed",
		},
		[]string{"status"},
	)

	// WarehouseQueryDuration tracks warehouse query latency in seconds.
	WarehouseQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "stratus",
			Subsystem: "warehouse",
			Name:      "query_duration_seconds",
			Help:      "Warehouse query latency",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// APIRequests counts API requests by route and status code.
	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stratus",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total API requests served",
		},
		[]string{"route", "status"},
	)
)
