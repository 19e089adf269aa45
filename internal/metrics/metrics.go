// Package metrics registers the engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Catalog client
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_catalog_requests_total",
			Help: "Remote catalog requests by operation and result",
		},
		[]string{"operation", "result"}, // "ok", "not_found", "unauthorized", "error"
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "offline_catalog_request_duration_seconds",
			Help:    "Remote catalog request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "offline_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by result",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	// Reconciliation
	SyncPasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_sync_passes_total",
			Help: "Reconciliation passes by result",
		},
		[]string{"result"}, // "completed", "skipped", "aborted"
	)

	SyncDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "offline_sync_duration_seconds",
			Help:    "Duration of completed reconciliation passes",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
		},
	)

	SyncEntities = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_sync_entities_total",
			Help: "Entities visited during reconciliation by kind and outcome",
		},
		[]string{"kind", "outcome"}, // kind: library, series, book; outcome: imported, tombstoned, error
	)

	// Downloads
	DownloadsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "offline_downloads_active",
			Help: "Book downloads currently holding a permit",
		},
	)

	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_downloads_total",
			Help: "Finished book downloads by outcome",
		},
		[]string{"outcome"}, // "success", "failure", "cancelled"
	)

	DownloadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "offline_download_bytes_total",
			Help: "Bytes written to local storage by book downloads",
		},
	)

	// Domain events
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_events_published_total",
			Help: "Domain events published by type",
		},
		[]string{"type"},
	)

	EventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_events_dropped_total",
			Help: "Domain events dropped for subscribers that fell behind",
		},
		[]string{"type"},
	)

	// HTTP API
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_http_requests_total",
			Help: "HTTP API requests by route and status class",
		},
		[]string{"route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "offline_http_request_duration_seconds",
			Help:    "HTTP API request latency by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)
