package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion Metrics
var (
	// SamplesIngestedTotal tracks accepted gaze samples by source
	SamplesIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gaze_samples_ingested_total",
			Help: "Total gaze samples accepted by the ingest pipeline, by source",
		},
		[]string{"source"},
	)

	// SamplesRejectedTotal tracks samples dropped at ingress
	SamplesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gaze_samples_rejected_total",
			Help: "Total malformed or unrecognized inbound messages dropped at ingress",
		},
		[]string{"reason"},
	)

	// ProducersConnected tracks currently connected producer streams
	ProducersConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gaze_producers_connected",
			Help: "Number of currently connected gaze producer streams",
		},
	)
)

// Attention Detector Metrics
var (
	// AlertsEmittedTotal tracks attention alerts emitted after cooldown gating
	AlertsEmittedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "attention_alerts_emitted_total",
			Help: "Total attention-loss alerts emitted",
		},
	)

	// DriftEvaluationsTotal tracks drift classifications suppressed by cooldown
	DriftEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attention_drift_evaluations_total",
			Help: "Drift classifications by outcome (alerted/cooldown)",
		},
		[]string{"outcome"},
	)
)

// Broadcast Hub Metrics
var (
	// HubSubscribers tracks currently registered subscriber connections
	HubSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_subscribers",
			Help: "Number of currently registered subscriber connections",
		},
	)

	// HubFlushesTotal tracks periodic flushes that carried at least one update
	HubFlushesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_flushes_total",
			Help: "Total periodic flushes that delivered gaze updates",
		},
	)

	// HubSlowSubscribersEvicted tracks subscribers evicted due to full buffers
	HubSlowSubscribersEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_subscribers_evicted_total",
			Help: "Total slow subscriber connections evicted due to full send buffers",
		},
	)

	// HubAlertsBroadcastTotal tracks alert fan-outs
	HubAlertsBroadcastTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_alerts_broadcast_total",
			Help: "Total attention alerts fanned out to subscribers",
		},
	)
)

// Persistence Metrics
var (
	// PersistQueueDepth tracks current persistence queue depth
	PersistQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "persist_queue_depth",
			Help: "Current persistence queue depth",
		},
	)

	// PersistDroppedTotal tracks samples shed because the queue was full
	PersistDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "persist_dropped_total",
			Help: "Total samples shed because the persistence queue was full",
		},
	)

	// PersistWrittenTotal tracks gaze points durably written
	PersistWrittenTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "persist_written_total",
			Help: "Total gaze points written to storage",
		},
	)

	// PersistSkippedTotal tracks samples discarded for lack of an active session
	PersistSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "persist_skipped_total",
			Help: "Total samples discarded because no active session existed at write time",
		},
	)

	// PersistFailuresTotal tracks storage write failures
	PersistFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "persist_failures_total",
			Help: "Total storage write failures absorbed by the worker pool",
		},
	)
)

// Session Registry Metrics
var (
	// RegistryLookupsTotal tracks active-session lookups by result
	RegistryLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_registry_lookups_total",
			Help: "Active-session lookups by result (hit/miss/error)",
		},
		[]string{"result"},
	)

	// RegistryCacheHitsTotal tracks lookups served from the Redis cache
	RegistryCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_registry_cache_hits_total",
			Help: "Active-session lookups served from the cache",
		},
	)
)
