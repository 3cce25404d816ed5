package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingestion outcomes.
const (
	OutcomeAccepted   = "accepted"
	OutcomeRejected   = "rejected_ai"
	OutcomeInvalid    = "invalid"
	OutcomeAuthor     = "author_lookup_failure"
	OutcomeClassifier = "classifier_failure"
	OutcomeMediaHost  = "media_host_failure"
	OutcomeStore      = "store_failure"
)

var (
	// IngestionTotal counts ingestion attempts by outcome.
	IngestionTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zeroai_ingestion_total",
		Help: "Total number of post ingestion attempts by outcome",
	}, []string{"outcome"})

	// IngestionStageLatency records latency per pipeline stage.
	IngestionStageLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zeroai_ingestion_stage_latency_seconds",
		Help:    "Latency of each ingestion pipeline stage in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	// ClassifierScores records the AI score distribution of classified uploads.
	ClassifierScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zeroai_classifier_ai_score",
		Help:    "Distribution of classifier AI scores",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})

	// TimelineCacheResults counts timeline cache hits and misses.
	TimelineCacheResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zeroai_timeline_cache_total",
		Help: "Timeline cache lookups by result",
	}, []string{"result"})

	// EventsPublished counts timeline events by sink and result.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zeroai_events_published_total",
		Help: "Timeline events published by sink and result",
	}, []string{"sink", "result"})

	// WebSocketConnections is the gauge of open timeline stream connections.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zeroai_websocket_connections",
		Help: "Number of open timeline WebSocket connections",
	})
)

// TrackStage returns a function that records the stage latency when called (e.g. defer).
func TrackStage(stage string) func() {
	start := time.Now()
	return func() {
		IngestionStageLatency.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}
