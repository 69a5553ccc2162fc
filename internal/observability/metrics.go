package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PhotosIngested = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "localpix",
		Name:      "photos_ingested_total",
		Help:      "Total number of photos processed by the ingestion pool",
	})

	FacesIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "localpix",
		Name:      "faces_indexed_total",
		Help:      "Total number of face descriptors stored",
	})

	IngestFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "localpix",
		Name:      "ingest_failures_total",
		Help:      "Total number of failed ingestion tasks",
	}, []string{"reason"})

	IngestQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "localpix",
		Name:      "ingest_queue_depth",
		Help:      "Number of pending tasks in the ingestion queue",
	})

	ExtractDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "localpix",
		Name:      "extract_duration_seconds",
		Help:      "Duration of face extraction stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	IdentifyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "localpix",
		Name:      "identify_duration_seconds",
		Help:      "Duration of identify requests end to end",
		Buckets:   prometheus.DefBuckets,
	})

	DescriptorsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "localpix",
		Name:      "descriptors_purged_total",
		Help:      "Total number of descriptors destroyed at closing",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "localpix",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "localpix",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
