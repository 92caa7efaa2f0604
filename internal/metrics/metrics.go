package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Catalog client
	CatalogRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_requests_total",
			Help: "Total number of requests sent to the catalog service",
		},
		[]string{"operation", "status"},
	)

	CatalogRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_request_duration_seconds",
			Help:    "Round trip time of catalog service requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ChangesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_changes_published_total",
			Help: "Total number of product change events handed to the notifier",
		},
		[]string{"kind", "status"},
	)

	// Search screen
	ScreenSearches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "screen_searches_total",
			Help: "Total number of searches started by text changes",
		},
	)

	ScreenStaleResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "screen_stale_responses_total",
			Help: "Total number of search responses discarded because a newer query was issued",
		},
	)

	ScreenSearchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "screen_search_failures_total",
			Help: "Total number of searches that ended with an error",
		},
	)

	// Consumer
	MessagesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consumer_messages_processed_total",
			Help: "Total number of messages processed",
		},
		[]string{"status"},
	)

	MessageProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "consumer_message_processing_duration_seconds",
			Help:    "Time taken to process a message",
			Buckets: prometheus.DefBuckets,
		},
	)

	DatabaseInserts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "consumer_database_inserts_total",
			Help: "Total number of database inserts",
		},
		[]string{"status"},
	)
)

func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func StartMetricsServer(addr string) error {
	return http.ListenAndServe(addr, Handler())
}
