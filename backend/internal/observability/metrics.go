package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons for ArticlesDropped.
const (
	DropBelowGate        = "below_gate"
	DropExtractionFailed = "extraction_failed"
	DropInvalidCandidate = "invalid_candidate"
)

var (
	ArticlesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curator_articles_fetched_total",
		Help: "Candidates returned by the article source",
	})

	ArticlesAdmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curator_articles_admitted_total",
		Help: "Articles that passed the admission gate and were ranked",
	})

	ArticlesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_articles_dropped_total",
		Help: "Articles dropped from a batch by reason",
	}, []string{"reason"})

	EmbeddingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_embedding_requests_total",
		Help: "Embedding requests by provider and status",
	}, []string{"provider", "status"})

	EmbeddingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "curator_embedding_latency_seconds",
		Help:    "Latency of embedding requests",
		Buckets: prometheus.DefBuckets,
	})

	GraphOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "curator_graph_operation_duration_seconds",
		Help:    "Duration of graph store operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "curator_batch_duration_seconds",
		Help:    "Duration of a full fetch-score-rank batch",
		Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
	})

	Reactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_reactions_total",
		Help: "Recorded reactions by resulting value",
	}, []string{"reaction"})
)

// ObserveGraphOperation records how long a graph operation took since start
func ObserveGraphOperation(operation string, start time.Time) {
	GraphOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordEmbedding records an embedding request outcome
func RecordEmbedding(provider string, success bool, d time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	EmbeddingRequests.WithLabelValues(provider, status).Inc()
	EmbeddingLatency.Observe(d.Seconds())
}
