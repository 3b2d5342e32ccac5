package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

var (
	// Chat endpoint metrics
	chatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repo_advisor_chat_requests_total",
			Help: "Total number of chat requests by HTTP status",
		},
		[]string{"status"},
	)

	chatRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repo_advisor_chat_request_duration_seconds",
			Help:    "Chat request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	// Upstream metrics
	completionCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repo_advisor_completion_calls_total",
			Help: "Total number of completion calls by model and outcome",
		},
		[]string{"model", "status"},
	)

	completionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repo_advisor_completion_duration_seconds",
			Help:    "Completion call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	retrievalCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repo_advisor_retrieval_calls_total",
			Help: "Total number of knowledge base searches by outcome",
		},
		[]string{"status"},
	)

	retrievalDocuments = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "repo_advisor_retrieval_documents",
			Help:    "Number of documents returned per knowledge base search",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 10, 20},
		},
	)

	// Session metrics
	activeSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "repo_advisor_active_sessions",
			Help: "Number of sessions held in memory",
		},
	)

	initOnce sync.Once
)

// InitMetrics registers the collectors with the default registry.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			chatRequestsTotal,
			chatRequestDuration,
			completionCallsTotal,
			completionDuration,
			retrievalCallsTotal,
			retrievalDocuments,
			activeSessions,
		)
	})
}

// Handler returns an HTTP handler for Prometheus metrics
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordChatRequest(status string, duration time.Duration) {
	chatRequestsTotal.WithLabelValues(status).Inc()
	chatRequestDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func RecordCompletion(model, status string, duration time.Duration) {
	completionCallsTotal.WithLabelValues(model, status).Inc()
	completionDuration.WithLabelValues(model).Observe(duration.Seconds())
}

func RecordRetrieval(status string, documents int) {
	retrievalCallsTotal.WithLabelValues(status).Inc()
	if status == StatusSuccess {
		retrievalDocuments.Observe(float64(documents))
	}
}

func SetActiveSessions(count int) {
	activeSessions.Set(float64(count))
}
