package metrics

import "github.com/prometheus/client_golang/prometheus"

// Pipeline Prometheus metrics.
var (
	ExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retriever_stub",
			Name:      "executions_total",
			Help:      "Total retriever executions",
		},
		[]string{"mode", "status"}, // mode: "stream" / "buffered"
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retriever_stub",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"stage"},
	)

	StageDocuments = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "retriever_stub",
			Name:      "stage_documents",
			Help:      "Documents emitted per pipeline stage",
			Buckets:   prometheus.LinearBuckets(0, 5, 10),
		},
		[]string{"stage"},
	)

	AnswerRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retriever_stub",
			Name:      "answer_requests_total",
			Help:      "Generated-answer requests",
		},
		[]string{"provider", "model", "status"},
	)

	AnswerTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "retriever_stub",
			Name:      "answer_chunks_total",
			Help:      "Streamed answer chunks",
		},
		[]string{"provider", "model"},
	)
)

var pipelineMetricsRegistered bool

// RegisterPipelineMetrics registers Prometheus pipeline metrics. Must be called once from main.
func RegisterPipelineMetrics() {
	if pipelineMetricsRegistered {
		return
	}
	prometheus.MustRegister(ExecutionsTotal)
	prometheus.MustRegister(StageDuration)
	prometheus.MustRegister(StageDocuments)
	prometheus.MustRegister(AnswerRequestsTotal)
	prometheus.MustRegister(AnswerTokensTotal)
	pipelineMetricsRegistered = true
}
