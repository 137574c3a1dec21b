package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compas_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compas_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// Conversation metrics
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compas_turns_total",
			Help: "Total number of conversation turns processed",
		},
		[]string{"stage", "status"},
	)

	turnDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compas_turn_duration_seconds",
			Help:    "End-to-end turn processing duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	stageTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compas_stage_transitions_total",
			Help: "Total number of stage transitions",
		},
		[]string{"from", "to"},
	)

	// LLM metrics
	llmRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compas_llm_requests_total",
			Help: "Total number of LLM completion requests",
		},
		[]string{"provider", "model", "status"},
	)

	llmRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "compas_llm_request_duration_seconds",
			Help:    "LLM completion request duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"provider", "model"},
	)

	llmTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compas_llm_tokens_total",
			Help: "Total number of LLM tokens consumed",
		},
		[]string{"provider", "model", "direction"},
	)

	analysisFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "compas_analysis_failures_total",
			Help: "Total number of failed progression analyses",
		},
		[]string{"stage"},
	)

	// System metrics
	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "compas_sessions_active",
			Help: "Number of sessions currently held by the store",
		},
	)

	initOnce sync.Once
)

// InitMetrics registers all metrics with the default registry.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpRequestsTotal,
			httpRequestDuration,
			turnsTotal,
			turnDuration,
			stageTransitionsTotal,
			llmRequestsTotal,
			llmRequestDuration,
			llmTokensTotal,
			analysisFailuresTotal,
			sessionsActive,
		)
	})
}

// MetricsHandler returns an HTTP handler for Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordTurn records one processed conversation turn.
func RecordTurn(stage, status string, duration time.Duration) {
	turnsTotal.WithLabelValues(stage, status).Inc()
	turnDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordStageTransition records a stage transition.
func RecordStageTransition(from, to string) {
	stageTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordLLMRequest records one LLM completion call.
func RecordLLMRequest(provider, model, status string, duration time.Duration) {
	llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// RecordLLMTokens records token consumption for one LLM call.
func RecordLLMTokens(provider, model string, promptTokens, completionTokens int) {
	llmTokensTotal.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	llmTokensTotal.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

// RecordAnalysisFailure records a failed progression analysis.
func RecordAnalysisFailure(stage string) {
	analysisFailuresTotal.WithLabelValues(stage).Inc()
}

// SetSessionsActive sets the active sessions gauge.
func SetSessionsActive(count int) {
	sessionsActive.Set(float64(count))
}
