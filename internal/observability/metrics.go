package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting application metrics.
//
// The metrics system is built on Prometheus and tracks:
//   - LLM request performance, response times, and token usage
//   - Tool execution patterns and latencies
//   - Error rates categorized by strategy and error kind
//   - Active session counts and durations
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	metrics.SessionStarted("complete_task")
//	defer metrics.LLMRequestDuration("openai", "gpt-4.1").Observe(time.Since(start).Seconds())
type Metrics struct {
	// LLMRequestDuration measures provider call latency in seconds.
	// Labels: provider, model
	// Buckets: 0.1s, 0.5s, 1s, 2s, 5s, 10s, 30s, 60s
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts provider calls by provider, model, and status.
	// Labels: provider, model, status (success|error)
	LLMRequestCounter *prometheus.CounterVec

	// LLMTokensUsed tracks token consumption per provider call.
	// Labels: provider, model, type (prompt|completion)
	LLMTokensUsed *prometheus.CounterVec

	// ToolExecutionCounter counts tool invocations.
	// Labels: tool_name, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec

	// ToolExecutionDuration measures tool execution time in seconds.
	// Labels: tool_name
	// Buckets: 0.01s, 0.05s, 0.1s, 0.5s, 1s, 5s, 10s, 30s, 60s
	ToolExecutionDuration *prometheus.HistogramVec

	// ErrorCounter tracks run failures by strategy and error kind.
	// Labels: strategy, error_kind
	ErrorCounter *prometheus.CounterVec

	// ActiveSessions is a gauge tracking currently running orchestrator runs.
	// Labels: strategy
	ActiveSessions *prometheus.GaugeVec

	// SessionDuration measures a run's wall-clock lifetime in seconds.
	// Labels: strategy
	// Buckets: 1s, 5s, 15s, 30s, 60s, 120s, 300s, 600s
	SessionDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
// This should be called once at application startup.
//
// All metrics are automatically registered with Prometheus's default registry
// and will be available at the /metrics endpoint when using prometheus HTTP handler.
func NewMetrics() *Metrics {
	return &Metrics{
		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "volition_llm_request_duration_seconds",
				Help:    "Duration of provider chat-completion calls in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),

		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volition_llm_requests_total",
				Help: "Total number of provider calls by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),

		LLMTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volition_llm_tokens_total",
				Help: "Total number of tokens used by provider, model, and type",
			},
			[]string{"provider", "model", "type"},
		),

		ToolExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volition_tool_executions_total",
				Help: "Total number of tool executions by tool name and status",
			},
			[]string{"tool_name", "status"},
		),

		ToolExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "volition_tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"tool_name"},
		),

		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "volition_errors_total",
				Help: "Total number of run failures by strategy and error kind",
			},
			[]string{"strategy", "error_kind"},
		),

		ActiveSessions: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "volition_active_sessions",
				Help: "Current number of orchestrator runs in progress, by strategy",
			},
			[]string{"strategy"},
		),

		SessionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "volition_session_duration_seconds",
				Help:    "Duration of orchestrator runs in seconds, by strategy",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"strategy"},
		),
	}
}

// RecordLLMRequest records metrics for a provider chat-completion call.
//
// Example:
//
//	start := time.Now()
//	// ... call the provider ...
//	metrics.RecordLLMRequest("openai", "gpt-4.1", "success", time.Since(start).Seconds(), 100, 500)
func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64, promptTokens, completionTokens int) {
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if promptTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordToolExecution records metrics for a tool execution.
//
// Example:
//
//	start := time.Now()
//	// ... execute tool ...
//	metrics.RecordToolExecution("web_search", "success", time.Since(start).Seconds())
func (m *Metrics) RecordToolExecution(toolName, status string, durationSeconds float64) {
	m.ToolExecutionCounter.WithLabelValues(toolName, status).Inc()
	m.ToolExecutionDuration.WithLabelValues(toolName).Observe(durationSeconds)
}

// RecordError increments the error counter for a given strategy and error kind.
//
// Example:
//
//	metrics.RecordError("complete_task", "provider_network")
func (m *Metrics) RecordError(strategy, errorKind string) {
	m.ErrorCounter.WithLabelValues(strategy, errorKind).Inc()
}

// SessionStarted increments the active sessions gauge for a strategy.
//
// Example:
//
//	metrics.SessionStarted("complete_task")
func (m *Metrics) SessionStarted(strategy string) {
	m.ActiveSessions.WithLabelValues(strategy).Inc()
}

// SessionEnded decrements the active sessions gauge and records the run's duration.
//
// Example:
//
//	start := time.Now()
//	// ... orchestrator.Run ...
//	metrics.SessionEnded("complete_task", time.Since(start).Seconds())
func (m *Metrics) SessionEnded(strategy string, durationSeconds float64) {
	m.ActiveSessions.WithLabelValues(strategy).Dec()
	m.SessionDuration.WithLabelValues(strategy).Observe(durationSeconds)
}
