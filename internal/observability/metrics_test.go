package observability

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// newTestMetrics builds a Metrics with vectors registered to a private
// registry, mirroring NewMetrics' field set without touching the global
// default registry (NewMetrics itself is only safe to call once per
// process, since promauto registers against prometheus.DefaultRegisterer).
func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		LLMRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{Name: "test_llm_request_duration_seconds", Buckets: []float64{0.1, 1, 10}},
			[]string{"provider", "model"},
		),
		LLMRequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{Name: "test_llm_requests_total"},
			[]string{"provider", "model", "status"},
		),
		LLMTokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{Name: "test_llm_tokens_total"},
			[]string{"provider", "model", "type"},
		),
		ToolExecutionCounter: factory.NewCounterVec(
			prometheus.CounterOpts{Name: "test_tool_executions_total"},
			[]string{"tool_name", "status"},
		),
		ToolExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{Name: "test_tool_execution_duration_seconds", Buckets: []float64{0.1, 1, 10}},
			[]string{"tool_name"},
		),
		ErrorCounter: factory.NewCounterVec(
			prometheus.CounterOpts{Name: "test_errors_total"},
			[]string{"strategy", "error_kind"},
		),
		ActiveSessions: factory.NewGaugeVec(
			prometheus.GaugeOpts{Name: "test_active_sessions"},
			[]string{"strategy"},
		),
		SessionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{Name: "test_session_duration_seconds", Buckets: []float64{60, 300, 600}},
			[]string{"strategy"},
		),
	}, reg
}

func TestRecordLLMRequest_RecordsCounterDurationAndTokens(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordLLMRequest("openai", "gpt-4.1", "success", 1.5, 100, 50)

	expected := `
		# HELP test_llm_requests_total
		# TYPE test_llm_requests_total counter
		test_llm_requests_total{model="gpt-4.1",provider="openai",status="success"} 1
	`
	if err := testutil.CollectAndCompare(m.LLMRequestCounter, strings.NewReader(expected), "test_llm_requests_total"); err != nil {
		t.Errorf("unexpected counter value: %v", err)
	}
	if count := testutil.CollectAndCount(m.LLMTokensUsed); count != 2 {
		t.Errorf("expected 2 token label combinations (prompt, completion), got %d", count)
	}
}

func TestRecordLLMRequest_SkipsZeroTokenCounts(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordLLMRequest("ollama", "llama3", "error", 0.2, 0, 0)

	if count := testutil.CollectAndCount(m.LLMTokensUsed); count != 0 {
		t.Errorf("expected no token observations when counts are zero, got %d", count)
	}
}

func TestRecordToolExecution(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordToolExecution("web_search", "success", 0.05)
	m.RecordToolExecution("web_search", "error", 0.02)

	if count := testutil.CollectAndCount(m.ToolExecutionCounter); count != 2 {
		t.Errorf("expected 2 status label combinations, got %d", count)
	}
}

func TestRecordError(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordError("complete_task", "provider_network")
	m.RecordError("complete_task", "provider_network")

	expected := `
		# HELP test_errors_total
		# TYPE test_errors_total counter
		test_errors_total{error_kind="provider_network",strategy="complete_task"} 2
	`
	if err := testutil.CollectAndCompare(m.ErrorCounter, strings.NewReader(expected), "test_errors_total"); err != nil {
		t.Errorf("unexpected counter value: %v", err)
	}
}

func TestSessionLifecycle_GaugeTracksConcurrentRuns(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.SessionStarted("complete_task")
	m.SessionStarted("complete_task")
	m.SessionStarted("plan_execute")

	if v := testutil.ToFloat64(m.ActiveSessions.WithLabelValues("complete_task")); v != 2 {
		t.Errorf("expected 2 active complete_task sessions, got %v", v)
	}

	m.SessionEnded("complete_task", 42.0)

	if v := testutil.ToFloat64(m.ActiveSessions.WithLabelValues("complete_task")); v != 1 {
		t.Errorf("expected 1 active complete_task session after one ended, got %v", v)
	}
	if count := testutil.CollectAndCount(m.SessionDuration); count != 1 {
		t.Errorf("expected one session-duration observation, got %d", count)
	}
}
