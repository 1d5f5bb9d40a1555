package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus counters/histograms for agent invocations,
// LLM calls, tool calls, and workflow transitions. A nil *Metrics is valid
// and every Record/Inc/Dec method is a no-op on it, so call sites never
// need to check whether metrics are enabled.
type Metrics struct {
	config   *MetricsConfig
	registry *prometheus.Registry

	agentCalls        *prometheus.CounterVec
	agentCallDuration *prometheus.HistogramVec
	agentErrors       *prometheus.CounterVec
	agentActiveRuns   *prometheus.GaugeVec

	llmCalls        *prometheus.CounterVec
	llmCallDuration *prometheus.HistogramVec
	llmTokensInput  *prometheus.CounterVec
	llmTokensOutput *prometheus.CounterVec
	llmErrors       *prometheus.CounterVec

	toolCalls        *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	toolErrors       *prometheus.CounterVec

	workflowTransitions *prometheus.CounterVec
	tasksInFlight       *prometheus.GaugeVec
}

// NewMetrics builds a Metrics instance from cfg, or returns (nil, nil) when
// metrics are disabled.
func NewMetrics(cfg *MetricsConfig) (*Metrics, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Metrics{config: cfg, registry: prometheus.NewRegistry()}
	m.initAgentMetrics()
	m.initLLMMetrics()
	m.initToolMetrics()
	m.initWorkflowMetrics()
	return m, nil
}

func (m *Metrics) initAgentMetrics() {
	m.agentCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "agent", Name: "calls_total",
		Help: "Total number of agent iteration runs",
	}, []string{"agent_name"})

	m.agentCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "agent", Name: "call_duration_seconds",
		Help: "Agent run duration in seconds", Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"agent_name"})

	m.agentErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "agent", Name: "errors_total",
		Help: "Total number of agent errors",
	}, []string{"agent_name", "error_type"})

	m.agentActiveRuns = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.config.Namespace, Subsystem: "agent", Name: "active_runs",
		Help: "Number of currently executing agent iteration loops",
	}, []string{"agent_name"})

	m.registry.MustRegister(m.agentCalls, m.agentCallDuration, m.agentErrors, m.agentActiveRuns)
}

func (m *Metrics) initLLMMetrics() {
	m.llmCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "llm", Name: "calls_total",
		Help: "Total number of LLM invocations",
	}, []string{"model"})

	m.llmCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "llm", Name: "call_duration_seconds",
		Help: "LLM invocation duration in seconds", Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"model"})

	m.llmTokensInput = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "llm", Name: "tokens_input_total",
		Help: "Total input tokens consumed",
	}, []string{"model"})

	m.llmTokensOutput = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "llm", Name: "tokens_output_total",
		Help: "Total output tokens generated",
	}, []string{"model"})

	m.llmErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "llm", Name: "errors_total",
		Help: "Total number of LLM errors",
	}, []string{"model", "error_type"})

	m.registry.MustRegister(m.llmCalls, m.llmCallDuration, m.llmTokensInput, m.llmTokensOutput, m.llmErrors)
}

func (m *Metrics) initToolMetrics() {
	m.toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "tool", Name: "calls_total",
		Help: "Total number of tool invocations",
	}, []string{"tool_name"})

	m.toolCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "tool", Name: "call_duration_seconds",
		Help: "Tool execution duration in seconds", Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
	}, []string{"tool_name"})

	m.toolErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "tool", Name: "errors_total",
		Help: "Total number of tool errors",
	}, []string{"tool_name"})

	m.registry.MustRegister(m.toolCalls, m.toolCallDuration, m.toolErrors)
}

func (m *Metrics) initWorkflowMetrics() {
	m.workflowTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "workflow", Name: "transitions_total",
		Help: "Total number of workflow status transitions",
	}, []string{"team_name", "status"})

	m.tasksInFlight = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.config.Namespace, Subsystem: "workflow", Name: "tasks_in_flight",
		Help: "Number of tasks currently DOING",
	}, []string{"team_name"})

	m.registry.MustRegister(m.workflowTransitions, m.tasksInFlight)
}

// RecordAgentCall records one completed agent run.
func (m *Metrics) RecordAgentCall(agentName string, duration time.Duration) {
	if m == nil {
		return
	}
	m.agentCalls.WithLabelValues(agentName).Inc()
	m.agentCallDuration.WithLabelValues(agentName).Observe(duration.Seconds())
}

// RecordAgentError records an agent-level error.
func (m *Metrics) RecordAgentError(agentName, errorType string) {
	if m == nil {
		return
	}
	m.agentErrors.WithLabelValues(agentName, errorType).Inc()
}

// IncAgentActiveRuns increments the active-runs gauge.
func (m *Metrics) IncAgentActiveRuns(agentName string) {
	if m == nil {
		return
	}
	m.agentActiveRuns.WithLabelValues(agentName).Inc()
}

// DecAgentActiveRuns decrements the active-runs gauge.
func (m *Metrics) DecAgentActiveRuns(agentName string) {
	if m == nil {
		return
	}
	m.agentActiveRuns.WithLabelValues(agentName).Dec()
}

// RecordLLMCall records one LLM invocation.
func (m *Metrics) RecordLLMCall(model string, duration time.Duration) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(model).Inc()
	m.llmCallDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordLLMTokens records token usage for one call.
func (m *Metrics) RecordLLMTokens(model string, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.llmTokensInput.WithLabelValues(model).Add(float64(inputTokens))
	m.llmTokensOutput.WithLabelValues(model).Add(float64(outputTokens))
}

// RecordLLMError records an LLM-level error.
func (m *Metrics) RecordLLMError(model, errorType string) {
	if m == nil {
		return
	}
	m.llmErrors.WithLabelValues(model, errorType).Inc()
}

// RecordToolCall records one tool invocation.
func (m *Metrics) RecordToolCall(toolName string, duration time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(toolName).Inc()
	m.toolCallDuration.WithLabelValues(toolName).Observe(duration.Seconds())
}

// RecordToolError records a tool-level error.
func (m *Metrics) RecordToolError(toolName string) {
	if m == nil {
		return
	}
	m.toolErrors.WithLabelValues(toolName).Inc()
}

// RecordWorkflowTransition records a workflow status change.
func (m *Metrics) RecordWorkflowTransition(teamName, status string) {
	if m == nil {
		return
	}
	m.workflowTransitions.WithLabelValues(teamName, status).Inc()
}

// SetTasksInFlight sets the current in-flight task count.
func (m *Metrics) SetTasksInFlight(teamName string, count int) {
	if m == nil {
		return
	}
	m.tasksInFlight.WithLabelValues(teamName).Set(float64(count))
}

// Handler returns the Prometheus scrape handler, or a 503 when metrics are
// disabled.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}
