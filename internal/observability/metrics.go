package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlchat_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlchat_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlchat_questions_total",
			Help: "Total number of questions answered by the agent, by outcome.",
		},
		[]string{"outcome"},
	)

	questionLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlchat_question_latency_seconds",
			Help:    "Time from question to final answer.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
	)

	agentStepsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlchat_agent_steps_total",
			Help: "Total number of LLM completions issued by the agent.",
		},
	)

	llmTokensTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlchat_llm_tokens_total",
			Help: "Total number of LLM tokens reported by the provider.",
		},
	)

	toolCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sqlchat_tool_calls_total",
			Help: "Total number of tool executions, by tool and outcome.",
		},
		[]string{"tool", "outcome"},
	)

	toolDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sqlchat_tool_duration_seconds",
			Help:    "Tool execution latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	seededRowsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlchat_seeded_rows_total",
			Help: "Total number of synthetic Members rows inserted.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		questionsTotal,
		questionLatencySeconds,
		agentStepsTotal,
		llmTokensTotal,
		toolCallsTotal,
		toolDurationSeconds,
		seededRowsTotal,
	)
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// ObserveQuestion records one finished Ask call.
func ObserveQuestion(steps, tokens int, elapsed time.Duration, err error) {
	questionsTotal.WithLabelValues(outcome(err)).Inc()
	questionLatencySeconds.Observe(elapsed.Seconds())
	if steps > 0 {
		agentStepsTotal.Add(float64(steps))
	}
	if tokens > 0 {
		llmTokensTotal.Add(float64(tokens))
	}
}

// ObserveToolCall records one tool execution.
func ObserveToolCall(tool string, elapsed time.Duration, err error) {
	toolCallsTotal.WithLabelValues(tool, outcome(err)).Inc()
	toolDurationSeconds.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// AddSeededRows counts rows written by the seeder.
func AddSeededRows(n int) {
	if n > 0 {
		seededRowsTotal.Add(float64(n))
	}
}
