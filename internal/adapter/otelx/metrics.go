package otelx

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "messagedb-agent"

// Metrics holds the engine's metric instruments.
type Metrics struct {
	SessionsStarted   metric.Int64Counter
	SessionsCompleted metric.Int64Counter
	LLMCalls          metric.Int64Counter
	LLMFailures       metric.Int64Counter
	ToolCalls         metric.Int64Counter
	TokensUsed        metric.Int64Counter
	PassDuration      metric.Float64Histogram
}

// NewMetrics creates all instruments on the global meter.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	if m.SessionsStarted, err = meter.Int64Counter("agent.sessions.started",
		metric.WithDescription("Number of sessions started")); err != nil {
		return nil, err
	}
	if m.SessionsCompleted, err = meter.Int64Counter("agent.sessions.completed",
		metric.WithDescription("Number of sessions completed")); err != nil {
		return nil, err
	}
	if m.LLMCalls, err = meter.Int64Counter("agent.llm.calls",
		metric.WithDescription("Number of successful LLM calls")); err != nil {
		return nil, err
	}
	if m.LLMFailures, err = meter.Int64Counter("agent.llm.failures",
		metric.WithDescription("Number of LLM calls failed after retries")); err != nil {
		return nil, err
	}
	if m.ToolCalls, err = meter.Int64Counter("agent.tool.calls",
		metric.WithDescription("Number of tool executions")); err != nil {
		return nil, err
	}
	if m.TokensUsed, err = meter.Int64Counter("agent.llm.tokens",
		metric.WithDescription("Total tokens reported by the model")); err != nil {
		return nil, err
	}
	if m.PassDuration, err = meter.Float64Histogram("agent.pass.duration_seconds",
		metric.WithDescription("Processing pass duration in seconds")); err != nil {
		return nil, err
	}

	return m, nil
}
