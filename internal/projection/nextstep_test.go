package projection_test

import (
	"testing"

	"github.com/zcox/messagedb-agent/internal/projection"
)

func TestNextStepTable(t *testing.T) {
	cases := []struct {
		name string
		f    *fixture
		want projection.Step
	}{
		{
			"user message triggers llm call",
			newFixture().started().userMessage("hi"),
			projection.StepLLMCall,
		},
		{
			"response with tool calls triggers execution",
			newFixture().started().userMessage("hi").llmToolCalls(call("c1", "echo", nil)),
			projection.StepToolExecution,
		},
		{
			"response without tool calls terminates the turn",
			newFixture().started().userMessage("hi").llmText("done"),
			projection.StepTermination,
		},
		{
			"completed tool with no more pending goes back to llm",
			newFixture().started().userMessage("hi").
				llmToolCalls(call("c1", "echo", nil)).
				toolRequested("c1", "echo").
				toolCompleted("c1", "echo", "x"),
			projection.StepLLMCall,
		},
		{
			"completed tool with more pending stays in execution",
			newFixture().started().userMessage("hi").
				llmToolCalls(call("c1", "echo", nil), call("c2", "echo", nil)).
				toolRequested("c1", "echo").
				toolCompleted("c1", "echo", "x"),
			projection.StepToolExecution,
		},
		{
			"failed tool with no more pending goes back to llm",
			newFixture().started().userMessage("hi").
				llmToolCalls(call("c1", "calculate", nil)).
				toolFailed("c1", "calculate", "boom"),
			projection.StepLLMCall,
		},
		{
			"llm failure retries on a later pass",
			newFixture().started().userMessage("hi").llmFailed("rate limited", 2),
			projection.StepLLMCall,
		},
		{
			"termination request terminates",
			newFixture().started().userMessage("hi").terminationRequested(),
			projection.StepTermination,
		},
		{
			"completed session terminates",
			newFixture().started().userMessage("hi").llmText("bye").completed("success"),
			projection.StepTermination,
		},
		{
			"session started alone moves forward",
			newFixture().started(),
			projection.StepLLMCall,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decision := projection.NextStep(tc.f.events)
			if decision.Step != tc.want {
				t.Errorf("NextStep = %s (%s), want %s", decision.Step, decision.Reason, tc.want)
			}
		})
	}
}

func TestNextStepEmptyStream(t *testing.T) {
	decision := projection.NextStep(nil)
	if decision.Step != projection.StepLLMCall {
		t.Errorf("NextStep(empty) = %s, want llm_call", decision.Step)
	}
}

// A crash after ToolExecutionRequested but before the completion must pull
// the machine back into tool execution on the next pass.
func TestNextStepResumesInterruptedToolStep(t *testing.T) {
	f := newFixture().started().userMessage("hi").
		llmToolCalls(call("c1", "echo", nil)).
		toolRequested("c1", "echo")

	decision := projection.NextStep(f.events)
	if decision.Step != projection.StepToolExecution {
		t.Fatalf("NextStep = %s, want tool_execution", decision.Step)
	}
	if len(decision.ToolCalls) != 1 || decision.ToolCalls[0].ID != "c1" {
		t.Errorf("decision tool calls = %+v", decision.ToolCalls)
	}
}

func TestNextStepUnknownKindDefaultsForward(t *testing.T) {
	f := newFixture().started().userMessage("hi")
	f.add("SomeFutureKind", map[string]any{"x": 1.0}, nil)

	if decision := projection.NextStep(f.events); decision.Step != projection.StepLLMCall {
		t.Errorf("NextStep = %s, want llm_call", decision.Step)
	}
}

func TestNextStepCarriesPendingCalls(t *testing.T) {
	f := newFixture().started().userMessage("hi").
		llmToolCalls(call("c1", "echo", map[string]any{"message": "x"}), call("c2", "echo", nil)).
		toolCompleted("c1", "echo", "x")

	decision := projection.NextStep(f.events)
	if decision.Step != projection.StepToolExecution {
		t.Fatalf("NextStep = %s", decision.Step)
	}
	if len(decision.ToolCalls) != 1 || decision.ToolCalls[0].ID != "c2" {
		t.Errorf("decision tool calls = %+v", decision.ToolCalls)
	}
}
