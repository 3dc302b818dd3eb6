package projection_test

import (
	"reflect"
	"testing"

	"github.com/zcox/messagedb-agent/internal/llm"
	"github.com/zcox/messagedb-agent/internal/projection"
)

func TestLLMContextBasicConversation(t *testing.T) {
	f := newFixture().started().userMessage("Hello").llmText("Hi!")

	messages := projection.LLMContext(f.events)

	want := []llm.Message{
		{Role: llm.RoleUser, Text: "Hello"},
		{Role: llm.RoleAssistant, Text: "Hi!", ToolCalls: []llm.ToolCall{}},
	}
	if !reflect.DeepEqual(messages, want) {
		t.Errorf("context = %+v, want %+v", messages, want)
	}
}

func TestLLMContextToolChain(t *testing.T) {
	f := newFixture().
		started().
		userMessage("what time is it?").
		llmToolCalls(call("c1", "get_current_time", nil)).
		toolRequested("c1", "get_current_time").
		toolCompleted("c1", "get_current_time", "2025-10-19T10:00:00Z").
		llmText("It is 10:00.")

	messages := projection.LLMContext(f.events)

	if len(messages) != 4 {
		t.Fatalf("message count = %d, want 4 (requested events are not context)", len(messages))
	}

	assistant := messages[1]
	if assistant.Role != llm.RoleAssistant || len(assistant.ToolCalls) != 1 {
		t.Fatalf("assistant message = %+v", assistant)
	}
	if assistant.ToolCalls[0].ID != "c1" || assistant.ToolCalls[0].Name != "get_current_time" {
		t.Errorf("tool call stub = %+v", assistant.ToolCalls[0])
	}

	result := messages[2]
	if result.Role != llm.RoleTool || result.ToolCallID != "c1" || result.ToolName != "get_current_time" {
		t.Fatalf("tool message = %+v", result)
	}
	if result.Text != "2025-10-19T10:00:00Z" {
		t.Errorf("tool result text = %q", result.Text)
	}
}

func TestLLMContextSerializesStructuredResults(t *testing.T) {
	f := newFixture().
		started().
		userMessage("weather?").
		llmToolCalls(call("c1", "get_weather", map[string]any{"city": "NYC"})).
		toolCompleted("c1", "get_weather", map[string]any{"temp": 72.0})

	messages := projection.LLMContext(f.events)
	last := messages[len(messages)-1]
	if last.Text != `{"temp":72}` {
		t.Errorf("serialized result = %q", last.Text)
	}
}

func TestLLMContextIncludesToolFailures(t *testing.T) {
	f := newFixture().
		started().
		userMessage("compute").
		llmToolCalls(call("c1", "calculate", map[string]any{"expression": "1/0"})).
		toolFailed("c1", "calculate", "division by zero")

	messages := projection.LLMContext(f.events)
	last := messages[len(messages)-1]
	if last.Role != llm.RoleTool || last.ToolCallID != "c1" {
		t.Fatalf("failure message = %+v", last)
	}
	if last.Text != "Error: division by zero" {
		t.Errorf("failure text = %q", last.Text)
	}
}

func TestLLMContextIgnoresLifecycleEvents(t *testing.T) {
	f := newFixture().started().userMessage("hi").llmText("hello").completed("success")

	messages := projection.LLMContext(f.events)
	if len(messages) != 2 {
		t.Errorf("message count = %d, want 2", len(messages))
	}
}

// Projections must be pure: same input, same output.
func TestLLMContextDeterministic(t *testing.T) {
	f := newFixture().
		started().
		userMessage("hi").
		llmToolCalls(call("c1", "echo", map[string]any{"message": "x"})).
		toolCompleted("c1", "echo", "x")

	first := projection.LLMContext(f.events)
	second := projection.LLMContext(f.events)
	if !reflect.DeepEqual(first, second) {
		t.Error("projection is not deterministic")
	}
}

func TestLastUserMessage(t *testing.T) {
	f := newFixture().started().userMessage("first").llmText("ok").userMessage("second")
	if got := projection.LastUserMessage(f.events); got != "second" {
		t.Errorf("LastUserMessage = %q", got)
	}
	if got := projection.LastUserMessage(nil); got != "" {
		t.Errorf("LastUserMessage(empty) = %q", got)
	}
}
