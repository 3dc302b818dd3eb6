package projection_test

import (
	"time"

	"github.com/zcox/messagedb-agent/internal/domain/event"
)

// fixture builds event sequences with contiguous positions on one stream.
type fixture struct {
	stream string
	events []event.Event
	at     time.Time
}

func newFixture() *fixture {
	return &fixture{
		stream: "agent:v0-thread123",
		at:     time.Date(2025, 10, 19, 10, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) add(kind event.Kind, data, metadata map[string]any) *fixture {
	f.at = f.at.Add(time.Second)
	f.events = append(f.events, event.Event{
		ID:             "ev",
		StreamName:     f.stream,
		Kind:           kind,
		Data:           data,
		Metadata:       metadata,
		Position:       int64(len(f.events)),
		GlobalPosition: int64(len(f.events)) + 1,
		Time:           f.at,
	})
	return f
}

func (f *fixture) started() *fixture {
	return f.add(event.KindSessionStarted, map[string]any{"thread_id": "thread123"}, nil)
}

func (f *fixture) userMessage(text string) *fixture {
	return f.add(event.KindUserMessageAdded, map[string]any{
		"message":   text,
		"timestamp": f.at.Format(time.RFC3339),
	}, nil)
}

func (f *fixture) llmText(text string) *fixture {
	return f.add(event.KindLLMResponseReceived, map[string]any{
		"response_text": text,
		"tool_calls":    []any{},
		"model_name":    "test-model",
		"token_usage":   map[string]any{"input": 10.0, "output": 5.0, "total": 15.0},
	}, nil)
}

func (f *fixture) llmToolCalls(calls ...map[string]any) *fixture {
	wrapped := make([]any, len(calls))
	for i, c := range calls {
		wrapped[i] = c
	}
	return f.add(event.KindLLMResponseReceived, map[string]any{
		"response_text": "",
		"tool_calls":    wrapped,
		"model_name":    "test-model",
		"token_usage":   map[string]any{"input": 10.0, "output": 5.0, "total": 15.0},
	}, nil)
}

func call(id, name string, args map[string]any) map[string]any {
	if args == nil {
		args = map[string]any{}
	}
	return map[string]any{"id": id, "name": name, "arguments": args}
}

func (f *fixture) toolRequested(callID, name string) *fixture {
	return f.add(event.KindToolExecutionRequested,
		map[string]any{"tool_name": name, "arguments": map[string]any{}},
		map[string]any{"tool_call_id": callID, "tool_index": 0.0})
}

func (f *fixture) toolCompleted(callID, name string, result any) *fixture {
	return f.add(event.KindToolExecutionCompleted,
		map[string]any{"tool_name": name, "result": result, "execution_time_ms": 1.5},
		map[string]any{"tool_call_id": callID, "tool_index": 0.0})
}

func (f *fixture) toolFailed(callID, name, errMsg string) *fixture {
	return f.add(event.KindToolExecutionFailed,
		map[string]any{"tool_name": name, "error_message": errMsg, "retry_count": 0.0},
		map[string]any{"tool_call_id": callID, "tool_index": 0.0})
}

func (f *fixture) llmFailed(errMsg string, retries float64) *fixture {
	return f.add(event.KindLLMCallFailed,
		map[string]any{"error_message": errMsg, "retry_count": retries}, nil)
}

func (f *fixture) completed(reason string) *fixture {
	return f.add(event.KindSessionCompleted, map[string]any{"completion_reason": reason}, nil)
}

func (f *fixture) terminationRequested() *fixture {
	return f.add(event.KindSessionTerminationRequested, map[string]any{"reason": "user_request"}, nil)
}
