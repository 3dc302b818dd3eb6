package projection

import (
	"encoding/json"

	"github.com/zcox/messagedb-agent/internal/domain/event"
	"github.com/zcox/messagedb-agent/internal/llm"
)

// LLMContext folds events into the chronological message sequence sent to
// the model:
//
//   - UserMessageAdded      -> user message
//   - LLMResponseReceived   -> assistant message with text and tool-call stubs
//   - ToolExecutionCompleted -> tool message with the serialized result
//   - ToolExecutionFailed    -> tool message with the error description
//
// All other kinds are ignored; malformed events are skipped rather than
// failing the projection. Tool messages recover their tool_call_id from
// event metadata so the model can pair results with its own calls.
func LLMContext(events []event.Event) []llm.Message {
	messages := make([]llm.Message, 0, len(events))
	for _, ev := range events {
		switch ev.Kind {
		case event.KindUserMessageAdded:
			if text := event.DecodeUserMessage(ev); text != "" {
				messages = append(messages, llm.Message{Role: llm.RoleUser, Text: text})
			}
		case event.KindLLMResponseReceived:
			if msg, ok := assistantMessage(ev); ok {
				messages = append(messages, msg)
			}
		case event.KindToolExecutionCompleted:
			if msg, ok := toolResultMessage(ev); ok {
				messages = append(messages, msg)
			}
		case event.KindToolExecutionFailed:
			if msg, ok := toolFailureMessage(ev); ok {
				messages = append(messages, msg)
			}
		}
	}
	return messages
}

func assistantMessage(ev event.Event) (llm.Message, bool) {
	text := event.DecodeResponseText(ev)
	calls := event.DecodeToolCalls(ev)

	stubs := make([]llm.ToolCall, 0, len(calls))
	for _, tc := range calls {
		stubs = append(stubs, llm.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
	}

	if text == "" && len(stubs) == 0 {
		return llm.Message{}, false
	}
	return llm.Message{Role: llm.RoleAssistant, Text: text, ToolCalls: stubs}, true
}

func toolResultMessage(ev event.Event) (llm.Message, bool) {
	name := event.DecodeToolName(ev)
	if name == "" {
		return llm.Message{}, false
	}

	callID := event.ToolCallID(ev)
	if callID == "" {
		// Old events without linkage metadata fall back to the tool name.
		callID = name
	}

	return llm.Message{
		Role:       llm.RoleTool,
		Text:       serializeResult(event.DecodeToolResult(ev)),
		ToolCallID: callID,
		ToolName:   name,
	}, true
}

func toolFailureMessage(ev event.Event) (llm.Message, bool) {
	name := event.DecodeToolName(ev)
	if name == "" {
		return llm.Message{}, false
	}

	callID := event.ToolCallID(ev)
	if callID == "" {
		callID = name
	}

	errText := event.DecodeErrorMessage(ev)
	if errText == "" {
		errText = "tool execution failed"
	}

	return llm.Message{
		Role:       llm.RoleTool,
		Text:       "Error: " + errText,
		ToolCallID: callID,
		ToolName:   name,
	}, true
}

// serializeResult renders a tool result for the model: strings pass
// through, everything else is JSON.
func serializeResult(result any) string {
	if s, ok := result.(string); ok {
		return s
	}
	data, err := json.Marshal(result)
	if err != nil {
		return "null"
	}
	return string(data)
}

// LastUserMessage returns the text of the most recent user message, or ""
// when none exists.
func LastUserMessage(events []event.Event) string {
	ev, idx := lastOfKind(events, event.KindUserMessageAdded)
	if idx < 0 {
		return ""
	}
	return event.DecodeUserMessage(ev)
}
