package event

// Decoding helpers for reading typed payloads back out of envelopes. They are
// tolerant of absent fields so that readers keep working across old events
// and foreign producers; the projections rely on that.

// DecodeToolCalls extracts the tool_calls list from an LLMResponseReceived
// envelope. Malformed entries are skipped rather than failing the decode.
func DecodeToolCalls(e Event) []ToolCall {
	raw, ok := e.Data["tool_calls"].([]any)
	if !ok {
		return nil
	}
	calls := make([]ToolCall, 0, len(raw))
	for _, entry := range raw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		id, _ := m["id"].(string)
		name, _ := m["name"].(string)
		if id == "" || name == "" {
			continue
		}
		args, _ := m["arguments"].(map[string]any)
		calls = append(calls, ToolCall{ID: id, Name: name, Arguments: args})
	}
	return calls
}

// DecodeUserMessage returns the message text of a UserMessageAdded envelope.
func DecodeUserMessage(e Event) string {
	return e.stringField("message")
}

// DecodeResponseText returns the response_text of an LLMResponseReceived
// envelope.
func DecodeResponseText(e Event) string {
	return e.stringField("response_text")
}

// DecodeTokenUsage returns the token_usage of an LLMResponseReceived
// envelope, zero-valued when absent.
func DecodeTokenUsage(e Event) TokenUsage {
	m, ok := e.Data["token_usage"].(map[string]any)
	if !ok {
		return TokenUsage{}
	}
	return TokenUsage{
		Input:  intField(m, "input"),
		Output: intField(m, "output"),
		Total:  intField(m, "total"),
	}
}

// DecodeToolName returns the tool_name field of tool lifecycle envelopes.
func DecodeToolName(e Event) string {
	return e.stringField("tool_name")
}

// DecodeToolResult returns the result of a ToolExecutionCompleted envelope.
func DecodeToolResult(e Event) any {
	return e.Data["result"]
}

// DecodeErrorMessage returns error_message from failure envelopes.
func DecodeErrorMessage(e Event) string {
	return e.stringField("error_message")
}

// DecodeCompletionReason returns completion_reason from SessionCompleted.
func DecodeCompletionReason(e Event) string {
	return e.stringField("completion_reason")
}

// ToolCallID returns the tool_call_id metadata linking a tool lifecycle
// event back to the call inside its originating LLM response.
func ToolCallID(e Event) string {
	return e.MetadataString("tool_call_id")
}

// intField reads an int out of decoded JSON, where numbers arrive as
// float64.
func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}
