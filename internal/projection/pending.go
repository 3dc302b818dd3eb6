package projection

import "github.com/zcox/messagedb-agent/internal/domain/event"

// PendingToolCalls returns the tool calls of the most recent
// LLMResponseReceived that have not yet been resolved by a matching
// ToolExecutionCompleted or ToolExecutionFailed after that response.
// Resolution is matched on the tool_call_id metadata of the lifecycle
// events. Returns nil when no calls remain.
//
// This is the tie-breaker that pulls the state machine back to tool
// execution after a crash mid-step: requested-but-unresolved calls stay
// pending until their completion or failure lands in the stream.
func PendingToolCalls(events []event.Event) []event.ToolCall {
	response, idx := lastOfKind(events, event.KindLLMResponseReceived)
	if idx < 0 {
		return nil
	}

	calls := event.DecodeToolCalls(response)
	if len(calls) == 0 {
		return nil
	}

	resolved := make(map[string]bool)
	for _, ev := range events[idx+1:] {
		switch ev.Kind {
		case event.KindToolExecutionCompleted, event.KindToolExecutionFailed:
			if id := event.ToolCallID(ev); id != "" {
				resolved[id] = true
			}
		}
	}

	var pending []event.ToolCall
	for _, tc := range calls {
		if !resolved[tc.ID] {
			pending = append(pending, tc)
		}
	}
	return pending
}
