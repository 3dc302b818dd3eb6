package projection

import "github.com/zcox/messagedb-agent/internal/domain/event"

// Step is the action the engine takes next.
type Step string

const (
	StepLLMCall       Step = "llm_call"
	StepToolExecution Step = "tool_execution"
	StepTermination   Step = "termination"
)

// Decision is the result of the next-step projection: the step plus the
// context the engine needs to execute it without re-inspecting events.
type Decision struct {
	Step      Step
	Reason    string
	ToolCalls []event.ToolCall // populated for StepToolExecution
}

// NextStep decides what the engine does next from the last event, with one
// tie-break: unresolved tool calls always pull the machine back to tool
// execution, so an interrupted tool step resumes instead of being skipped.
//
//	empty stream                          -> llm_call (forward progress)
//	UserMessageAdded                      -> llm_call
//	LLMResponseReceived, calls pending    -> tool_execution
//	LLMResponseReceived, no calls pending -> termination (turn complete)
//	ToolExecution{Completed,Failed}, more pending -> tool_execution
//	ToolExecution{Completed,Failed}, none pending -> llm_call
//	LLMCallFailed                         -> llm_call (engine owns the retry budget)
//	SessionTerminationRequested/Completed -> termination
//	anything else                         -> llm_call
func NextStep(events []event.Event) Decision {
	if len(events) == 0 {
		return Decision{Step: StepLLMCall, Reason: "empty_stream"}
	}

	last := events[len(events)-1]
	switch last.Kind {
	case event.KindSessionStarted:
		return Decision{Step: StepLLMCall, Reason: "session_started"}

	case event.KindUserMessageAdded:
		return Decision{Step: StepLLMCall, Reason: "user_message_added"}

	case event.KindLLMResponseReceived:
		if pending := PendingToolCalls(events); len(pending) > 0 {
			return Decision{Step: StepToolExecution, Reason: "llm_requested_tools", ToolCalls: pending}
		}
		return Decision{Step: StepTermination, Reason: "llm_response_complete"}

	case event.KindToolExecutionCompleted, event.KindToolExecutionFailed:
		if pending := PendingToolCalls(events); len(pending) > 0 {
			return Decision{Step: StepToolExecution, Reason: "tool_calls_pending", ToolCalls: pending}
		}
		return Decision{Step: StepLLMCall, Reason: "tool_execution_finished"}

	case event.KindToolExecutionRequested, event.KindToolExecutionApproved, event.KindToolExecutionRejected:
		// A request without its completion means a pass died mid-step; the
		// pending projection carries what still needs to run.
		if pending := PendingToolCalls(events); len(pending) > 0 {
			return Decision{Step: StepToolExecution, Reason: "tool_step_interrupted", ToolCalls: pending}
		}
		return Decision{Step: StepLLMCall, Reason: "tool_execution_finished"}

	case event.KindLLMCallFailed:
		return Decision{Step: StepLLMCall, Reason: "llm_call_failed"}

	case event.KindSessionTerminationRequested:
		return Decision{Step: StepTermination, Reason: "termination_requested"}

	case event.KindSessionCompleted:
		return Decision{Step: StepTermination, Reason: "session_completed"}

	default:
		// Unknown kinds default to forward progress.
		return Decision{Step: StepLLMCall, Reason: "unknown_event_kind"}
	}
}

// ShouldTerminate reports whether the next step is termination.
func ShouldTerminate(events []event.Event) bool {
	return NextStep(events).Step == StepTermination
}
