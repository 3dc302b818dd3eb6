package projection

import (
	"time"

	"github.com/zcox/messagedb-agent/internal/domain/event"
	"github.com/zcox/messagedb-agent/internal/domain/stream"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive     Status = "active"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusTerminated Status = "terminated"
)

// SessionState is the aggregate view of one session, computed in a single
// pass over its stream.
type SessionState struct {
	ThreadID      string     `json:"thread_id"`
	Status        Status     `json:"status"`
	MessageCount  int        `json:"message_count"`
	LLMCallCount  int        `json:"llm_call_count"`
	ToolCallCount int        `json:"tool_call_count"`
	ErrorCount    int        `json:"error_count"`
	TokensUsed    int        `json:"tokens_used"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	LastActivity  *time.Time `json:"last_activity,omitempty"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
}

// State aggregates session status and statistics. Status stays active until
// a terminal event appears; a SessionCompleted reason of success marks the
// session completed, user_terminated marks it terminated, any other reason
// marks it failed, and an un-completed termination request marks it
// terminated.
func State(events []event.Event) SessionState {
	var state SessionState

	if len(events) == 0 {
		state.Status = StatusActive
		return state
	}

	if threadID, err := stream.ThreadID(events[0].StreamName); err == nil {
		state.ThreadID = threadID
	}

	last := events[len(events)-1].Time
	state.LastActivity = &last

	var completionReason string
	var completed, terminationRequested bool

	for _, ev := range events {
		switch ev.Kind {
		case event.KindSessionStarted:
			at := ev.Time
			state.StartedAt = &at
		case event.KindUserMessageAdded:
			state.MessageCount++
		case event.KindLLMResponseReceived:
			state.LLMCallCount++
			state.TokensUsed += event.DecodeTokenUsage(ev).Total
		case event.KindToolExecutionCompleted:
			state.ToolCallCount++
		case event.KindLLMCallFailed, event.KindToolExecutionFailed:
			state.ErrorCount++
		case event.KindSessionTerminationRequested:
			terminationRequested = true
		case event.KindSessionCompleted:
			completed = true
			completionReason = event.DecodeCompletionReason(ev)
			at := ev.Time
			state.EndedAt = &at
		}
	}

	switch {
	case completed && (completionReason == event.ReasonSuccess || completionReason == "completed"):
		state.Status = StatusCompleted
	case completed && completionReason == event.ReasonUserTerminated:
		state.Status = StatusTerminated
	case completed:
		state.Status = StatusFailed
	case terminationRequested:
		state.Status = StatusTerminated
	default:
		state.Status = StatusActive
	}

	return state
}

// Duration returns the session's elapsed time: start to end when finished,
// start to last activity otherwise. Zero when timing is unknown.
func (s SessionState) Duration() time.Duration {
	if s.StartedAt == nil {
		return 0
	}
	end := s.EndedAt
	if end == nil {
		end = s.LastActivity
	}
	if end == nil {
		return 0
	}
	return end.Sub(*s.StartedAt)
}
