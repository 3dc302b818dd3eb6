package projection_test

import (
	"testing"

	"github.com/zcox/messagedb-agent/internal/projection"
)

func TestStateActiveSession(t *testing.T) {
	f := newFixture().
		started().
		userMessage("hi").
		llmToolCalls(call("c1", "echo", nil)).
		toolCompleted("c1", "echo", "x").
		llmText("done")

	state := projection.State(f.events)

	if state.ThreadID != "thread123" {
		t.Errorf("thread id = %q", state.ThreadID)
	}
	if state.Status != projection.StatusActive {
		t.Errorf("status = %s, want active", state.Status)
	}
	if state.MessageCount != 1 || state.LLMCallCount != 2 || state.ToolCallCount != 1 || state.ErrorCount != 0 {
		t.Errorf("counts = %+v", state)
	}
	if state.TokensUsed != 30 {
		t.Errorf("tokens = %d, want 30", state.TokensUsed)
	}
	if state.StartedAt == nil || state.LastActivity == nil || state.EndedAt != nil {
		t.Errorf("times = started %v last %v ended %v", state.StartedAt, state.LastActivity, state.EndedAt)
	}
}

func TestStateStatusTransitions(t *testing.T) {
	cases := []struct {
		name string
		f    *fixture
		want projection.Status
	}{
		{"success completion", newFixture().started().userMessage("x").llmText("y").completed("success"), projection.StatusCompleted},
		{"timeout completion", newFixture().started().userMessage("x").completed("timeout"), projection.StatusFailed},
		{"failure completion", newFixture().started().userMessage("x").completed("failure"), projection.StatusFailed},
		{"user terminated completion", newFixture().started().userMessage("x").completed("user_terminated"), projection.StatusTerminated},
		{"termination requested only", newFixture().started().userMessage("x").terminationRequested(), projection.StatusTerminated},
		{"errors alone stay active", newFixture().started().userMessage("x").llmFailed("boom", 2), projection.StatusActive},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := projection.State(tc.f.events).Status; got != tc.want {
				t.Errorf("status = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestStateCountsErrors(t *testing.T) {
	f := newFixture().
		started().
		userMessage("x").
		llmFailed("rate limited", 2).
		llmToolCalls(call("c1", "calculate", nil)).
		toolFailed("c1", "calculate", "division by zero")

	state := projection.State(f.events)
	if state.ErrorCount != 2 {
		t.Errorf("error count = %d, want 2", state.ErrorCount)
	}
}

func TestStateEmptyStream(t *testing.T) {
	state := projection.State(nil)
	if state.Status != projection.StatusActive {
		t.Errorf("status = %s", state.Status)
	}
	if state.Duration() != 0 {
		t.Errorf("duration = %v", state.Duration())
	}
}

func TestStateDuration(t *testing.T) {
	f := newFixture().started().userMessage("x").llmText("y").completed("success")
	state := projection.State(f.events)
	// The fixture spaces events one second apart.
	if got := state.Duration().Seconds(); got != 3 {
		t.Errorf("duration = %vs, want 3s", got)
	}
}
