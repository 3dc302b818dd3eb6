package projection_test

import (
	"testing"

	"github.com/zcox/messagedb-agent/internal/projection"
)

func TestPendingToolCallsAllUnresolved(t *testing.T) {
	f := newFixture().
		started().
		userMessage("go").
		llmToolCalls(
			call("c1", "get_current_time", nil),
			call("c2", "echo", map[string]any{"message": "hi"}),
		)

	pending := projection.PendingToolCalls(f.events)
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if pending[0].ID != "c1" || pending[1].ID != "c2" {
		t.Errorf("pending order = %+v", pending)
	}
}

func TestPendingToolCallsFiltersResolved(t *testing.T) {
	f := newFixture().
		started().
		userMessage("go").
		llmToolCalls(call("c1", "get_current_time", nil), call("c2", "echo", nil)).
		toolRequested("c1", "get_current_time").
		toolCompleted("c1", "get_current_time", "T")

	pending := projection.PendingToolCalls(f.events)
	if len(pending) != 1 || pending[0].ID != "c2" {
		t.Fatalf("pending = %+v, want just c2", pending)
	}
}

func TestPendingToolCallsFailureResolves(t *testing.T) {
	f := newFixture().
		started().
		userMessage("go").
		llmToolCalls(call("c1", "calculate", nil)).
		toolFailed("c1", "calculate", "boom")

	if pending := projection.PendingToolCalls(f.events); len(pending) != 0 {
		t.Errorf("pending = %+v, want none", pending)
	}
}

// Completions from an earlier tool chain must not resolve calls of a later
// response that reuses ids.
func TestPendingToolCallsScopedToLatestResponse(t *testing.T) {
	f := newFixture().
		started().
		userMessage("go").
		llmToolCalls(call("c1", "echo", nil)).
		toolCompleted("c1", "echo", "x").
		llmToolCalls(call("c1", "echo", nil))

	pending := projection.PendingToolCalls(f.events)
	if len(pending) != 1 || pending[0].ID != "c1" {
		t.Fatalf("pending = %+v, want the later c1", pending)
	}
}

func TestPendingToolCallsNoResponse(t *testing.T) {
	f := newFixture().started().userMessage("hi")
	if pending := projection.PendingToolCalls(f.events); pending != nil {
		t.Errorf("pending = %+v, want nil", pending)
	}
	if pending := projection.PendingToolCalls(nil); pending != nil {
		t.Errorf("pending on empty stream = %+v, want nil", pending)
	}
}
