// Package llmtest provides a deterministic scripted model client for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/zcox/messagedb-agent/internal/llm"
)

// Turn configures one model response (or error) in a scripted sequence.
type Turn struct {
	Response *llm.Response
	Err      error
}

// Scripted replays a fixed sequence of turns, one per Call. It records the
// requests it receives so tests can assert on the projected context.
type Scripted struct {
	mu    sync.Mutex
	index int
	turns []Turn
	model string

	// Calls holds the context passed to each Call, in order.
	Calls [][]llm.Message
}

var _ llm.Client = (*Scripted)(nil)

// NewScripted builds a scripted client that identifies as modelName.
func NewScripted(modelName string, turns ...Turn) *Scripted {
	cloned := make([]Turn, len(turns))
	copy(cloned, turns)
	return &Scripted{turns: cloned, model: modelName}
}

// Text is a convenience turn: a plain text response with no tool calls.
func Text(text string) Turn {
	return Turn{Response: &llm.Response{Text: text, ModelName: "scripted", Usage: llm.Usage{Input: 10, Output: 5, Total: 15}}}
}

// Tools is a convenience turn: a response carrying only tool calls.
func Tools(calls ...llm.ToolCall) Turn {
	return Turn{Response: &llm.Response{ToolCalls: calls, ModelName: "scripted", Usage: llm.Usage{Input: 10, Output: 5, Total: 15}}}
}

// Fail is a convenience turn: the call errors.
func Fail(err error) Turn {
	return Turn{Err: err}
}

func (s *Scripted) Call(_ context.Context, messages []llm.Message, _ []llm.ToolDeclaration, _ string) (*llm.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Calls = append(s.Calls, messages)

	if s.index >= len(s.turns) {
		return nil, fmt.Errorf("script exhausted at call %d", s.index+1)
	}
	turn := s.turns[s.index]
	s.index++

	if turn.Err != nil {
		return nil, turn.Err
	}
	resp := *turn.Response
	if resp.ModelName == "" {
		resp.ModelName = s.model
	}
	return &resp, nil
}

func (s *Scripted) ModelName() string { return s.model }
