// Package llm defines the provider-neutral model contract: the message and
// tool-declaration types projections produce, the response type adapters
// normalize into, and the error taxonomy the engine retries on.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments map[string]any
}

// Message is one turn of LLM context, produced by the context projection.
// Tool result messages carry the originating ToolCallID and ToolName.
type Message struct {
	Role       string
	Text       string
	ToolCalls  []ToolCall
	ToolCallID string
	ToolName   string
}

// Validate checks the role/content invariants adapters rely on.
func (m Message) Validate() error {
	switch m.Role {
	case RoleUser, RoleAssistant, RoleTool:
	default:
		return fmt.Errorf("invalid message role %q", m.Role)
	}
	if m.Text == "" && len(m.ToolCalls) == 0 {
		return fmt.Errorf("message must have text or tool calls")
	}
	if m.Role == RoleTool && (m.ToolCallID == "" || m.ToolName == "") {
		return fmt.Errorf("tool message must carry tool_call_id and tool_name")
	}
	return nil
}

// ToolDeclaration describes one callable tool to the model. Parameters is a
// JSON-schema object: {"type":"object","properties":{...},"required":[...]}.
type ToolDeclaration struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Usage is the token accounting of one call.
type Usage struct {
	Input  int
	Output int
	Total  int
}

// Response is the normalized result of one model call.
type Response struct {
	Text      string
	ToolCalls []ToolCall
	ModelName string
	Usage     Usage
}

// NewResponse validates and builds a Response. A response with neither text
// nor tool calls is malformed provider output.
func NewResponse(text string, calls []ToolCall, model string, usage Usage) (*Response, error) {
	if strings.TrimSpace(model) == "" {
		return nil, &ResponseError{Reason: "missing model name"}
	}
	if strings.TrimSpace(text) == "" && len(calls) == 0 {
		return nil, &ResponseError{Reason: "empty response: no text and no tool calls"}
	}
	return &Response{Text: text, ToolCalls: calls, ModelName: model, Usage: usage}, nil
}

// Client is the provider-neutral model interface. Implementations normalize
// their wire formats into Response and the package error taxonomy.
type Client interface {
	// Call sends the conversation to the model. tools may be nil when the
	// registry is empty; systemPrompt may be empty.
	Call(ctx context.Context, messages []Message, tools []ToolDeclaration, systemPrompt string) (*Response, error)

	// ModelName reports the configured model identifier.
	ModelName() string
}
