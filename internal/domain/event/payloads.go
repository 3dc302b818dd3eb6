package event

import (
	"fmt"
	"strings"
	"time"
)

// Completion reasons accepted on SessionCompleted.
const (
	ReasonSuccess        = "success"
	ReasonFailure        = "failure"
	ReasonTimeout        = "timeout"
	ReasonUserTerminated = "user_terminated"
)

// ToolCall is one tool invocation requested inside an LLMResponseReceived
// payload. The ID is unique within its response and links the request to the
// completion or failure event via metadata.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// TokenUsage is the token accounting reported by the model.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// SessionStarted is the payload of the first event on every stream.
type SessionStarted struct {
	ThreadID       string
	InitialContext map[string]any
}

func NewSessionStarted(threadID string) (SessionStarted, error) {
	if strings.TrimSpace(threadID) == "" {
		return SessionStarted{}, fmt.Errorf("thread id cannot be empty")
	}
	return SessionStarted{ThreadID: threadID}, nil
}

func (p SessionStarted) Data() map[string]any {
	data := map[string]any{"thread_id": p.ThreadID}
	if p.InitialContext != nil {
		data["initial_context"] = p.InitialContext
	}
	return data
}

// UserMessage is the payload of UserMessageAdded.
type UserMessage struct {
	Message   string
	Timestamp string
}

func NewUserMessage(message string, at time.Time) (UserMessage, error) {
	if strings.TrimSpace(message) == "" {
		return UserMessage{}, fmt.Errorf("user message cannot be empty")
	}
	return UserMessage{Message: message, Timestamp: at.UTC().Format(time.RFC3339Nano)}, nil
}

func (p UserMessage) Data() map[string]any {
	return map[string]any{"message": p.Message, "timestamp": p.Timestamp}
}

// LLMResponse is the payload of LLMResponseReceived. At least one of
// ResponseText or ToolCalls must be non-empty.
type LLMResponse struct {
	ResponseText string
	ToolCalls    []ToolCall
	ModelName    string
	TokenUsage   TokenUsage
}

func NewLLMResponse(text string, calls []ToolCall, model string, usage TokenUsage) (LLMResponse, error) {
	if strings.TrimSpace(model) == "" {
		return LLMResponse{}, fmt.Errorf("model name cannot be empty")
	}
	if strings.TrimSpace(text) == "" && len(calls) == 0 {
		return LLMResponse{}, fmt.Errorf("llm response must carry text or tool calls")
	}
	for i, tc := range calls {
		if tc.ID == "" || tc.Name == "" {
			return LLMResponse{}, fmt.Errorf("tool call %d must have id and name", i)
		}
	}
	return LLMResponse{ResponseText: text, ToolCalls: calls, ModelName: model, TokenUsage: usage}, nil
}

func (p LLMResponse) Data() map[string]any {
	calls := make([]any, 0, len(p.ToolCalls))
	for _, tc := range p.ToolCalls {
		args := tc.Arguments
		if args == nil {
			args = map[string]any{}
		}
		calls = append(calls, map[string]any{"id": tc.ID, "name": tc.Name, "arguments": args})
	}
	return map[string]any{
		"response_text": p.ResponseText,
		"tool_calls":    calls,
		"model_name":    p.ModelName,
		"token_usage": map[string]any{
			"input":  p.TokenUsage.Input,
			"output": p.TokenUsage.Output,
			"total":  p.TokenUsage.Total,
		},
	}
}

// LLMFailure is the payload of LLMCallFailed.
type LLMFailure struct {
	ErrorMessage string
	RetryCount   int
}

func NewLLMFailure(message string, retries int) (LLMFailure, error) {
	if retries < 0 {
		return LLMFailure{}, fmt.Errorf("retry count must be >= 0, got %d", retries)
	}
	return LLMFailure{ErrorMessage: message, RetryCount: retries}, nil
}

func (p LLMFailure) Data() map[string]any {
	return map[string]any{"error_message": p.ErrorMessage, "retry_count": p.RetryCount}
}

// ToolRequest is the payload of ToolExecutionRequested.
type ToolRequest struct {
	ToolName  string
	Arguments map[string]any
}

func NewToolRequest(name string, args map[string]any) (ToolRequest, error) {
	if strings.TrimSpace(name) == "" {
		return ToolRequest{}, fmt.Errorf("tool name cannot be empty")
	}
	if args == nil {
		args = map[string]any{}
	}
	return ToolRequest{ToolName: name, Arguments: args}, nil
}

func (p ToolRequest) Data() map[string]any {
	return map[string]any{"tool_name": p.ToolName, "arguments": p.Arguments}
}

// ToolCompletion is the payload of ToolExecutionCompleted.
type ToolCompletion struct {
	ToolName        string
	Result          any
	ExecutionTimeMS float64
}

func NewToolCompletion(name string, result any, elapsedMS float64) (ToolCompletion, error) {
	if strings.TrimSpace(name) == "" {
		return ToolCompletion{}, fmt.Errorf("tool name cannot be empty")
	}
	if elapsedMS < 0 {
		return ToolCompletion{}, fmt.Errorf("execution time must be >= 0, got %v", elapsedMS)
	}
	return ToolCompletion{ToolName: name, Result: result, ExecutionTimeMS: elapsedMS}, nil
}

func (p ToolCompletion) Data() map[string]any {
	return map[string]any{
		"tool_name":         p.ToolName,
		"result":            p.Result,
		"execution_time_ms": p.ExecutionTimeMS,
	}
}

// ToolFailure is the payload of ToolExecutionFailed.
type ToolFailure struct {
	ToolName     string
	ErrorMessage string
	RetryCount   int
}

func NewToolFailure(name, message string, retries int) (ToolFailure, error) {
	if strings.TrimSpace(name) == "" {
		return ToolFailure{}, fmt.Errorf("tool name cannot be empty")
	}
	if retries < 0 {
		return ToolFailure{}, fmt.Errorf("retry count must be >= 0, got %d", retries)
	}
	return ToolFailure{ToolName: name, ErrorMessage: message, RetryCount: retries}, nil
}

func (p ToolFailure) Data() map[string]any {
	return map[string]any{
		"tool_name":     p.ToolName,
		"error_message": p.ErrorMessage,
		"retry_count":   p.RetryCount,
	}
}

// ToolApproval is the payload of ToolExecutionApproved.
type ToolApproval struct {
	ToolName   string
	ApprovedBy string
}

func (p ToolApproval) Data() map[string]any {
	return map[string]any{"tool_name": p.ToolName, "approved_by": p.ApprovedBy}
}

// ToolRejection is the payload of ToolExecutionRejected.
type ToolRejection struct {
	ToolName   string
	RejectedBy string
	Reason     string
}

func (p ToolRejection) Data() map[string]any {
	return map[string]any{"tool_name": p.ToolName, "rejected_by": p.RejectedBy, "reason": p.Reason}
}

// TerminationRequest is the payload of SessionTerminationRequested.
type TerminationRequest struct {
	Reason string
}

func (p TerminationRequest) Data() map[string]any {
	if p.Reason == "" {
		return map[string]any{}
	}
	return map[string]any{"reason": p.Reason}
}

// SessionCompletion is the payload of the terminal SessionCompleted event.
type SessionCompletion struct {
	CompletionReason string
}

func NewSessionCompletion(reason string) (SessionCompletion, error) {
	switch reason {
	case ReasonSuccess, ReasonFailure, ReasonTimeout, ReasonUserTerminated:
		return SessionCompletion{CompletionReason: reason}, nil
	default:
		return SessionCompletion{}, fmt.Errorf("invalid completion reason %q", reason)
	}
}

func (p SessionCompletion) Data() map[string]any {
	return map[string]any{"completion_reason": p.CompletionReason}
}
