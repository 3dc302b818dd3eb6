// Package openaichat implements the llm.Client contract against any
// chat-completions compatible endpoint (OpenAI, LiteLLM proxies, local
// gateways). Conversation turns interleave user/assistant/tool roles; tool
// calls ride on assistant messages and results come back as "tool" role
// messages referencing the call id.
package openaichat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zcox/messagedb-agent/internal/config"
	"github.com/zcox/messagedb-agent/internal/llm"
	"github.com/zcox/messagedb-agent/internal/resilience"
)

// Register wires this adapter into the llm factory. It is the fallback
// provider: any model with a configured base URL that no earlier provider
// claimed is served as chat-completions.
func Register() {
	llm.RegisterProvider("openaichat",
		func(string) bool { return true },
		func(cfg config.LLM) (llm.Client, error) {
			if cfg.BaseURL == "" {
				return nil, fmt.Errorf("LLM_BASE_URL is required for model %q", cfg.ModelName)
			}
			return NewClient(cfg.BaseURL, cfg.APIKey, cfg.ModelName), nil
		})
}

// Client talks to a chat-completions endpoint over plain HTTP.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

var _ llm.Client = (*Client)(nil)

// NewClient creates an adapter for the given endpoint and model.
func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// ModelName reports the configured model identifier.
func (c *Client) ModelName() string { return c.model }

// --- wire types ---

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	Name       string         `json:"name,omitempty"`
}

type wireToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function wireFunction `json:"function"`
}

type wireFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON-encoded argument object
}

type wireTool struct {
	Type     string       `json:"type"`
	Function wireToolSpec `json:"function"`
}

type wireToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Tools    []wireTool    `json:"tools,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message wireMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Call sends the conversation and normalizes the first choice into the
// provider-neutral response.
func (c *Client) Call(ctx context.Context, messages []llm.Message, tools []llm.ToolDeclaration, systemPrompt string) (*llm.Response, error) {
	req := chatRequest{Model: c.model}

	if systemPrompt != "" {
		req.Messages = append(req.Messages, wireMessage{Role: "system", Content: systemPrompt})
	}
	for _, msg := range messages {
		wire, err := encodeMessage(msg)
		if err != nil {
			return nil, err
		}
		req.Messages = append(req.Messages, wire)
	}
	for _, decl := range tools {
		req.Tools = append(req.Tools, wireTool{
			Type: "function",
			Function: wireToolSpec{
				Name:        decl.Name,
				Description: decl.Description,
				Parameters:  decl.Parameters,
			},
		})
	}

	body, err := c.doRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &llm.ResponseError{Reason: "unparseable chat completion body", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return nil, &llm.ResponseError{Reason: "chat completion returned no choices"}
	}

	return c.normalize(parsed)
}

func encodeMessage(msg llm.Message) (wireMessage, error) {
	if err := msg.Validate(); err != nil {
		return wireMessage{}, &llm.ResponseError{Reason: "invalid context message", Err: err}
	}

	wire := wireMessage{Role: msg.Role, Content: msg.Text}
	if msg.Role == llm.RoleTool {
		wire.ToolCallID = msg.ToolCallID
		wire.Name = msg.ToolName
		return wire, nil
	}

	for _, tc := range msg.ToolCalls {
		args := tc.Arguments
		if args == nil {
			args = map[string]any{}
		}
		encoded, err := json.Marshal(args)
		if err != nil {
			return wireMessage{}, &llm.ResponseError{Reason: "unencodable tool call arguments", Err: err}
		}
		wire.ToolCalls = append(wire.ToolCalls, wireToolCall{
			ID:       tc.ID,
			Type:     "function",
			Function: wireFunction{Name: tc.Name, Arguments: string(encoded)},
		})
	}
	return wire, nil
}

func (c *Client) normalize(parsed chatResponse) (*llm.Response, error) {
	choice := parsed.Choices[0].Message

	calls := make([]llm.ToolCall, 0, len(choice.ToolCalls))
	for _, tc := range choice.ToolCalls {
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return nil, &llm.ResponseError{Reason: fmt.Sprintf("unparseable arguments for tool call %s", tc.ID), Err: err}
			}
		}
		calls = append(calls, llm.ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}

	model := parsed.Model
	if model == "" {
		model = c.model
	}

	return llm.NewResponse(choice.Content, calls, model, llm.Usage{
		Input:  parsed.Usage.PromptTokens,
		Output: parsed.Usage.CompletionTokens,
		Total:  parsed.Usage.TotalTokens,
	})
}

func (c *Client) doRequest(ctx context.Context, payload chatRequest) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	var result []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
		if err != nil {
			return &llm.APIError{Reason: "create request", Err: err}
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &llm.APIError{Reason: "http request failed", Err: err}
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &llm.APIError{Reason: "read response body", Err: err}
		}
		if resp.StatusCode >= 400 {
			return &llm.APIError{Status: resp.StatusCode, Reason: strings.TrimSpace(string(data))}
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call); err != nil {
			if err == resilience.ErrCircuitOpen {
				return nil, &llm.APIError{Reason: "circuit breaker open", Err: err}
			}
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
