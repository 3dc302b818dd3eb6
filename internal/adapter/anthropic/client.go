// Package anthropic implements the llm.Client contract against the
// Anthropic Messages API, which separates tool-use and tool-result content
// blocks from text blocks instead of interleaving tool-role turns.
package anthropic

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

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
	maxTokens      = 4096
)

// Register wires this adapter into the llm factory for claude-* models.
func Register() {
	llm.RegisterProvider("anthropic",
		llm.MatchPrefix("claude"),
		func(cfg config.LLM) (llm.Client, error) {
			baseURL := cfg.BaseURL
			if baseURL == "" {
				baseURL = defaultBaseURL
			}
			if cfg.APIKey == "" {
				return nil, fmt.Errorf("LLM_API_KEY is required for model %q", cfg.ModelName)
			}
			return NewClient(baseURL, cfg.APIKey, cfg.ModelName), nil
		})
}

// Client talks to the Messages API over plain HTTP.
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

type contentBlock struct {
	Type string `json:"type"`

	// type == "text"
	Text string `json:"text,omitempty"`

	// type == "tool_use"
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// type == "tool_result"
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type wireMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type wireTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []wireMessage `json:"messages"`
	Tools     []wireTool    `json:"tools,omitempty"`
}

type messagesResponse struct {
	Model   string         `json:"model"`
	Content []contentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Call sends the conversation and normalizes the content blocks into the
// provider-neutral response.
func (c *Client) Call(ctx context.Context, messages []llm.Message, tools []llm.ToolDeclaration, systemPrompt string) (*llm.Response, error) {
	req := messagesRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
	}

	wire, err := encodeMessages(messages)
	if err != nil {
		return nil, err
	}
	req.Messages = wire

	for _, decl := range tools {
		req.Tools = append(req.Tools, wireTool{
			Name:        decl.Name,
			Description: decl.Description,
			InputSchema: decl.Parameters,
		})
	}

	body, err := c.doRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	var parsed messagesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &llm.ResponseError{Reason: "unparseable messages body", Err: err}
	}

	return c.normalize(parsed)
}

// encodeMessages converts neutral turns to the Messages API shape: tool
// results become user-role tool_result blocks, assistant tool calls become
// tool_use blocks alongside any text.
func encodeMessages(messages []llm.Message) ([]wireMessage, error) {
	wire := make([]wireMessage, 0, len(messages))
	for _, msg := range messages {
		if err := msg.Validate(); err != nil {
			return nil, &llm.ResponseError{Reason: "invalid context message", Err: err}
		}

		switch msg.Role {
		case llm.RoleUser:
			wire = append(wire, wireMessage{
				Role:    "user",
				Content: []contentBlock{{Type: "text", Text: msg.Text}},
			})

		case llm.RoleAssistant:
			var blocks []contentBlock
			if msg.Text != "" {
				blocks = append(blocks, contentBlock{Type: "text", Text: msg.Text})
			}
			for _, tc := range msg.ToolCalls {
				input := tc.Arguments
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, contentBlock{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: input})
			}
			wire = append(wire, wireMessage{Role: "assistant", Content: blocks})

		case llm.RoleTool:
			wire = append(wire, wireMessage{
				Role: "user",
				Content: []contentBlock{{
					Type:      "tool_result",
					ToolUseID: msg.ToolCallID,
					Content:   msg.Text,
				}},
			})
		}
	}
	return wire, nil
}

func (c *Client) normalize(parsed messagesResponse) (*llm.Response, error) {
	var text strings.Builder
	var calls []llm.ToolCall

	for _, block := range parsed.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			if block.ID == "" || block.Name == "" {
				return nil, &llm.ResponseError{Reason: "tool_use block missing id or name"}
			}
			calls = append(calls, llm.ToolCall{ID: block.ID, Name: block.Name, Arguments: block.Input})
		default:
			// Unknown block kinds (thinking, citations, ...) are skipped;
			// the text and tool_use blocks carry everything we persist.
		}
	}

	model := parsed.Model
	if model == "" {
		model = c.model
	}

	usage := llm.Usage{
		Input:  parsed.Usage.InputTokens,
		Output: parsed.Usage.OutputTokens,
		Total:  parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
	}
	return llm.NewResponse(text.String(), calls, model, usage)
}

func (c *Client) doRequest(ctx context.Context, payload messagesRequest) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal messages request: %w", err)
	}

	var result []byte
	call := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
		if err != nil {
			return &llm.APIError{Reason: "create request", Err: err}
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", apiVersion)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &llm.APIError{Reason: "http request failed", Err: err}
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return &llm.APIError{Reason: "read response body", Err: err}
		}
		if resp.StatusCode != http.StatusOK {
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
