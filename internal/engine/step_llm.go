package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/zcox/messagedb-agent/internal/adapter/otelx"
	"github.com/zcox/messagedb-agent/internal/domain/event"
	"github.com/zcox/messagedb-agent/internal/llm"
	"github.com/zcox/messagedb-agent/internal/projection"
	"github.com/zcox/messagedb-agent/internal/tool"
)

// executeLLMStep projects context, calls the model with retries, and
// appends either LLMResponseReceived or — after the budget is spent —
// LLMCallFailed. Retries are ephemeral: nothing is written between
// attempts. Returns ok=false when the failure event was written; a non-nil
// error means the store itself failed and the pass must abort.
func (e *Engine) executeLLMStep(ctx context.Context, streamName string, events []event.Event) (bool, error) {
	ctx, span := otelx.StartLLMSpan(ctx, e.client.ModelName())
	defer span.End()

	messages := projection.LLMContext(events)
	declarations := tool.Declarations(e.registry)
	head := events[len(events)-1].Position

	response, attempts, callErr := e.callWithRetries(ctx, messages, declarations)
	if callErr != nil {
		retryCount := attempts - 1
		if retryCount < 0 {
			retryCount = 0
		}
		failure, err := event.NewLLMFailure(callErr.Error(), retryCount)
		if err != nil {
			return false, err
		}
		if _, err := e.store.Append(ctx, streamName, event.KindLLMCallFailed, failure.Data(),
			map[string]any{"attempts": attempts}, head); err != nil {
			return false, fmt.Errorf("write LLMCallFailed: %w", err)
		}
		if e.metrics != nil {
			e.metrics.LLMFailures.Add(ctx, 1)
		}
		return false, nil
	}

	calls := make([]event.ToolCall, 0, len(response.ToolCalls))
	for _, tc := range response.ToolCalls {
		calls = append(calls, event.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
	}

	payload, err := event.NewLLMResponse(response.Text, calls, response.ModelName, event.TokenUsage{
		Input:  response.Usage.Input,
		Output: response.Usage.Output,
		Total:  response.Usage.Total,
	})
	if err != nil {
		return false, fmt.Errorf("invalid llm response: %w", err)
	}

	if _, err := e.store.Append(ctx, streamName, event.KindLLMResponseReceived, payload.Data(),
		map[string]any{"attempts": attempts}, head); err != nil {
		return false, fmt.Errorf("write LLMResponseReceived: %w", err)
	}

	if e.metrics != nil {
		e.metrics.LLMCalls.Add(ctx, 1)
		e.metrics.TokensUsed.Add(ctx, int64(response.Usage.Total))
	}
	return true, nil
}

// callWithRetries attempts the model call up to maxRetries+1 times with
// exponential backoff, retrying only the known-retriable error taxonomy.
// Returns the total attempt count alongside the outcome.
func (e *Engine) callWithRetries(ctx context.Context, messages []llm.Message, declarations []llm.ToolDeclaration) (*llm.Response, int, error) {
	var response *llm.Response
	attempts := 0

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 250 * time.Millisecond
	policy.MaxInterval = 5 * time.Second

	operation := func() error {
		attempts++
		resp, err := e.client.Call(ctx, messages, declarations, e.systemPrompt)
		if err != nil {
			if llm.Retriable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		response = resp
		return nil
	}

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(e.maxRetries)), ctx))
	if err != nil {
		return nil, attempts, err
	}
	return response, attempts, nil
}
