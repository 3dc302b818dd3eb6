package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/zcox/messagedb-agent/internal/adapter/otelx"
	"github.com/zcox/messagedb-agent/internal/domain/event"
	"github.com/zcox/messagedb-agent/internal/projection"
	"github.com/zcox/messagedb-agent/internal/tool"
)

// executeToolStep runs every pending tool call in order. Each call leaves a
// ToolExecutionRequested event (metadata: tool_call_id, tool_index) and
// exactly one ToolExecutionCompleted or ToolExecutionFailed. The step is
// not atomic across calls: a crash leaves requests without completions and
// the pending projection resumes them on the next iteration.
func (e *Engine) executeToolStep(ctx context.Context, streamName string, events []event.Event, decision projection.Decision) error {
	head := events[len(events)-1].Position

	for index, call := range decision.ToolCalls {
		if err := ctx.Err(); err != nil {
			return err
		}

		meta := map[string]any{"tool_call_id": call.ID, "tool_index": index}
		log := e.log.With("tool", call.Name, "tool_call_id", call.ID)

		request, err := event.NewToolRequest(call.Name, call.Arguments)
		if err != nil {
			return err
		}
		head, err = e.store.Append(ctx, streamName, event.KindToolExecutionRequested, request.Data(), meta, head)
		if err != nil {
			return fmt.Errorf("write ToolExecutionRequested: %w", err)
		}

		approved, newHead, err := e.resolveApproval(ctx, streamName, call, meta, head)
		if err != nil {
			return err
		}
		head = newHead
		if !approved {
			failure, err := event.NewToolFailure(call.Name, "tool execution rejected by permission system", 0)
			if err != nil {
				return err
			}
			head, err = e.store.Append(ctx, streamName, event.KindToolExecutionFailed, failure.Data(), meta, head)
			if err != nil {
				return fmt.Errorf("write ToolExecutionFailed: %w", err)
			}
			log.Warn("tool execution rejected")
			continue
		}

		spanCtx, span := otelx.StartToolSpan(ctx, call.ID, call.Name)
		result := tool.Execute(call.Name, call.Arguments, e.registry)
		span.End()

		if e.metrics != nil {
			e.metrics.ToolCalls.Add(spanCtx, 1)
		}

		if result.Success {
			completion, err := event.NewToolCompletion(call.Name, result.Result, result.ExecutionTimeMS)
			if err != nil {
				return err
			}
			head, err = e.store.Append(ctx, streamName, event.KindToolExecutionCompleted, completion.Data(), meta, head)
			if err != nil {
				return fmt.Errorf("write ToolExecutionCompleted: %w", err)
			}
			log.Info("tool execution succeeded", "elapsed_ms", result.ExecutionTimeMS)
		} else {
			failure, err := event.NewToolFailure(call.Name, result.Error, 0)
			if err != nil {
				return err
			}
			head, err = e.store.Append(ctx, streamName, event.KindToolExecutionFailed, failure.Data(), meta, head)
			if err != nil {
				return fmt.Errorf("write ToolExecutionFailed: %w", err)
			}
			log.Warn("tool execution failed", "error", result.Error)
		}
	}

	return nil
}

// resolveApproval decides whether a call may run. Safe tools pass through;
// gated tools are auto-approved (writing the approval event) or awaited: an
// operator writes ToolExecutionApproved/Rejected into the stream and the
// engine polls for it until the approval timeout.
func (e *Engine) resolveApproval(ctx context.Context, streamName string, call event.ToolCall, meta map[string]any, head int64) (bool, int64, error) {
	registered, err := e.registry.Get(call.Name)
	if err != nil {
		// Unknown tools skip the gate; execution records the failure.
		return true, head, nil
	}
	if !registered.Permission.RequiresApproval() {
		return true, head, nil
	}

	if e.autoApprove {
		approval := event.ToolApproval{ToolName: call.Name, ApprovedBy: "auto"}
		head, err = e.store.Append(ctx, streamName, event.KindToolExecutionApproved, approval.Data(), meta, head)
		if err != nil {
			return false, head, fmt.Errorf("write ToolExecutionApproved: %w", err)
		}
		return true, head, nil
	}

	approved, head, err := e.awaitApproval(ctx, streamName, call.ID, head)
	if err != nil {
		return false, head, err
	}
	if approved == nil {
		// Timed out: record the rejection so the stream explains the failure.
		rejection := event.ToolRejection{ToolName: call.Name, RejectedBy: "system", Reason: "approval timeout"}
		head, err = e.store.Append(ctx, streamName, event.KindToolExecutionRejected, rejection.Data(), meta, head)
		if err != nil {
			return false, head, fmt.Errorf("write ToolExecutionRejected: %w", err)
		}
		return false, head, nil
	}
	return *approved, head, nil
}

// awaitApproval polls the stream for an approval or rejection event
// matching the call id. Returns nil on timeout. The head position advances
// past any events an operator appended while we waited.
func (e *Engine) awaitApproval(ctx context.Context, streamName, callID string, head int64) (*bool, int64, error) {
	deadline := time.Now().Add(e.approvalWait)
	ticker := time.NewTicker(e.approvalPoll)
	defer ticker.Stop()

	for {
		batch, err := e.store.Read(ctx, streamName, head+1, 0)
		if err != nil {
			return nil, head, err
		}
		for _, ev := range batch {
			head = ev.Position
			if event.ToolCallID(ev) != callID {
				continue
			}
			switch ev.Kind {
			case event.KindToolExecutionApproved:
				approved := true
				return &approved, head, nil
			case event.KindToolExecutionRejected:
				approved := false
				return &approved, head, nil
			}
		}

		if time.Now().After(deadline) {
			return nil, head, nil
		}
		select {
		case <-ctx.Done():
			return nil, head, ctx.Err()
		case <-ticker.C:
		}
	}
}
