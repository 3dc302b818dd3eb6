package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/zcox/messagedb-agent/internal/adapter/otelx"
	"github.com/zcox/messagedb-agent/internal/domain/event"
	"github.com/zcox/messagedb-agent/internal/port/eventstore"
	"github.com/zcox/messagedb-agent/internal/projection"
)

// ProcessThread runs the step loop for one thread until the next-step
// projection returns termination, the iteration cap is hit, the context is
// cancelled, or the LLM exhausts its retry budget. It returns the session
// state projected from the final stream.
//
// The pass assumes a single active writer; a concurrent writer trips the
// store's optimistic concurrency check and aborts the pass.
func (e *Engine) ProcessThread(ctx context.Context, threadID string) (projection.SessionState, error) {
	name, err := e.streamName(threadID)
	if err != nil {
		return projection.SessionState{}, err
	}
	streamName := name.String()

	ctx, span := otelx.StartPassSpan(ctx, threadID, streamName)
	defer span.End()

	log := e.log.With("thread_id", threadID, "stream", streamName)
	log.Info("processing thread", "max_iterations", e.maxIter)

	start := time.Now()
	var events []event.Event
	lastPosition := int64(-1)
	terminated := false

	for iteration := 1; iteration <= e.maxIter; iteration++ {
		if err := ctx.Err(); err != nil {
			return e.finalState(context.WithoutCancel(ctx), streamName, err)
		}

		// Read only what landed since the previous iteration; projections
		// fold over the accumulated history.
		batch, err := e.store.Read(ctx, streamName, lastPosition+1, 0)
		if err != nil {
			return projection.SessionState{}, err
		}
		events = append(events, batch...)
		if len(events) == 0 {
			return projection.SessionState{}, fmt.Errorf("%w: %s", ErrUnknownThread, threadID)
		}
		lastPosition = events[len(events)-1].Position

		decision := projection.NextStep(events)
		log.Debug("next step", "iteration", iteration, "step", decision.Step, "reason", decision.Reason)

		switch decision.Step {
		case projection.StepTermination:
			terminated = true

		case projection.StepLLMCall:
			ok, err := e.executeLLMStep(ctx, streamName, events)
			if err != nil {
				return projection.SessionState{}, err
			}
			if !ok {
				// Retry budget exhausted; LLMCallFailed is in the stream and
				// a later pass picks the thread back up.
				log.Warn("llm step failed after retries, ending pass")
				return e.finalState(ctx, streamName, nil)
			}

		case projection.StepToolExecution:
			if err := e.executeToolStep(ctx, streamName, events, decision); err != nil {
				return projection.SessionState{}, err
			}
		}

		if terminated {
			break
		}
	}

	if e.metrics != nil {
		e.metrics.PassDuration.Record(ctx, time.Since(start).Seconds())
	}

	if !terminated {
		if err := e.completeWithTimeout(ctx, streamName, lastPosition); err != nil {
			return projection.SessionState{}, err
		}
		state, _ := e.finalState(ctx, streamName, nil)
		return state, fmt.Errorf("%w (thread %s, cap %d)", ErrMaxIterations, threadID, e.maxIter)
	}

	state, err := e.finalState(ctx, streamName, nil)
	log.Info("thread processing complete",
		"status", state.Status,
		"llm_calls", state.LLMCallCount,
		"tool_calls", state.ToolCallCount,
		"errors", state.ErrorCount,
	)
	return state, err
}

// completeWithTimeout appends the timeout terminal event when the cap is
// reached without natural termination. The last iteration's step may have
// appended past the loop's read position, so the head is re-read first.
func (e *Engine) completeWithTimeout(ctx context.Context, streamName string, head int64) error {
	batch, err := e.store.Read(ctx, streamName, head+1, 0)
	if err != nil {
		return err
	}
	if len(batch) > 0 {
		head = batch[len(batch)-1].Position
	}

	payload, err := event.NewSessionCompletion(event.ReasonTimeout)
	if err != nil {
		return err
	}
	if _, err := e.store.Append(ctx, streamName, event.KindSessionCompleted, payload.Data(), nil, head); err != nil {
		return fmt.Errorf("write timeout completion: %w", err)
	}
	if e.metrics != nil {
		e.metrics.SessionsCompleted.Add(ctx, 1)
	}
	return nil
}

// finalState re-reads the full stream and projects the session state.
func (e *Engine) finalState(ctx context.Context, streamName string, cause error) (projection.SessionState, error) {
	events, err := eventstore.ReadAll(ctx, e.store, streamName)
	if err != nil {
		return projection.SessionState{}, err
	}
	return projection.State(events), cause
}
