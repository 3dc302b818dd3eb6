package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zcox/messagedb-agent/internal/domain/event"
	"github.com/zcox/messagedb-agent/internal/domain/stream"
	"github.com/zcox/messagedb-agent/internal/port/eventstore"
)

// StartSession creates a new session stream: SessionStarted at position 0
// (the stream must not exist yet) followed by the initial UserMessageAdded.
// Returns the generated thread id.
func (e *Engine) StartSession(ctx context.Context, initialMessage string) (string, error) {
	if strings.TrimSpace(initialMessage) == "" {
		return "", fmt.Errorf("initial message cannot be empty")
	}

	threadID := stream.NewThreadID()
	name, err := e.streamName(threadID)
	if err != nil {
		return "", err
	}

	started, err := event.NewSessionStarted(threadID)
	if err != nil {
		return "", err
	}
	if _, err := e.store.Append(ctx, name.String(), event.KindSessionStarted, started.Data(), nil, eventstore.NoStream); err != nil {
		return "", fmt.Errorf("write SessionStarted: %w", err)
	}

	message, err := event.NewUserMessage(initialMessage, time.Now())
	if err != nil {
		return "", err
	}
	if _, err := e.store.Append(ctx, name.String(), event.KindUserMessageAdded, message.Data(), nil, 0); err != nil {
		return "", fmt.Errorf("write UserMessageAdded: %w", err)
	}

	if e.metrics != nil {
		e.metrics.SessionsStarted.Add(ctx, 1)
	}
	e.log.Info("session started", "thread_id", threadID, "stream", name.String())
	return threadID, nil
}

// AddUserMessage appends a user message to an existing, still-open session.
func (e *Engine) AddUserMessage(ctx context.Context, threadID, message string) error {
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("message cannot be empty")
	}

	name, err := e.streamName(threadID)
	if err != nil {
		return err
	}

	events, err := eventstore.ReadAll(ctx, e.store, name.String())
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownThread, threadID)
	}
	if events[len(events)-1].IsTerminal() {
		return fmt.Errorf("%w: %s", ErrSessionClosed, threadID)
	}

	payload, err := event.NewUserMessage(message, time.Now())
	if err != nil {
		return err
	}

	head := events[len(events)-1].Position
	if _, err := e.store.Append(ctx, name.String(), event.KindUserMessageAdded, payload.Data(), nil, head); err != nil {
		return fmt.Errorf("write UserMessageAdded: %w", err)
	}
	return nil
}

// TerminateSession appends the terminal SessionCompleted event. It is
// idempotent: terminating an already-terminal session is a no-op.
func (e *Engine) TerminateSession(ctx context.Context, threadID, reason string) error {
	name, err := e.streamName(threadID)
	if err != nil {
		return err
	}

	events, err := eventstore.ReadAll(ctx, e.store, name.String())
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownThread, threadID)
	}
	if events[len(events)-1].IsTerminal() {
		return nil
	}

	payload, err := event.NewSessionCompletion(reason)
	if err != nil {
		return err
	}

	head := events[len(events)-1].Position
	if _, err := e.store.Append(ctx, name.String(), event.KindSessionCompleted, payload.Data(), nil, head); err != nil {
		return fmt.Errorf("write SessionCompleted: %w", err)
	}

	if e.metrics != nil {
		e.metrics.SessionsCompleted.Add(ctx, 1)
	}
	return nil
}
