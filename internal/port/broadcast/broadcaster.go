// Package broadcast defines the port for fanning appended events out to
// live consumers (websocket clients, message queues).
package broadcast

import (
	"context"

	"github.com/zcox/messagedb-agent/internal/domain/event"
)

// Broadcaster delivers events that have already been committed to the log.
// Delivery is best-effort: the log remains the source of truth and slow or
// failed consumers never block a processing pass.
type Broadcaster interface {
	Publish(ctx context.Context, ev event.Event) error
}

// Func adapts a function to the Broadcaster interface.
type Func func(ctx context.Context, ev event.Event) error

func (f Func) Publish(ctx context.Context, ev event.Event) error { return f(ctx, ev) }

// Fanout publishes to every broadcaster in order, returning the first error
// after attempting all of them.
type Fanout []Broadcaster

func (b Fanout) Publish(ctx context.Context, ev event.Event) error {
	var firstErr error
	for _, target := range b {
		if err := target.Publish(ctx, ev); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
