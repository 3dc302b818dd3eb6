package subscriber_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zcox/messagedb-agent/internal/adapter/memstore"
	"github.com/zcox/messagedb-agent/internal/domain/event"
	"github.com/zcox/messagedb-agent/internal/port/broadcast"
	"github.com/zcox/messagedb-agent/internal/port/eventstore"
	"github.com/zcox/messagedb-agent/internal/subscriber"
)

type collector struct {
	mu     sync.Mutex
	events []event.Event
}

func (c *collector) Publish(_ context.Context, ev event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *collector) snapshot() []event.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]event.Event(nil), c.events...)
}

func (c *collector) waitFor(t *testing.T, n int) []event.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if events := c.snapshot(); len(events) >= n {
			return events
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, got %d", n, len(c.snapshot()))
	return nil
}

func TestSubscriberDeliversCategoryEvents(t *testing.T) {
	store := memstore.New()
	sink := &collector{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := subscriber.New(store, sink, "agent:v0", subscriber.Options{PollInterval: 10 * time.Millisecond})

	done := make(chan error, 1)
	go func() { done <- sub.Run(ctx) }()

	for _, streamName := range []string{"agent:v0-a", "agent:v0-b", "other:v0-x"} {
		if _, err := store.Append(ctx, streamName, event.KindUserMessageAdded,
			map[string]any{"message": "hi"}, nil, eventstore.ExpectAny); err != nil {
			t.Fatal(err)
		}
	}

	events := sink.waitFor(t, 2)
	for _, ev := range events {
		if ev.StreamName == "other:v0-x" {
			t.Errorf("foreign category event delivered: %+v", ev)
		}
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v", err)
	}
}

func TestSubscriberResumesFromPosition(t *testing.T) {
	store := memstore.New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.Append(ctx, "agent:v0-a", event.KindUserMessageAdded, nil, nil, eventstore.ExpectAny); err != nil {
			t.Fatal(err)
		}
	}

	sink := &collector{}
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Skip the first two global positions.
	sub := subscriber.New(store, sink, "agent:v0", subscriber.Options{
		PollInterval: 10 * time.Millisecond,
		FromPosition: 3,
	})
	go func() { _ = sub.Run(runCtx) }()

	events := sink.waitFor(t, 1)
	if events[0].GlobalPosition != 3 {
		t.Errorf("first delivered global position = %d, want 3", events[0].GlobalPosition)
	}
}

func TestFanoutContinuesPastFailures(t *testing.T) {
	failing := broadcast.Func(func(context.Context, event.Event) error {
		return errors.New("sink down")
	})
	sink := &collector{}

	fanout := broadcast.Fanout{failing, sink}
	err := fanout.Publish(context.Background(), event.Event{Kind: event.KindUserMessageAdded})
	if err == nil {
		t.Error("expected first sink's error to surface")
	}
	if len(sink.snapshot()) != 1 {
		t.Error("second sink should still receive the event")
	}
}
