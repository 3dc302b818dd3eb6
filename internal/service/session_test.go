package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/zcox/messagedb-agent/internal/adapter/memstore"
	"github.com/zcox/messagedb-agent/internal/domain/event"
	"github.com/zcox/messagedb-agent/internal/port/eventstore"
	"github.com/zcox/messagedb-agent/internal/projection"
	"github.com/zcox/messagedb-agent/internal/service"
)

func seedSession(t *testing.T, store *memstore.Store, threadID string, terminal bool) {
	t.Helper()
	ctx := context.Background()
	streamName := "agent:v0-" + threadID

	appends := []struct {
		kind event.Kind
		data map[string]any
	}{
		{event.KindSessionStarted, map[string]any{"thread_id": threadID}},
		{event.KindUserMessageAdded, map[string]any{"message": "hi", "timestamp": "2025-10-19T10:00:00Z"}},
	}
	for _, a := range appends {
		if _, err := store.Append(ctx, streamName, a.kind, a.data, nil, eventstore.ExpectAny); err != nil {
			t.Fatal(err)
		}
	}
	if terminal {
		if _, err := store.Append(ctx, streamName, event.KindSessionCompleted,
			map[string]any{"completion_reason": "success"}, nil, eventstore.ExpectAny); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSessionServiceState(t *testing.T) {
	store := memstore.New()
	seedSession(t, store, "t1", true)

	svc := service.NewSessionService(store, "", "")

	state, err := svc.State(context.Background(), "t1")
	if err != nil {
		t.Fatal(err)
	}
	if state.ThreadID != "t1" || state.Status != projection.StatusCompleted {
		t.Errorf("state = %+v", state)
	}
}

func TestSessionServiceEventsUnknownThread(t *testing.T) {
	svc := service.NewSessionService(memstore.New(), "", "")
	if _, err := svc.Events(context.Background(), "missing"); err == nil {
		t.Error("expected error for unknown thread")
	}
}

func TestSessionServiceListOrdersByActivity(t *testing.T) {
	store := memstore.New()
	at := time.Date(2025, 10, 19, 10, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time {
		at = at.Add(time.Second)
		return at
	})
	seedSession(t, store, "older", false)
	seedSession(t, store, "newer", false)

	svc := service.NewSessionService(store, "", "")

	states, err := svc.List(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 2 {
		t.Fatalf("sessions = %d", len(states))
	}
	if states[0].ThreadID != "newer" || states[1].ThreadID != "older" {
		t.Errorf("order = %s, %s", states[0].ThreadID, states[1].ThreadID)
	}

	limited, err := svc.List(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].ThreadID != "newer" {
		t.Errorf("limited = %+v", limited)
	}
}
