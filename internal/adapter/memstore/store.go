// Package memstore implements the event store port in memory, with the
// same optimistic concurrency semantics the Message DB adapter surfaces.
// It backs the engine tests and is handy for demos without a database.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zcox/messagedb-agent/internal/domain/event"
	"github.com/zcox/messagedb-agent/internal/port/eventstore"
)

// Store holds streams as slices of events; per-stream positions are
// contiguous from 0 and global positions are monotonic from 1.
type Store struct {
	mu      sync.RWMutex
	streams map[string][]event.Event
	global  int64
	clock   func() time.Time
}

var _ eventstore.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{streams: make(map[string][]event.Event), clock: time.Now}
}

// SetClock replaces the timestamp source, for deterministic tests.
func (s *Store) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

// Append writes one event, enforcing the expected-version check.
func (s *Store) Append(_ context.Context, streamName string, kind event.Kind, data, metadata map[string]any, expectedVersion int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.streams[streamName]
	head := int64(len(events)) - 1

	if expectedVersion != eventstore.ExpectAny && expectedVersion != head {
		return 0, &eventstore.ConcurrencyError{Stream: streamName, Expected: expectedVersion, Actual: head}
	}

	s.global++
	ev := event.Event{
		ID:             uuid.NewString(),
		StreamName:     streamName,
		Kind:           kind,
		Data:           cloneMap(data),
		Metadata:       cloneMap(metadata),
		Position:       head + 1,
		GlobalPosition: s.global,
		Time:           s.clock().UTC(),
	}
	s.streams[streamName] = append(events, ev)
	return ev.Position, nil
}

// Read returns events from one stream in ascending position order.
func (s *Store) Read(_ context.Context, streamName string, fromPosition int64, batchSize int) ([]event.Event, error) {
	if batchSize <= 0 {
		batchSize = eventstore.DefaultBatchSize
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.streams[streamName]
	var out []event.Event
	for _, ev := range events {
		if ev.Position < fromPosition {
			continue
		}
		out = append(out, ev)
		if len(out) >= batchSize {
			break
		}
	}
	return out, nil
}

// ReadCategory returns events across streams whose category segment
// matches, ordered by global position.
func (s *Store) ReadCategory(_ context.Context, category string, fromGlobalPosition int64, batchSize int) ([]event.Event, error) {
	if batchSize <= 0 {
		batchSize = eventstore.DefaultBatchSize
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []event.Event
	for name, events := range s.streams {
		if streamCategory(name) != category {
			continue
		}
		for _, ev := range events {
			if ev.GlobalPosition >= fromGlobalPosition {
				out = append(out, ev)
			}
		}
	}

	sortByGlobal(out)
	if len(out) > batchSize {
		out = out[:batchSize]
	}
	return out, nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *Store) HealthCheck(context.Context) error { return nil }

// streamCategory mirrors Message DB's category(): everything before the
// first '-'.
func streamCategory(streamName string) string {
	category, _, _ := strings.Cut(streamName, "-")
	return category
}

func sortByGlobal(events []event.Event) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].GlobalPosition < events[j].GlobalPosition
	})
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
