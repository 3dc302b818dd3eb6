// Package service provides the read-side session queries shared by the CLI
// and the HTTP surface.
package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/zcox/messagedb-agent/internal/domain/event"
	"github.com/zcox/messagedb-agent/internal/domain/stream"
	"github.com/zcox/messagedb-agent/internal/port/eventstore"
	"github.com/zcox/messagedb-agent/internal/projection"
)

// SessionService answers queries about sessions by reading streams and
// projecting; it never holds derived state of its own.
type SessionService struct {
	store    eventstore.Store
	category string
	version  string
}

// NewSessionService builds a query service over the given category and
// version segment.
func NewSessionService(store eventstore.Store, category, version string) *SessionService {
	if category == "" {
		category = stream.DefaultCategory
	}
	if version == "" {
		version = stream.DefaultVersion
	}
	return &SessionService{store: store, category: category, version: version}
}

// Events returns the full stream of one thread.
func (s *SessionService) Events(ctx context.Context, threadID string) ([]event.Event, error) {
	name, err := stream.Build(s.category, s.version, threadID)
	if err != nil {
		return nil, err
	}
	events, err := eventstore.ReadAll(ctx, s.store, name.String())
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no events for thread %s", threadID)
	}
	return events, nil
}

// State projects the current session state of one thread.
func (s *SessionService) State(ctx context.Context, threadID string) (projection.SessionState, error) {
	events, err := s.Events(ctx, threadID)
	if err != nil {
		return projection.SessionState{}, err
	}
	return projection.State(events), nil
}

// List returns recent sessions in the category, most recently active first,
// built from a category read grouped by stream.
func (s *SessionService) List(ctx context.Context, limit int) ([]projection.SessionState, error) {
	if limit <= 0 {
		limit = 10
	}

	category := s.category + ":" + s.version
	byStream := make(map[string][]event.Event)

	var position int64 = 1
	for {
		batch, err := s.store.ReadCategory(ctx, category, position, eventstore.DefaultBatchSize)
		if err != nil {
			return nil, err
		}
		for _, ev := range batch {
			byStream[ev.StreamName] = append(byStream[ev.StreamName], ev)
		}
		if len(batch) < eventstore.DefaultBatchSize {
			break
		}
		position = batch[len(batch)-1].GlobalPosition + 1
	}

	states := make([]projection.SessionState, 0, len(byStream))
	for _, events := range byStream {
		states = append(states, projection.State(events))
	}

	sort.Slice(states, func(i, j int) bool {
		left, right := states[i].LastActivity, states[j].LastActivity
		switch {
		case left == nil:
			return false
		case right == nil:
			return true
		default:
			return left.After(*right)
		}
	})

	if len(states) > limit {
		states = states[:limit]
	}
	return states, nil
}

// HealthCheck delegates to the store.
func (s *SessionService) HealthCheck(ctx context.Context) error {
	return s.store.HealthCheck(ctx)
}
