// Package eventstore defines the port for the append-only event store
// backing agent session streams.
package eventstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/zcox/messagedb-agent/internal/domain/event"
)

// Expected-version sentinels for Append.
const (
	// NoStream asserts the stream must not exist yet.
	NoStream int64 = -1
	// ExpectAny disables the optimistic concurrency check.
	ExpectAny int64 = -2
)

// DefaultBatchSize is the read batch size used when callers pass 0.
const DefaultBatchSize = 1000

// ConcurrencyError reports an optimistic concurrency check failure: the
// stream head was not at the expected version when the append ran.
type ConcurrencyError struct {
	Stream   string
	Expected int64
	Actual   int64 // -1 when unknown
}

func (e *ConcurrencyError) Error() string {
	if e.Actual >= 0 {
		return fmt.Sprintf("concurrency conflict on stream %q: expected version %d, stream at %d", e.Stream, e.Expected, e.Actual)
	}
	return fmt.Sprintf("concurrency conflict on stream %q: expected version %d", e.Stream, e.Expected)
}

// StoreError wraps any store failure that is not a concurrency conflict.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return fmt.Sprintf("store %s: %v", e.Op, e.Err) }
func (e *StoreError) Unwrap() error { return e.Err }

// IsConcurrencyConflict reports whether err is an optimistic concurrency
// failure. Callers use this to distinguish the one expected failure mode
// from opaque store errors.
func IsConcurrencyConflict(err error) bool {
	var ce *ConcurrencyError
	return errors.As(err, &ce)
}

// Store is the port for per-stream append-only logs with optimistic
// concurrency control.
type Store interface {
	// Append writes one event and returns its per-stream position.
	// expectedVersion is the position the caller believes is the current
	// head (NoStream for "must not exist", ExpectAny to skip the check).
	Append(ctx context.Context, stream string, kind event.Kind, data, metadata map[string]any, expectedVersion int64) (int64, error)

	// Read returns events at or after fromPosition in ascending position
	// order, at most batchSize of them (DefaultBatchSize when 0).
	Read(ctx context.Context, stream string, fromPosition int64, batchSize int) ([]event.Event, error)

	// ReadCategory returns events across all streams of a category, ordered
	// by global position, starting at fromGlobalPosition.
	ReadCategory(ctx context.Context, category string, fromGlobalPosition int64, batchSize int) ([]event.Event, error)

	// HealthCheck verifies the backing store is reachable and usable.
	HealthCheck(ctx context.Context) error
}

// ReadAll drains a stream from the beginning in DefaultBatchSize batches.
func ReadAll(ctx context.Context, s Store, streamName string) ([]event.Event, error) {
	var all []event.Event
	var from int64
	for {
		batch, err := s.Read(ctx, streamName, from, DefaultBatchSize)
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < DefaultBatchSize {
			return all, nil
		}
		from = batch[len(batch)-1].Position + 1
	}
}
