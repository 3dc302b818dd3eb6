// Package subscriber follows a category across all of its streams and
// hands every new event to a broadcaster. UIs and queues get live events
// without the engine knowing about them: the log stays the only producer
// surface.
package subscriber

import (
	"context"
	"log/slog"
	"time"

	"github.com/zcox/messagedb-agent/internal/port/broadcast"
	"github.com/zcox/messagedb-agent/internal/port/eventstore"
)

// Subscriber polls get_category_messages from a tracked global position.
type Subscriber struct {
	store        eventstore.Store
	broadcaster  broadcast.Broadcaster
	category     string
	pollInterval time.Duration
	batchSize    int
	position     int64
	log          *slog.Logger
}

// Options tunes a subscriber. Zero values pick the defaults below.
type Options struct {
	PollInterval time.Duration
	BatchSize    int
	// FromPosition is the first global position to deliver; 0 starts at the
	// beginning of the category.
	FromPosition int64
	Logger       *slog.Logger
}

// New builds a subscriber for one category (e.g. "agent:v0").
func New(store eventstore.Store, broadcaster broadcast.Broadcaster, category string, opts Options) *Subscriber {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = eventstore.DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Subscriber{
		store:        store,
		broadcaster:  broadcaster,
		category:     category,
		pollInterval: opts.PollInterval,
		batchSize:    opts.BatchSize,
		position:     opts.FromPosition,
		log:          opts.Logger.With("category", category),
	}
}

// Position returns the next global position the subscriber will read.
func (s *Subscriber) Position() int64 { return s.position }

// Run polls until the context is cancelled. Broadcast failures are logged
// and skipped: delivery is best-effort, the log remains authoritative.
// Store read failures back off to the poll interval and retry.
func (s *Subscriber) Run(ctx context.Context) error {
	s.log.Info("subscriber starting", "position", s.position)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		batch, err := s.store.ReadCategory(ctx, s.category, s.position, s.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Error("category read failed", "error", err)
		}

		for _, ev := range batch {
			if err := s.broadcaster.Publish(ctx, ev); err != nil {
				s.log.Warn("broadcast failed", "stream", ev.StreamName, "position", ev.Position, "error", err)
			}
			s.position = ev.GlobalPosition + 1
		}

		// Drain immediately while batches come back full.
		if len(batch) >= s.batchSize {
			continue
		}

		select {
		case <-ctx.Done():
			s.log.Info("subscriber stopped", "position", s.position)
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
