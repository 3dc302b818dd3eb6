package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer allows flushing and stopping the async handler.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// AsyncHandler decouples log emission from log writing: records are queued
// on a buffered channel and written by background workers, so an append or
// LLM call is never blocked by slow output. When the queue is full the
// record is dropped and counted.
type AsyncHandler struct {
	inner slog.Handler
	queue chan slog.Record
	done  *sync.WaitGroup
	drops *atomic.Int64
}

// NewAsyncHandler starts workers draining a queue of the given capacity
// into inner.
func NewAsyncHandler(inner slog.Handler, capacity, workers int) *AsyncHandler {
	h := &AsyncHandler{
		inner: inner,
		queue: make(chan slog.Record, capacity),
		done:  &sync.WaitGroup{},
		drops: &atomic.Int64{},
	}
	for i := 0; i < workers; i++ {
		h.done.Add(1)
		go func() {
			defer h.done.Done()
			for rec := range h.queue {
				_ = h.inner.Handle(context.Background(), rec)
			}
		}()
	}
	return h
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record, dropping it when the queue is full.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface passes records by value
	select {
	case h.queue <- rec:
	default:
		h.drops.Add(1)
	}
	return nil
}

// WithAttrs wraps the inner handler, sharing the queue and workers.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithAttrs(attrs), queue: h.queue, done: h.done, drops: h.drops}
}

// WithGroup wraps the inner handler, sharing the queue and workers.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{inner: h.inner.WithGroup(name), queue: h.queue, done: h.done, drops: h.drops}
}

// Drops returns how many records were discarded because the queue was full.
func (h *AsyncHandler) Drops() int64 { return h.drops.Load() }

// Close stops accepting records and waits for the queue to drain.
func (h *AsyncHandler) Close() {
	close(h.queue)
	h.done.Wait()
}
