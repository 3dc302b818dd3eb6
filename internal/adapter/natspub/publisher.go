// Package natspub publishes appended events to NATS JetStream so external
// consumers can follow sessions without a database connection.
package natspub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/zcox/messagedb-agent/internal/domain/event"
	"github.com/zcox/messagedb-agent/internal/domain/stream"
	"github.com/zcox/messagedb-agent/internal/port/broadcast"
)

const streamName = "AGENT_EVENTS"

// Publisher implements the broadcast port on JetStream subjects
// "agent.events.<threadID>".
type Publisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

var _ broadcast.Broadcaster = (*Publisher)(nil)

// Connect establishes the NATS connection and ensures the stream exists.
func Connect(ctx context.Context, url string) (*Publisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"agent.events.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &Publisher{nc: nc, js: js}, nil
}

// Publish sends the event on its thread's subject.
func (p *Publisher) Publish(ctx context.Context, ev event.Event) error {
	threadID, err := stream.ThreadID(ev.StreamName)
	if err != nil {
		threadID = "unknown"
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := "agent.events." + threadID
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

// Close shuts down the NATS connection.
func (p *Publisher) Close() error {
	p.nc.Close()
	return nil
}
