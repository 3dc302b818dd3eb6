// Package event defines the immutable event envelope and the typed payloads
// for every event kind written to an agent stream.
package event

import (
	"fmt"
	"time"
)

// Kind identifies the type of an event.
type Kind string

const (
	KindSessionStarted              Kind = "SessionStarted"
	KindUserMessageAdded            Kind = "UserMessageAdded"
	KindLLMResponseReceived         Kind = "LLMResponseReceived"
	KindLLMCallFailed               Kind = "LLMCallFailed"
	KindToolExecutionRequested      Kind = "ToolExecutionRequested"
	KindToolExecutionApproved       Kind = "ToolExecutionApproved"
	KindToolExecutionRejected       Kind = "ToolExecutionRejected"
	KindToolExecutionCompleted      Kind = "ToolExecutionCompleted"
	KindToolExecutionFailed         Kind = "ToolExecutionFailed"
	KindSessionTerminationRequested Kind = "SessionTerminationRequested"
	KindSessionCompleted            Kind = "SessionCompleted"
)

// Event is a single immutable record read from a stream. Data and Metadata
// hold the decoded JSON payloads; unknown kinds are preserved as-is so a
// reader never fails on an event it does not recognize.
type Event struct {
	ID             string         `json:"id"`
	StreamName     string         `json:"stream_name"`
	Kind           Kind           `json:"type"`
	Data           map[string]any `json:"data"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	Position       int64          `json:"position"`
	GlobalPosition int64          `json:"global_position"`
	Time           time.Time      `json:"time"`
}

// Validate checks the envelope invariants shared by all kinds.
func (e Event) Validate() error {
	if e.Kind == "" {
		return fmt.Errorf("event kind cannot be empty")
	}
	if e.Position < 0 {
		return fmt.Errorf("event position must be >= 0, got %d", e.Position)
	}
	if e.GlobalPosition < 0 {
		return fmt.Errorf("event global position must be >= 0, got %d", e.GlobalPosition)
	}
	return nil
}

// IsTerminal reports whether the event ends a session: SessionCompleted and
// SessionTerminationRequested both stop the processing loop.
func (e Event) IsTerminal() bool {
	return e.Kind == KindSessionCompleted || e.Kind == KindSessionTerminationRequested
}

// stringField returns a string payload field, tolerating absent or
// differently-typed values from old or foreign events.
func (e Event) stringField(key string) string {
	v, ok := e.Data[key]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

// MetadataString returns a string metadata field, or "" when absent.
func (e Event) MetadataString(key string) string {
	if e.Metadata == nil {
		return ""
	}
	v, ok := e.Metadata[key]
	if !ok {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return ""
	}
}
