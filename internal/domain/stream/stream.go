// Package stream provides the stream identity discipline: every agent
// session lives in one stream named "{category}:{version}-{threadID}".
package stream

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Defaults for agent session streams.
const (
	DefaultCategory = "agent"
	DefaultVersion  = "v0"
)

// Name is a parsed stream identity. Category must not contain ':', version
// must not contain '-', and the whole name is case-sensitive.
type Name struct {
	Category string
	Version  string
	ThreadID string
}

// String renders the canonical stream name.
func (n Name) String() string {
	return n.Category + ":" + n.Version + "-" + n.ThreadID
}

// CategoryName returns the category segment used by category reads, e.g.
// "agent:v0" for streams "agent:v0-<threadID>".
func (n Name) CategoryName() string {
	return n.Category + ":" + n.Version
}

// NewThreadID returns a fresh UUIDv4 thread identifier.
func NewThreadID() string {
	return uuid.NewString()
}

// Build assembles a stream name from its components, validating the
// invariants that keep names parseable.
func Build(category, version, threadID string) (Name, error) {
	if strings.TrimSpace(category) == "" {
		return Name{}, fmt.Errorf("category cannot be empty")
	}
	if strings.TrimSpace(version) == "" {
		return Name{}, fmt.Errorf("version cannot be empty")
	}
	if strings.TrimSpace(threadID) == "" {
		return Name{}, fmt.Errorf("thread id cannot be empty")
	}
	if strings.Contains(category, ":") {
		return Name{}, fmt.Errorf("category cannot contain ':': %q", category)
	}
	if strings.Contains(version, "-") {
		return Name{}, fmt.Errorf("version cannot contain '-': %q", version)
	}
	return Name{Category: category, Version: version, ThreadID: threadID}, nil
}

// Parse splits a stream name back into its components.
func Parse(name string) (Name, error) {
	if strings.TrimSpace(name) == "" {
		return Name{}, fmt.Errorf("stream name cannot be empty")
	}
	category, rest, ok := strings.Cut(name, ":")
	if !ok {
		return Name{}, fmt.Errorf("invalid stream name %q: expected category:version-threadID", name)
	}
	version, threadID, ok := strings.Cut(rest, "-")
	if !ok {
		return Name{}, fmt.Errorf("invalid stream name %q: expected category:version-threadID", name)
	}
	if category == "" || version == "" || threadID == "" {
		return Name{}, fmt.Errorf("invalid stream name %q: empty component", name)
	}
	return Name{Category: category, Version: version, ThreadID: threadID}, nil
}

// ThreadID extracts just the thread id segment of a stream name.
func ThreadID(name string) (string, error) {
	parsed, err := Parse(name)
	if err != nil {
		return "", err
	}
	return parsed.ThreadID, nil
}
