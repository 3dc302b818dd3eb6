// Package engine drives agent sessions: it owns the session lifecycle and
// the processing loop that reads a stream, projects the next step, executes
// it, and appends the results. The engine never inspects events directly —
// all routing goes through the next-step projection — and it holds no state
// of its own between passes.
package engine

import (
	"errors"
	"log/slog"
	"time"

	"github.com/zcox/messagedb-agent/internal/adapter/otelx"
	"github.com/zcox/messagedb-agent/internal/domain/stream"
	"github.com/zcox/messagedb-agent/internal/llm"
	"github.com/zcox/messagedb-agent/internal/port/eventstore"
	"github.com/zcox/messagedb-agent/internal/tool"
)

// ErrMaxIterations reports that a pass hit its iteration cap before the
// session reached a terminal state. The engine appends
// SessionCompleted{timeout} before returning it.
var ErrMaxIterations = errors.New("processing exceeded max iterations")

// ErrSessionClosed reports an append to a session whose last event is
// terminal.
var ErrSessionClosed = errors.New("session is closed")

// ErrUnknownThread reports an operation on a thread with no stream.
var ErrUnknownThread = errors.New("unknown thread")

// Options tunes one engine instance. Zero values pick the defaults below.
type Options struct {
	Category         string
	Version          string
	SystemPrompt     string
	MaxIterations    int
	MaxRetries       int
	AutoApproveTools bool
	ApprovalTimeout  time.Duration
	ApprovalPoll     time.Duration
	Metrics          *otelx.Metrics
	Logger           *slog.Logger
}

// Engine executes sessions against a store, a model client, and a tool
// registry. It is safe for concurrent use; each ProcessThread call is an
// independent pass.
type Engine struct {
	store        eventstore.Store
	client       llm.Client
	registry     *tool.Registry
	category     string
	version      string
	systemPrompt string
	maxIter      int
	maxRetries   int
	autoApprove  bool
	approvalWait time.Duration
	approvalPoll time.Duration
	metrics      *otelx.Metrics
	log          *slog.Logger
}

// New builds an engine.
func New(store eventstore.Store, client llm.Client, registry *tool.Registry, opts Options) *Engine {
	if opts.Category == "" {
		opts.Category = stream.DefaultCategory
	}
	if opts.Version == "" {
		opts.Version = stream.DefaultVersion
	}
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = llm.DefaultSystemPrompt
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = 100
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.ApprovalTimeout <= 0 {
		opts.ApprovalTimeout = 5 * time.Minute
	}
	if opts.ApprovalPoll <= 0 {
		opts.ApprovalPoll = 500 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Engine{
		store:        store,
		client:       client,
		registry:     registry,
		category:     opts.Category,
		version:      opts.Version,
		systemPrompt: opts.SystemPrompt,
		maxIter:      opts.MaxIterations,
		maxRetries:   opts.MaxRetries,
		autoApprove:  opts.AutoApproveTools,
		approvalWait: opts.ApprovalTimeout,
		approvalPoll: opts.ApprovalPoll,
		metrics:      opts.Metrics,
		log:          opts.Logger,
	}
}

// streamName builds the stream identity for a thread under this engine's
// category and version.
func (e *Engine) streamName(threadID string) (stream.Name, error) {
	return stream.Build(e.category, e.version, threadID)
}
