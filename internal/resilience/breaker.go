// Package resilience provides reliability patterns for calls to external
// services, used here to guard the LLM provider HTTP clients.
package resilience

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type breakerState int

const (
	closed breakerState = iota
	open
	halfOpen
)

// Breaker trips after a run of consecutive failures and rejects calls until
// a cool-down elapses; the first call after the cool-down probes the
// service and either closes the circuit or re-opens it.
type Breaker struct {
	mu       sync.Mutex
	state    breakerState
	failures int
	limit    int
	cooldown time.Duration
	openedAt time.Time
	clock    func() time.Time // injectable for tests
}

// NewBreaker opens after limit consecutive failures and stays open for the
// given cooldown.
func NewBreaker(limit int, cooldown time.Duration) *Breaker {
	return &Breaker{limit: limit, cooldown: cooldown, clock: time.Now}
}

// Execute runs fn unless the circuit is open. The fn outcome updates the
// breaker state.
func (b *Breaker) Execute(fn func() error) error {
	if !b.admit() {
		return ErrCircuitOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failures++
		if b.state == halfOpen || b.failures >= b.limit {
			b.state = open
			b.openedAt = b.clock()
		}
		return err
	}

	b.failures = 0
	b.state = closed
	return nil
}

func (b *Breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case open:
		if b.clock().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.state = halfOpen
		return true
	default:
		return true
	}
}
