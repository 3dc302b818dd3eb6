package llm

import (
	"fmt"
	"strings"
	"sync"

	"github.com/zcox/messagedb-agent/internal/config"
)

// Builder constructs a Client from configuration.
type Builder func(cfg config.LLM) (Client, error)

// provider pairs a model-name matcher with its builder. Providers register
// at startup (cmd wires the adapters in); selection walks registration
// order and the first match wins.
type provider struct {
	name    string
	matches func(model string) bool
	build   Builder
}

var (
	providersMu sync.RWMutex
	providers   []provider
)

// RegisterProvider adds a provider selected when matches returns true for
// the configured model name.
func RegisterProvider(name string, matches func(model string) bool, build Builder) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers = append(providers, provider{name: name, matches: matches, build: build})
}

// MatchPrefix is a matcher helper for model-name prefixes, e.g. "claude".
func MatchPrefix(prefix string) func(string) bool {
	return func(model string) bool {
		return strings.HasPrefix(strings.ToLower(model), prefix)
	}
}

// NewClient selects and builds the adapter for the configured model name.
func NewClient(cfg config.LLM) (Client, error) {
	providersMu.RLock()
	defer providersMu.RUnlock()

	for _, p := range providers {
		if p.matches(cfg.ModelName) {
			client, err := p.build(cfg)
			if err != nil {
				return nil, fmt.Errorf("build %s client: %w", p.name, err)
			}
			return client, nil
		}
	}
	return nil, fmt.Errorf("no llm provider registered for model %q", cfg.ModelName)
}
