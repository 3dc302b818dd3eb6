// Command messagedb-agent runs event-sourced LLM agent sessions backed by
// Message DB. Sessions are streams; every step of a conversation is an
// appended event and all state is projected from the log.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zcox/messagedb-agent/internal/adapter/anthropic"
	"github.com/zcox/messagedb-agent/internal/adapter/openaichat"
	"github.com/zcox/messagedb-agent/internal/config"
	"github.com/zcox/messagedb-agent/internal/logger"
)

// errUsage marks argument errors so main can exit 2 instead of 1.
var errUsage = errors.New("usage error")

func main() {
	registerProviders()

	root := newRootCommand()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if errors.Is(err, errUsage) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

// registerProviders wires the LLM adapters into the factory. Order matters:
// the chat-completions adapter is the catch-all fallback.
func registerProviders() {
	anthropic.Register()
	openaichat.Register()
}

func newRootCommand() *cobra.Command {
	var opts rootOptions

	root := &cobra.Command{
		Use:           "messagedb-agent",
		Short:         "Event-sourced agent sessions on Message DB",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", config.DefaultConfigFile, "YAML config file")
	root.PersistentFlags().StringVar(&opts.category, "category", "", "stream category (default: agent)")
	root.PersistentFlags().StringVar(&opts.version, "stream-version", "", "stream version segment (default: v0)")

	root.AddCommand(
		newStartCommand(&opts),
		newMessageCommand(&opts),
		newContinueCommand(&opts),
		newShowCommand(&opts),
		newListCommand(&opts),
		newServeCommand(&opts),
		newMigrateCommand(&opts),
		newHealthCommand(&opts),
	)
	return root
}

type rootOptions struct {
	configFile string
	category   string
	version    string
}

// loadConfig loads configuration and installs the logger.
func (o *rootOptions) loadConfig() (*config.Config, logger.Closer, error) {
	cfg, err := config.LoadFrom(o.configFile)
	if err != nil {
		return nil, nil, err
	}
	_, closer := logger.Setup(cfg.Logging)
	slog.Debug("config loaded",
		"db_host", cfg.MessageDB.Host,
		"model", cfg.LLM.ModelName,
		"max_iterations", cfg.Processing.MaxIterations,
	)
	return cfg, closer, nil
}

// exactArgs validates positional arity, tagging failures as usage errors.
func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) != n {
			return fmt.Errorf("%w: expected %s", errUsage, usage)
		}
		return nil
	}
}
