package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zcox/messagedb-agent/internal/adapter/postgres"
	"github.com/zcox/messagedb-agent/internal/engine"
)

func newStartCommand(opts *rootOptions) *cobra.Command {
	var maxIterations int

	cmd := &cobra.Command{
		Use:   "start <message>",
		Short: "Start a new agent session with an initial message",
		Args:  exactArgs(1, "start <message>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, true)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if maxIterations > 0 {
				a.cfg.Processing.MaxIterations = maxIterations
			}

			threadID, err := a.engine.StartSession(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("Started session: %s\n", threadID)

			state, err := a.engine.ProcessThread(ctx, threadID)
			if err != nil && !errors.Is(err, engine.ErrMaxIterations) {
				return err
			}
			printAgentReply(ctx, a, threadID)
			printStateSummary(state)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "override max iterations from config")
	return cmd
}

func newMessageCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "message <thread-id> <text>",
		Short: "Add a user message to an existing session and process it",
		Args:  exactArgs(2, "message <thread-id> <text>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, true)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if err := a.engine.AddUserMessage(ctx, args[0], args[1]); err != nil {
				return err
			}

			state, err := a.engine.ProcessThread(ctx, args[0])
			if err != nil && !errors.Is(err, engine.ErrMaxIterations) {
				return err
			}
			printAgentReply(ctx, a, args[0])
			printStateSummary(state)
			return nil
		},
	}
}

func newContinueCommand(opts *rootOptions) *cobra.Command {
	var maxIterations int

	cmd := &cobra.Command{
		Use:   "continue <thread-id>",
		Short: "Resume processing an existing session",
		Args:  exactArgs(1, "continue <thread-id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, true)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if maxIterations > 0 {
				a.cfg.Processing.MaxIterations = maxIterations
			}

			state, err := a.engine.ProcessThread(ctx, args[0])
			if err != nil && !errors.Is(err, engine.ErrMaxIterations) {
				return err
			}
			printAgentReply(ctx, a, args[0])
			printStateSummary(state)
			return nil
		},
	}
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "override max iterations from config")
	return cmd
}

func newShowCommand(opts *rootOptions) *cobra.Command {
	var format string
	var full bool

	cmd := &cobra.Command{
		Use:   "show <thread-id>",
		Short: "Display the events of a session",
		Args:  exactArgs(1, "show <thread-id>"),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("%w: --format must be text or json", errUsage)
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			events, err := a.sessions.Events(ctx, args[0])
			if err != nil {
				return err
			}
			return renderEvents(events, format, full)
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "output format: text or json (default: text on a TTY, json otherwise)")
	cmd.Flags().BoolVar(&full, "full", false, "show full event data including metadata")
	cmd.PreRun = func(*cobra.Command, []string) {
		if format == "" {
			format = defaultFormat()
		}
	}
	return cmd
}

func newListCommand(opts *rootOptions) *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent sessions",
		Args:  exactArgs(0, "list"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("%w: --format must be text or json", errUsage)
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			states, err := a.sessions.List(ctx, limit)
			if err != nil {
				return err
			}
			return renderSessions(states, format)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of sessions to list")
	cmd.Flags().StringVar(&format, "format", "", "output format: text or json (default: text on a TTY, json otherwise)")
	cmd.PreRun = func(*cobra.Command, []string) {
		if format == "" {
			format = defaultFormat()
		}
	}
	return cmd
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Install the message store schema into the configured database",
		Args:  exactArgs(0, "migrate"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, closer, err := opts.loadConfig()
			if err != nil {
				return err
			}
			defer closer.Close()

			if err := postgres.RunMigrations(cmd.Context(), cfg.MessageDB); err != nil {
				return err
			}
			fmt.Println("migrations applied")
			return nil
		},
	}
}

func newHealthCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check connectivity to the message store",
		Args:  exactArgs(0, "health"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, false)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if err := a.store.HealthCheck(ctx); err != nil {
				return err
			}
			fmt.Println("ok")
			return nil
		},
	}
}
