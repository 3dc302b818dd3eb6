package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zcox/messagedb-agent/internal/adapter/httpapi"
	"github.com/zcox/messagedb-agent/internal/adapter/natspub"
	"github.com/zcox/messagedb-agent/internal/adapter/ws"
	"github.com/zcox/messagedb-agent/internal/domain/stream"
	"github.com/zcox/messagedb-agent/internal/port/broadcast"
	"github.com/zcox/messagedb-agent/internal/subscriber"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP chat API with live event streaming",
		Args:  exactArgs(0, "serve"),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, true)
			if err != nil {
				return err
			}
			defer a.close(context.WithoutCancel(ctx))
			return runServer(ctx, a, opts)
		},
	}
}

func runServer(ctx context.Context, a *app, opts *rootOptions) error {
	hub := ws.NewHub()

	targets := broadcast.Fanout{hub}
	if a.cfg.NATS.Enabled {
		publisher, err := natspub.Connect(ctx, a.cfg.NATS.URL)
		if err != nil {
			return err
		}
		defer func() { _ = publisher.Close() }()
		targets = append(targets, publisher)
	}

	category := opts.category
	if category == "" {
		category = stream.DefaultCategory
	}
	version := opts.version
	if version == "" {
		version = stream.DefaultVersion
	}
	follower := subscriber.New(a.store, targets, category+":"+version, subscriber.Options{})

	handlers := &httpapi.Handlers{Engine: a.engine, Sessions: a.sessions}

	r := chi.NewRouter()
	r.Use(httpapi.CORS(a.cfg.HTTP.CORSOrigin))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Get("/ws", hub.HandleWS)
	httpapi.MountRoutes(r, handlers)

	srv := &http.Server{
		Addr:              ":" + a.cfg.HTTP.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		slog.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		err := follower.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
