package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/chorus/internal/repositories"
	"github.com/desertthunder/chorus/internal/server"
	"github.com/desertthunder/chorus/internal/services"
	"github.com/desertthunder/chorus/internal/shared"
	"github.com/desertthunder/chorus/internal/store"
	"github.com/desertthunder/chorus/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve wires the full pipeline and starts the webhook server.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}
	r.applyLogLevel()

	slack, err := services.NewSlackService(r.config.Slack.BotToken, "")
	if err != nil {
		return fmt.Errorf("failed to create slack client: %w", err)
	}

	var history tasks.Recorder
	if !cmd.Bool("no-history") && r.config.Database.Path != "" {
		db, err := r.openDatabase()
		if err != nil {
			return fmt.Errorf("failed to open history database: %w", err)
		}
		defer db.Close()

		if err := shared.RunMigrations(db); err != nil {
			return fmt.Errorf("failed to migrate history database: %w", err)
		}
		history = repositories.NewResolutionRepository(db)
	}

	engine := r.newEngine(store.NewCache(r.config.Resolver.CacheTTL()))
	pipeline := tasks.NewPipeline(tasks.PipelineOpts{
		Engine:      engine,
		Seen:        store.NewSeen(),
		Messenger:   slack,
		History:     history,
		Logger:      r.logger,
		Placeholder: r.config.Slack.Placeholder,
	})

	// Middleware binds at registration time, so the health probe is
	// registered before the signature check is added to the stack.
	router := server.NewBasicRouter()
	router.Handler(&server.HealthHandler{})
	router.Use(
		server.LoggingMiddleware(r.logger),
		server.SignatureMiddleware(r.config.Slack.SigningSecret, r.logger),
	)
	router.Handler(server.NewEventsHandler(pipeline, r.config.Slack.ChannelAllowed, r.logger))

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.logger.Info("starting webhook server", "addr", addr, "placeholder", r.config.Slack.Placeholder)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
