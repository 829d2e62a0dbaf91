package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/chorus/internal/links"
	"github.com/desertthunder/chorus/internal/shared"
	"github.com/desertthunder/chorus/internal/store"
	"github.com/urfave/cli/v3"
)

// ResolveURL runs the full resolution engine for one URL from the terminal.
func (r *Runner) ResolveURL(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}
	r.applyLogLevel()

	raw := cmd.StringArg("url")
	if raw == "" {
		return fmt.Errorf("%w: url", shared.ErrInvalidConfig)
	}

	cand, ok := links.Extract(raw, nil)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrNoCandidate, raw)
	}

	engine := r.newEngine(store.NewCache(r.config.Resolver.CacheTTL()))

	started := time.Now()
	reply, source := engine.Resolve(ctx, cand)

	r.logger.Info("resolved", "service", cand.Service, "source", source, "latency", time.Since(started))
	return r.writePlainln("%s", reply)
}
