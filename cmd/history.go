package main

import (
	"context"

	"github.com/desertthunder/chorus/internal/repositories"
	"github.com/urfave/cli/v3"
)

// History prints recent resolutions, or per-source totals with --counts.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if err := r.reloadConfig(cmd); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repositories.NewResolutionRepository(db)

	if cmd.Bool("counts") {
		counts, err := repo.CountBySource(ctx)
		if err != nil {
			return err
		}
		for source, count := range counts {
			if err := r.writePlainln("%s\t%d", source, count); err != nil {
				return err
			}
		}
		return nil
	}

	resolutions, err := repo.Recent(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if len(resolutions) == 0 {
		return r.writePlainln("no resolutions recorded")
	}

	for _, res := range resolutions {
		if err := r.writePlainln("%s  %-12s  %-8s  %4dms  %s",
			res.CreatedAt.Format("2006-01-02 15:04:05"),
			res.Service.DisplayName(), res.ReplySource, res.LatencyMS, res.InputURL,
		); err != nil {
			return err
		}
	}

	return nil
}
