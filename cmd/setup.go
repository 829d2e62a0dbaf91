package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/chorus/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates a config file when missing and runs database migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := shared.CreateConfigFile(path); err != nil {
			return err
		}
		r.logger.Info("created config file", "path", path)
	}

	if err := r.reloadConfig(cmd); err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	r.logger.Info("database ready", "path", r.config.Database.Path)
	return r.writePlainln("setup complete")
}
