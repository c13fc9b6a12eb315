package main

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/limuzic/internal/library"
	"github.com/desertthunder/limuzic/internal/repositories"
	"github.com/desertthunder/limuzic/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase creates the config file when missing, initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath

	config := r.config
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			r.logger.Info("config file not found, creating from template", "path", configPath)
			if err := shared.CreateConfigFile(configPath); err != nil {
				r.logger.Warn("failed to create config file, using defaults", "error", err)
			} else {
				r.logger.Info("config file created", "path", configPath)
			}
		}
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, err := shared.CurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Database ready: %s (schema version %d)\n", config.Database.Path, version)
	return nil
}

// SetupShowConfig prints the resolved configuration as TOML.
func (r *Runner) SetupShowConfig(ctx context.Context, cmd *cli.Command) error {
	if err := toml.NewEncoder(r.output).Encode(r.config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

func (r *Runner) openState() (*repositories.StateRepository, func(), error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return repositories.NewStateRepository(db), func() { db.Close() }, nil
}

// SetupState lists the stored state blobs with their sizes.
func (r *Runner) SetupState(ctx context.Context, cmd *cli.Command) error {
	repo, done, err := r.openState()
	if err != nil {
		return err
	}
	defer done()

	entries, err := repo.List(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, cmd.Bool("pretty"))
	}
	if len(entries) == 0 {
		return r.writePlain("No stored state\n")
	}
	for _, e := range entries {
		r.writePlain("%-16s %8d bytes  %s\n", e.Key, e.Size, e.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

// SetupReset deletes a stored state blob.
func (r *Runner) SetupReset(ctx context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	if key == "" {
		return fmt.Errorf("%w: key", shared.ErrMissingArgument)
	}
	if !slices.Contains([]string{library.KeyPlaylists, library.KeySearchHistory}, key) {
		return fmt.Errorf("%w: unknown state key %q", shared.ErrInvalidArgument, key)
	}

	repo, done, err := r.openState()
	if err != nil {
		return err
	}
	defer done()

	if err := repo.Delete(ctx, key); err != nil {
		return err
	}
	return r.writePlain("✓ Reset %s\n", key)
}

// SetupRollback rolls back the most recent migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	version, applied, err := shared.CurrentVersion(db)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if !applied {
		return r.writePlain("No migrations applied\n")
	}

	r.logger.Warn("rolling back migration", "version", version)
	if err := shared.RollbackMigration(db); err != nil {
		return err
	}
	return r.writePlain("✓ Rolled back migration %d\n", version)
}
