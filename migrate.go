package main

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"techsymposium/internal/config"
	"techsymposium/internal/database"
	"techsymposium/internal/database/migrations"
	"techsymposium/internal/logger"
	"techsymposium/internal/seed"
)

// prepareSchema brings the store up to date for the configured driver and
// loads the event catalogue when DB_SEED_ON_START is set.
func prepareSchema(ctx context.Context, bunDB *bun.DB, cfg config.DatabaseConfig, log *logger.Logger) error {
	switch cfg.Driver {
	case database.DriverPostgres:
		if !cfg.AutoMigrate {
			log.Info("MIGRATE", "Automatic migrations disabled")
			break
		}
		runner := migrations.NewRunner(bunDB, migrations.MigrateOptions{
			MigrationsDir: cfg.MigrationsDir,
			AutoMigrate:   cfg.AutoMigrate,
		}, log)
		defer runner.Close()

		log.Info("MIGRATE", fmt.Sprintf("Applying migrations from %s", cfg.MigrationsDir))
		if err := runner.RunMigrations(); err != nil {
			return err
		}
	default:
		if err := database.CreateSchema(ctx, bunDB); err != nil {
			return err
		}
		log.Info("DATABASE", "Schema created from models")
	}

	if !cfg.SeedOnStart {
		return nil
	}
	events, err := seed.LoadFile(cfg.SeedFile)
	if err != nil {
		return fmt.Errorf("load seed file: %w", err)
	}
	n, err := seed.Seed(ctx, bunDB, events)
	if err != nil {
		return fmt.Errorf("seed events: %w", err)
	}
	log.LogDatabase("SEED", "events", fmt.Sprintf("%d events loaded from %s", n, cfg.SeedFile))
	return nil
}
