// Command symposiumctl runs operator tasks against the registration store:
// schema migrations, catalogue seeding, CSV export and admin tokens.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"techsymposium/internal/config"
	"techsymposium/internal/database"
	"techsymposium/internal/logger"
)

const (
	Version = "0.1.0"
	appName = "symposiumctl"
)

func main() {
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Operator tools for the Tech Symposium registration service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(migrateCmd())
	cmd.AddCommand(seedCmd())
	cmd.AddCommand(exportCmd())
	cmd.AddCommand(tokenCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
		},
	})
	return cmd
}

// env bundles what every store command needs.
type env struct {
	cfg    *config.Config
	db     *bun.DB
	logger *logger.Logger
}

func openEnv(ctx context.Context) (*env, error) {
	cfg := config.Load()
	log := logger.NewLogger(appName)
	bunDB, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		log.Close()
		return nil, err
	}
	return &env{cfg: cfg, db: bunDB, logger: log}, nil
}

func (e *env) Close() {
	e.db.Close()
	e.logger.Close()
}
