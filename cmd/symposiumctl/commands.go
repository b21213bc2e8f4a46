package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"techsymposium/internal/auth"
	"techsymposium/internal/dashboard"
	"techsymposium/internal/database"
	"techsymposium/internal/database/migrations"
	"techsymposium/internal/query"
	"techsymposium/internal/seed"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back schema migrations",
	}

	run := func(apply func(*migrations.Runner) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			if e.cfg.Database.Driver != database.DriverPostgres {
				if cmd.Name() != "up" {
					return fmt.Errorf("migrate %s requires the postgres driver", cmd.Name())
				}
				return database.CreateSchema(cmd.Context(), e.db)
			}

			runner := migrations.NewRunner(e.db, migrations.MigrateOptions{
				MigrationsDir: e.cfg.Database.MigrationsDir,
			}, e.logger)
			defer runner.Close()
			if err := apply(runner); err != nil {
				return err
			}

			version, dirty, err := runner.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", version, dirty)
			return nil
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE:  run(func(r *migrations.Runner) error { return r.RunMigrations() }),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		Args:  cobra.NoArgs,
		RunE:  run(func(r *migrations.Runner) error { return r.MigrateDown() }),
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "to VERSION",
		Short: "Migrate up or down to VERSION",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			return run(func(r *migrations.Runner) error { return r.MigrateTo(uint(version)) })(cmd, args)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied and clean after a manual repair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			return run(func(r *migrations.Runner) error { return r.Force(version) })(cmd, args)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE:  run(func(*migrations.Runner) error { return nil }),
	})
	return cmd
}

func seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert the event catalogue from a YAML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			if file == "" {
				file = e.cfg.Database.SeedFile
			}
			events, err := seed.LoadFile(file)
			if err != nil {
				return err
			}
			n, err := seed.Seed(cmd.Context(), e.db, events)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d events from %s\n", n, file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Catalogue file (defaults to DB_SEED_FILE)")
	return cmd
}

func exportCmd() *cobra.Command {
	var (
		filter dashboard.Filter
		out    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write registrations as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd.Context())
			if err != nil {
				return err
			}
			defer e.Close()

			rows, err := query.NewService(e.db).ListStudents(cmd.Context())
			if err != nil {
				return err
			}
			rows = filter.Apply(rows)

			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				if out == "auto" {
					out = dashboard.ExportFileName(filter.Event)
				}
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer f.Close()
				w = f
			}
			if err := dashboard.ExportCSV(w, rows); err != nil {
				return err
			}
			if out != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d rows to %s\n", len(rows), out)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter.Search, "search", "", "Match name, email or id")
	cmd.Flags().StringVar(&filter.Event, "event", "", "Exact event title, or all")
	cmd.Flags().StringVar(&filter.Payment, "payment", "", "paid or unpaid")
	cmd.Flags().StringVarP(&out, "out", "o", "", `Output file; "auto" names it after the event`)
	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an admin token signed with ADMIN_JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("ADMIN_JWT_SECRET")
			token, err := auth.IssueAdminToken(secret, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	return cmd
}
