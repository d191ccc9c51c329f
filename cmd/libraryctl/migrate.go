package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"libraryapi/internal/platform/postgres"
)

type migrationStep func(postgres.Migrations, context.Context, *pgxpool.Pool) error

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply, roll back or inspect schema migrations",
		Long: `Runs the goose migrations. The migrations embedded in the binary are
used unless MIGRATIONS_DIR points at a directory on disk.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE:  runMigration(opts, postgres.Migrations.Up, "Migrations applied successfully"),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE:  runMigration(opts, postgres.Migrations.Down, "Migration rolled back successfully"),
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the state of every migration",
			Args:  cobra.NoArgs,
			RunE:  runMigration(opts, postgres.Migrations.Status, ""),
		},
		&cobra.Command{
			Use:   "create NAME",
			Short: "Create a new SQL migration in MIGRATIONS_DIR",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := postgres.MigrationSource(opts.cfg.MigrationsDir).Create(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Migration created: %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func runMigration(opts *rootOptions, step migrationStep, done string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		pool, err := opts.connect(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := step(postgres.MigrationSource(opts.cfg.MigrationsDir), cmd.Context(), pool); err != nil {
			return err
		}
		if done != "" {
			fmt.Fprintln(cmd.OutOrStdout(), done)
		}
		return nil
	}
}
