package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"libraryapi/internal/config"
	"libraryapi/internal/platform/postgres"
)

// rootOptions is filled in before any subcommand runs.
type rootOptions struct {
	cfg    config.Config
	logger *slog.Logger
	// openPool is replaced in tests.
	openPool func(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error)
}

func newRootCommand() *cobra.Command {
	return buildRootCommand(&rootOptions{openPool: openPool})
}

func buildRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "libraryctl",
		Short:         "Library API database maintenance",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.LoadEnvFiles()
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = cfg.Logger(cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newCheckCommand(opts))
	return cmd
}

func (o *rootOptions) connect(ctx context.Context) (*pgxpool.Pool, error) {
	pool, err := o.openPool(ctx, o.cfg)
	if err != nil {
		return nil, err
	}
	o.logger.Info("database connection OK", "dsn", postgres.RedactDSN(o.cfg.DatabaseDSN))
	return pool, nil
}

func openPool(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	return postgres.Open(ctx, postgres.PoolConfig{
		DSN:         cfg.DatabaseDSN,
		MaxConns:    cfg.DBMaxConns,
		PingTimeout: 5 * time.Second,
	})
}
