package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"libraryapi/db"
	"libraryapi/internal/book"
	"libraryapi/internal/category"
	"libraryapi/internal/loan"
	"libraryapi/internal/reader"
	"libraryapi/internal/seed"
	"libraryapi/internal/validator"
)

func newSeedCommand(opts *rootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert demo fixtures through the domain services",
		Long: `Loads categories, books, readers and loans from a YAML fixture file and
creates them through the same services the API uses. Run it against an
empty database; it stops at the first record that fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readFixtures(file)
			if err != nil {
				return err
			}
			fixtures, err := seed.Parse(data)
			if err != nil {
				return err
			}
			rules, err := validator.NewEngine(opts.cfg.Rules())
			if err != nil {
				return fmt.Errorf("validation rules: %w", err)
			}

			ctx := cmd.Context()
			pool, err := opts.connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			timeout := opts.cfg.DBTimeout
			seeder := seed.Seeder{
				Categories: category.NewService(category.NewPostgresRepo(pool, timeout), rules),
				Books:      book.NewService(book.NewPostgresRepo(pool, timeout), rules),
				Readers:    reader.NewService(reader.NewPostgresRepo(pool, timeout), rules),
				Loans:      loan.NewService(loan.NewPostgresStore(pool, timeout), rules, opts.cfg.LoanPeriod),
				Logger:     opts.logger,
			}
			sum, err := seeder.Run(ctx, fixtures)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d categories, %d books, %d readers, %d loans\n",
				sum.Categories, sum.Books, sum.Readers, sum.Loans)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "fixture YAML file (default: built-in demo data)")
	return cmd
}

func readFixtures(path string) ([]byte, error) {
	if path == "" {
		return db.Fixtures, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixtures: %w", err)
	}
	return data, nil
}
