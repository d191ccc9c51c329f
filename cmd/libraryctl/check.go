package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"libraryapi/internal/platform/postgres"
)

var checkedTables = []string{"categories", "books", "readers", "loans"}

// stockDriftSQL counts books whose available copies differ from copies_total
// minus their active and overdue loans. Manual edits to copies_available
// show up here too.
const stockDriftSQL = `
SELECT count(*) FROM (
	SELECT b.id
	FROM books b
	LEFT JOIN loans l ON l.book_id = b.id AND l.status IN ('active', 'overdue')
	GROUP BY b.id, b.copies_total, b.copies_available
	HAVING b.copies_available <> b.copies_total - count(l.id)
) drift`

func newCheckCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify connectivity and print per-table row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := opts.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			return checkDatabase(cmd.Context(), pool, cmd.OutOrStdout())
		},
	}
}

func checkDatabase(ctx context.Context, q postgres.Querier, w io.Writer) error {
	for _, table := range checkedTables {
		var n int64
		if err := q.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&n); err != nil {
			return fmt.Errorf("count %s: %w", table, err)
		}
		fmt.Fprintf(w, "%-12s %d\n", table, n)
	}

	var drift int64
	if err := q.QueryRow(ctx, stockDriftSQL).Scan(&drift); err != nil {
		return fmt.Errorf("check stock: %w", err)
	}
	fmt.Fprintf(w, "%-12s %d\n", "stock drift", drift)
	return nil
}
