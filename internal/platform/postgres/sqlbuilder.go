package postgres

import (
	"errors"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
)

var ErrEmptyPatch = errors.New("no columns to update")

var dialect = goqu.Dialect("postgres")

// Record maps column names to values.
type Record map[string]any

// BuildInsert renders a prepared INSERT for a single row.
func BuildInsert(table string, rec Record, returning ...string) (string, []any, error) {
	ds := dialect.Insert(table).Prepared(true).Rows(goqu.Record(rec))
	if len(returning) > 0 {
		ds = ds.Returning(columns(returning)...)
	}
	return ds.ToSQL()
}

// BuildUpdate renders a prepared UPDATE of the row with the given id that
// touches only the columns present in rec.
func BuildUpdate(table string, id int64, rec Record, returning ...string) (string, []any, error) {
	if len(rec) == 0 {
		return "", nil, ErrEmptyPatch
	}
	ds := dialect.Update(table).Prepared(true).
		Set(goqu.Record(rec)).
		Where(goqu.C("id").Eq(id))
	if len(returning) > 0 {
		ds = ds.Returning(columns(returning)...)
	}
	return ds.ToSQL()
}

func columns(names []string) []any {
	cols := make([]any, len(names))
	for i, n := range names {
		cols[i] = goqu.C(n)
	}
	return cols
}

// Nullable maps a nil pointer to SQL NULL and dereferences the rest.
func Nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
