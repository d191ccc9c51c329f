package loan

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"libraryapi/internal/platform/postgres"
)

const selectColumns = `l.id, l.book_id, l.reader_id, l.category_id, l.loan_date, l.return_date,
	l.actual_return_date, l.fine_amount, l.status, l.created_at`

const detailsQuery = `
	SELECT ` + selectColumns + `, b.title, b.author, b.isbn, r.name, r.card_number, c.name
	FROM loans l
	JOIN books b ON b.id = l.book_id
	JOIN readers r ON r.id = l.reader_id
	JOIN categories c ON c.id = l.category_id`

var returningColumns = []string{
	"id", "book_id", "reader_id", "category_id", "loan_date", "return_date",
	"actual_return_date", "fine_amount", "status", "created_at",
}

type PostgresStore struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresStore(db *pgxpool.Pool, timeout time.Duration) *PostgresStore {
	return &PostgresStore{db: db, timeout: timeout}
}

func (s *PostgresStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func scanLoan(row pgx.Row, extra ...any) (Loan, error) {
	var l Loan
	dest := []any{
		&l.ID, &l.BookID, &l.ReaderID, &l.CategoryID, &l.LoanDate, &l.ReturnDate,
		&l.ActualReturnDate, &l.FineAmount, &l.Status, &l.CreatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return l, err
}

// WithinTx runs fn in a database transaction bounded by the store timeout.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return postgres.InTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(ctx, pgTx{tx: tx})
	})
}

func (s *PostgresStore) List(ctx context.Context) ([]WithDetails, error) {
	return s.listDetails(ctx, detailsQuery+` ORDER BY l.loan_date DESC, l.id DESC`)
}

func (s *PostgresStore) ListActive(ctx context.Context) ([]WithDetails, error) {
	return s.listDetails(ctx, detailsQuery+` WHERE l.status = 'active' ORDER BY l.loan_date DESC, l.id DESC`)
}

func (s *PostgresStore) ListOverdue(ctx context.Context, now time.Time) ([]WithDetails, error) {
	return s.listDetails(ctx,
		detailsQuery+` WHERE l.status = 'active' AND l.return_date < $1 ORDER BY l.loan_date DESC, l.id DESC`, now)
}

func (s *PostgresStore) listDetails(ctx context.Context, query string, args ...any) ([]WithDetails, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	out := make([]WithDetails, 0)
	for rows.Next() {
		var item WithDetails
		item.Loan, err = scanLoan(rows,
			&item.Title, &item.Author, &item.ISBN, &item.ReaderName, &item.CardNumber, &item.CategoryName)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetByID(ctx context.Context, id int64) (Loan, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return getLoan(ctx, s.db, id, false)
}

func getLoan(ctx context.Context, q postgres.Querier, id int64, forUpdate bool) (Loan, error) {
	query := `SELECT ` + selectColumns + ` FROM loans l WHERE l.id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	l, err := scanLoan(q.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return Loan{}, ErrNotFound
		}
		return Loan{}, fmt.Errorf("get loan %d: %w", id, err)
	}
	return l, nil
}

type pgTx struct {
	tx pgx.Tx
}

func (t pgTx) LockLoan(ctx context.Context, id int64) (Loan, error) {
	return getLoan(ctx, t.tx, id, true)
}

func (t pgTx) LockBook(ctx context.Context, id int64) (Stock, error) {
	st := Stock{BookID: id}
	err := t.tx.QueryRow(ctx,
		`SELECT copies_total, copies_available FROM books WHERE id = $1 FOR UPDATE`, id,
	).Scan(&st.CopiesTotal, &st.CopiesAvailable)
	if err != nil {
		if postgres.IsNoRows(err) {
			return Stock{}, ErrBookNotFound
		}
		return Stock{}, fmt.Errorf("lock book %d: %w", id, err)
	}
	return st, nil
}

func (t pgTx) ReaderExists(ctx context.Context, id int64) (bool, error) {
	return t.exists(ctx, `SELECT EXISTS (SELECT 1 FROM readers WHERE id = $1)`, id)
}

func (t pgTx) CategoryExists(ctx context.Context, id int64) (bool, error) {
	return t.exists(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id)
}

func (t pgTx) exists(ctx context.Context, query string, id int64) (bool, error) {
	var ok bool
	if err := t.tx.QueryRow(ctx, query, id).Scan(&ok); err != nil {
		return false, fmt.Errorf("check existence of %d: %w", id, err)
	}
	return ok, nil
}

func (t pgTx) Insert(ctx context.Context, l *Loan) error {
	sql, args, err := postgres.BuildInsert("loans", postgres.Record{
		"book_id":            l.BookID,
		"reader_id":          l.ReaderID,
		"category_id":        l.CategoryID,
		"loan_date":          l.LoanDate,
		"return_date":        l.ReturnDate,
		"actual_return_date": postgres.Nullable(l.ActualReturnDate),
		"fine_amount":        postgres.Nullable(l.FineAmount),
		"status":             string(l.Status),
	}, "id", "created_at")
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if err := t.tx.QueryRow(ctx, sql, args...).Scan(&l.ID, &l.CreatedAt); err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

func (t pgTx) Update(ctx context.Context, id int64, patch Patch) (Loan, error) {
	sql, args, err := postgres.BuildUpdate("loans", id, patch.record(), returningColumns...)
	if err != nil {
		return Loan{}, fmt.Errorf("build update: %w", err)
	}
	l, err := scanLoan(t.tx.QueryRow(ctx, sql, args...))
	if err != nil {
		if postgres.IsNoRows(err) {
			return Loan{}, ErrNotFound
		}
		return Loan{}, fmt.Errorf("update loan %d: %w", id, err)
	}
	return l, nil
}

func (t pgTx) Delete(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM loans WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete loan %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t pgTx) SetCopiesAvailable(ctx context.Context, bookID int64, n int) error {
	tag, err := t.tx.Exec(ctx, `UPDATE books SET copies_available = $2 WHERE id = $1`, bookID, n)
	if err != nil {
		return fmt.Errorf("set copies of book %d: %w", bookID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookNotFound
	}
	return nil
}

func (p Patch) record() postgres.Record {
	rec := postgres.Record{}
	if p.BookID != nil {
		rec["book_id"] = *p.BookID
	}
	if p.ReaderID != nil {
		rec["reader_id"] = *p.ReaderID
	}
	if p.CategoryID != nil {
		rec["category_id"] = *p.CategoryID
	}
	if p.LoanDate != nil {
		rec["loan_date"] = *p.LoanDate
	}
	if p.ReturnDate != nil {
		rec["return_date"] = *p.ReturnDate
	}
	if p.ClearActualReturnDate {
		rec["actual_return_date"] = nil
	}
	if p.ActualReturnDate != nil {
		rec["actual_return_date"] = *p.ActualReturnDate
	}
	if p.FineAmount != nil {
		rec["fine_amount"] = *p.FineAmount
	}
	if p.Status != nil {
		rec["status"] = string(*p.Status)
	}
	return rec
}
