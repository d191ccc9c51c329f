package book

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"libraryapi/internal/platform/postgres"
)

const selectColumns = `b.id, b.title, b.author, b.isbn, b.year, b.copies_total, b.copies_available,
	b.category_id, b.status, b.cover_image, b.created_at`

var returningColumns = []string{
	"id", "title", "author", "isbn", "year", "copies_total", "copies_available",
	"category_id", "status", "cover_image", "created_at",
}

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
	queries
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout, queries: queries{q: db}}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func scanBook(row pgx.Row, extra ...any) (Book, error) {
	var b Book
	dest := []any{
		&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Year, &b.CopiesTotal, &b.CopiesAvailable,
		&b.CategoryID, &b.Status, &b.CoverImage, &b.CreatedAt,
	}
	err := row.Scan(append(dest, extra...)...)
	return b, err
}

func (r *PostgresRepo) List(ctx context.Context) ([]WithCategory, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+selectColumns+`, c.name
		FROM books b
		LEFT JOIN categories c ON c.id = b.category_id
		ORDER BY b.title, b.id`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	out := make([]WithCategory, 0)
	for rows.Next() {
		var item WithCategory
		item.Book, err = scanBook(rows, &item.CategoryName)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Book, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return getBook(ctx, r.db, id, false)
}

func getBook(ctx context.Context, q postgres.Querier, id int64, forUpdate bool) (Book, error) {
	query := `SELECT ` + selectColumns + ` FROM books b WHERE b.id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	b, err := scanBook(q.QueryRow(ctx, query, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return Book{}, ErrNotFound
		}
		return Book{}, fmt.Errorf("get book %d: %w", id, err)
	}
	return b, nil
}

func (r *PostgresRepo) Create(ctx context.Context, b *Book) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	sql, args, err := postgres.BuildInsert("books", postgres.Record{
		"title":            b.Title,
		"author":           b.Author,
		"isbn":             b.ISBN,
		"year":             b.Year,
		"copies_total":     b.CopiesTotal,
		"copies_available": b.CopiesAvailable,
		"category_id":      postgres.Nullable(b.CategoryID),
		"status":           string(b.Status),
		"cover_image":      postgres.Nullable(b.CoverImage),
	}, "id", "created_at")
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&b.ID, &b.CreatedAt); err != nil {
		return classifyWrite(err, "insert book")
	}
	return nil
}

func (r *PostgresRepo) Update(ctx context.Context, id int64, apply func(current Book, lookup Lookup) (Patch, error)) (Book, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var updated Book
	err := postgres.InTx(ctx, r.db, func(tx pgx.Tx) error {
		current, err := getBook(ctx, tx, id, true)
		if err != nil {
			return err
		}

		patch, err := apply(current, queries{q: tx})
		if err != nil {
			return err
		}

		rec := patch.record()
		if len(rec) == 0 {
			updated = current
			return nil
		}

		sql, args, err := postgres.BuildUpdate("books", id, rec, returningColumns...)
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}
		updated, err = scanBook(tx.QueryRow(ctx, sql, args...))
		if err != nil {
			return classifyWrite(err, fmt.Sprintf("update book %d", id))
		}
		return nil
	})
	if err != nil {
		return Book{}, err
	}
	return updated, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p Patch) record() postgres.Record {
	rec := postgres.Record{}
	if p.Title != nil {
		rec["title"] = *p.Title
	}
	if p.Author != nil {
		rec["author"] = *p.Author
	}
	if p.ISBN != nil {
		rec["isbn"] = *p.ISBN
	}
	if p.Year != nil {
		rec["year"] = *p.Year
	}
	if p.CopiesTotal != nil {
		rec["copies_total"] = *p.CopiesTotal
	}
	if p.CopiesAvailable != nil {
		rec["copies_available"] = *p.CopiesAvailable
	}
	if p.CategoryID != nil {
		rec["category_id"] = *p.CategoryID
	}
	if p.Status != nil {
		rec["status"] = string(*p.Status)
	}
	if p.CoverImage != nil {
		if *p.CoverImage == "" {
			rec["cover_image"] = nil
		} else {
			rec["cover_image"] = *p.CoverImage
		}
	}
	return rec
}

func classifyWrite(err error, op string) error {
	switch {
	case postgres.IsUniqueViolation(err):
		return ErrDuplicateISBN
	case postgres.IsForeignKeyViolation(err):
		return ErrCategoryNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// queries runs the lookups against either the pool or a transaction.
type queries struct {
	q postgres.Querier
}

func (q queries) FindByISBN(ctx context.Context, isbn string) (Book, bool, error) {
	b, err := scanBook(q.q.QueryRow(ctx, `SELECT `+selectColumns+` FROM books b WHERE b.isbn = $1`, isbn))
	if err != nil {
		if postgres.IsNoRows(err) {
			return Book{}, false, nil
		}
		return Book{}, false, fmt.Errorf("find book by isbn: %w", err)
	}
	return b, true, nil
}

func (q queries) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := q.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check category %d: %w", id, err)
	}
	return exists, nil
}
