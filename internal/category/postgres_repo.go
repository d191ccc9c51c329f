package category

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"libraryapi/internal/platform/postgres"
)

const selectColumns = `c.id, c.name, c.description, c.floor_location, c.created_at`

var returningColumns = []string{"id", "name", "description", "floor_location", "created_at"}

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func (r *PostgresRepo) List(ctx context.Context) ([]WithBookCount, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+selectColumns+`, COUNT(b.id)
		FROM categories c
		LEFT JOIN books b ON b.category_id = c.id
		GROUP BY c.id
		ORDER BY c.name, c.id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]WithBookCount, 0)
	for rows.Next() {
		var c WithBookCount
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.FloorLocation, &c.CreatedAt, &c.BooksCount); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) Popular(ctx context.Context, limit int) ([]WithLoanCount, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+selectColumns+`, COUNT(l.id) AS loans_count
		FROM categories c
		LEFT JOIN loans l ON l.category_id = c.id
		GROUP BY c.id
		ORDER BY loans_count DESC, c.name, c.id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("popular categories: %w", err)
	}
	defer rows.Close()

	out := make([]WithLoanCount, 0, limit)
	for rows.Next() {
		var c WithLoanCount
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.FloorLocation, &c.CreatedAt, &c.LoansCount); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Category, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var c Category
	err := r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM categories c WHERE c.id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Description, &c.FloorLocation, &c.CreatedAt)
	if err != nil {
		if postgres.IsNoRows(err) {
			return Category{}, ErrNotFound
		}
		return Category{}, fmt.Errorf("get category %d: %w", id, err)
	}
	return c, nil
}

func (r *PostgresRepo) Create(ctx context.Context, c *Category) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	sql, args, err := postgres.BuildInsert("categories", postgres.Record{
		"name":           c.Name,
		"description":    postgres.Nullable(c.Description),
		"floor_location": postgres.Nullable(c.FloorLocation),
	}, "id", "created_at")
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.CreatedAt); err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Update(ctx context.Context, id int64, patch Patch) (Category, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rec := postgres.Record{}
	if patch.Name != nil {
		rec["name"] = *patch.Name
	}
	if patch.Description != nil {
		rec["description"] = nullIfBlank(*patch.Description)
	}
	if patch.FloorLocation != nil {
		rec["floor_location"] = nullIfBlank(*patch.FloorLocation)
	}

	sql, args, err := postgres.BuildUpdate("categories", id, rec, returningColumns...)
	if err != nil {
		return Category{}, fmt.Errorf("build update: %w", err)
	}

	var c Category
	err = r.db.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.Name, &c.Description, &c.FloorLocation, &c.CreatedAt)
	if err != nil {
		if postgres.IsNoRows(err) {
			return Category{}, ErrNotFound
		}
		return Category{}, fmt.Errorf("update category %d: %w", id, err)
	}
	return c, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nullIfBlank(s string) any {
	if s == "" {
		return nil
	}
	return s
}
