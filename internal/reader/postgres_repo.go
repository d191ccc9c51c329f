package reader

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"libraryapi/internal/platform/postgres"
)

const selectColumns = `r.id, r.name, r.card_number, r.phone, r.email, r.registration_date, r.created_at`

var returningColumns = []string{"id", "name", "card_number", "phone", "email", "registration_date", "created_at"}

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

func scanReader(row pgx.Row, extra ...any) (Reader, error) {
	var rd Reader
	dest := []any{&rd.ID, &rd.Name, &rd.CardNumber, &rd.Phone, &rd.Email, &rd.RegistrationDate, &rd.CreatedAt}
	err := row.Scan(append(dest, extra...)...)
	return rd, err
}

func (r *PostgresRepo) List(ctx context.Context) ([]WithActiveLoans, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT `+selectColumns+`, COUNT(l.id) FILTER (WHERE l.status = 'active')
		FROM readers r
		LEFT JOIN loans l ON l.reader_id = r.id
		GROUP BY r.id
		ORDER BY r.name, r.id`)
	if err != nil {
		return nil, fmt.Errorf("list readers: %w", err)
	}
	defer rows.Close()

	out := make([]WithActiveLoans, 0)
	for rows.Next() {
		var item WithActiveLoans
		item.Reader, err = scanReader(rows, &item.ActiveLoans)
		if err != nil {
			return nil, fmt.Errorf("scan reader: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Reader, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rd, err := scanReader(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM readers r WHERE r.id = $1`, id))
	if err != nil {
		if postgres.IsNoRows(err) {
			return Reader{}, ErrNotFound
		}
		return Reader{}, fmt.Errorf("get reader %d: %w", id, err)
	}
	return rd, nil
}

func (r *PostgresRepo) FindByCardNumber(ctx context.Context, card string) (Reader, bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rd, err := scanReader(r.db.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM readers r WHERE upper(r.card_number) = upper($1)`, card))
	if err != nil {
		if postgres.IsNoRows(err) {
			return Reader{}, false, nil
		}
		return Reader{}, false, fmt.Errorf("find reader by card: %w", err)
	}
	return rd, true, nil
}

func (r *PostgresRepo) Create(ctx context.Context, rd *Reader) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	sql, args, err := postgres.BuildInsert("readers", postgres.Record{
		"name":              rd.Name,
		"card_number":       rd.CardNumber,
		"phone":             rd.Phone,
		"email":             rd.Email,
		"registration_date": rd.RegistrationDate,
	}, "id", "created_at")
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&rd.ID, &rd.CreatedAt); err != nil {
		if postgres.IsUniqueViolation(err) {
			return ErrDuplicateCard
		}
		return fmt.Errorf("insert reader: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Update(ctx context.Context, id int64, patch Patch) (Reader, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rec := postgres.Record{}
	if patch.Name != nil {
		rec["name"] = *patch.Name
	}
	if patch.CardNumber != nil {
		rec["card_number"] = *patch.CardNumber
	}
	if patch.Phone != nil {
		rec["phone"] = *patch.Phone
	}
	if patch.Email != nil {
		rec["email"] = *patch.Email
	}

	sql, args, err := postgres.BuildUpdate("readers", id, rec, returningColumns...)
	if err != nil {
		return Reader{}, fmt.Errorf("build update: %w", err)
	}

	rd, err := scanReader(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		switch {
		case postgres.IsNoRows(err):
			return Reader{}, ErrNotFound
		case postgres.IsUniqueViolation(err):
			return Reader{}, ErrDuplicateCard
		}
		return Reader{}, fmt.Errorf("update reader %d: %w", id, err)
	}
	return rd, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM readers WHERE id = $1`, id)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return ErrInUse
		}
		return fmt.Errorf("delete reader %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
