package loan_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryapi/internal/apperr"
	"libraryapi/internal/loan"
	"libraryapi/internal/testutil"
	"libraryapi/internal/validator"
)

type library struct {
	pool     *pgxpool.Pool
	svc      *loan.Service
	book     int64
	reader   int64
	category int64
}

func newLibrary(t *testing.T, copies int) library {
	t.Helper()
	pool := testutil.OpenDB(t)
	ctx := context.Background()

	lib := library{pool: pool}
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO categories (name) VALUES ('Поезія') RETURNING id`).Scan(&lib.category))
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO books (title, author, isbn, year, copies_total, copies_available, category_id)
		VALUES ('Кобзар', 'Шевченко', '978-966-03-4561-7', 1840, $1, $1, $2) RETURNING id`,
		copies, lib.category).Scan(&lib.book))
	require.NoError(t, pool.QueryRow(ctx, `
		INSERT INTO readers (name, card_number, phone, email)
		VALUES ('Олена Пчілка', 'RD000001', '+380501234567', 'olena@example.com') RETURNING id`).Scan(&lib.reader))

	engine, err := validator.NewEngine(validator.DefaultRules())
	require.NoError(t, err)
	lib.svc = loan.NewService(loan.NewPostgresStore(pool, 5*time.Second), engine, 0)
	return lib
}

func (lib library) available(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, lib.pool.QueryRow(context.Background(),
		`SELECT copies_available FROM books WHERE id = $1`, lib.book).Scan(&n))
	return n
}

func (lib library) input() loan.CreateInput {
	return loan.CreateInput{BookID: lib.book, ReaderID: lib.reader, CategoryID: lib.category}
}

func TestPostgresStore_Lifecycle(t *testing.T) {
	lib := newLibrary(t, 2)
	ctx := context.Background()

	created, err := lib.svc.Create(ctx, lib.input())
	require.NoError(t, err)
	assert.Equal(t, loan.StatusActive, created.Status)
	assert.Equal(t, 1, lib.available(t))

	list, err := lib.svc.Active(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Кобзар", list[0].Title)
	assert.Equal(t, "RD000001", list[0].CardNumber)

	returned := string(loan.StatusReturned)
	updated, err := lib.svc.Update(ctx, created.ID, loan.UpdateInput{Status: &returned})
	require.NoError(t, err)
	assert.Equal(t, loan.StatusReturned, updated.Status)
	assert.NotNil(t, updated.ActualReturnDate)
	assert.Equal(t, 2, lib.available(t))

	require.NoError(t, lib.svc.Delete(ctx, created.ID))
	assert.Equal(t, 2, lib.available(t))
	_, err = lib.svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPostgresStore_Overdue(t *testing.T) {
	lib := newLibrary(t, 1)
	ctx := context.Background()

	in := lib.input()
	loanDate, returnDate := "2024-01-10", "2024-02-10"
	in.LoanDate, in.ReturnDate = &loanDate, &returnDate
	_, err := lib.svc.Create(ctx, in)
	require.NoError(t, err)

	overdue, err := lib.svc.Overdue(ctx)
	require.NoError(t, err)
	assert.Len(t, overdue, 1)
}

func TestPostgresStore_ConcurrentCreatesNeverOverbook(t *testing.T) {
	const copies, workers = 3, 10
	lib := newLibrary(t, copies)

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		ok, refused int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := lib.svc.Create(context.Background(), lib.input())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, loan.ErrBookUnavailable):
				refused++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, copies, ok)
	assert.Equal(t, workers-copies, refused)
	assert.Equal(t, 0, lib.available(t))
}

func TestPostgresStore_DeleteRestrictedByLoans(t *testing.T) {
	lib := newLibrary(t, 1)
	ctx := context.Background()

	_, err := lib.svc.Create(ctx, lib.input())
	require.NoError(t, err)

	_, err = lib.pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, lib.book)
	require.Error(t, err)
}
