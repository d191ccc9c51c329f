package book

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryapi/internal/apperr"
	"libraryapi/internal/validator"
)

func newTestService(t *testing.T) (*Service, *MockRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)

	rules := validator.DefaultRules()
	rules.Now = func() time.Time { return time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) }
	engine, err := validator.NewEngine(rules)
	require.NoError(t, err)

	return NewService(repo, engine), repo
}

func ptr[T any](v T) *T { return &v }

func validCreate() CreateInput {
	return CreateInput{
		Title:  "Кобзар",
		Author: "Тарас Шевченко",
		ISBN:   "978-966-03-5128-8",
		Year:   1840,
	}
}

// updateThrough makes the mock run the service's apply callback against
// current, the way the store does inside its transaction.
func updateThrough(repo *MockRepository, id int64, current Book) *gomock.Call {
	return repo.EXPECT().Update(gomock.Any(), id, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ int64, apply func(Book, Lookup) (Patch, error)) (Book, error) {
			patch, err := apply(current, repo)
			if err != nil {
				return Book{}, err
			}
			return patch.Apply(current), nil
		})
}

func TestService_Create(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().FindByISBN(gomock.Any(), "978-966-03-5128-8").Return(Book{}, false, nil)
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, b *Book) error {
			b.ID = 11
			return nil
		})

		b, err := svc.Create(context.Background(), validCreate())
		require.NoError(t, err)
		assert.Equal(t, int64(11), b.ID)
		assert.Equal(t, 1, b.CopiesTotal)
		assert.Equal(t, 1, b.CopiesAvailable)
		assert.Equal(t, StatusAvailable, b.Status)
	})

	t.Run("available defaults to total", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().FindByISBN(gomock.Any(), gomock.Any()).Return(Book{}, false, nil)
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		in := validCreate()
		in.CopiesTotal = ptr(2)
		b, err := svc.Create(context.Background(), in)
		require.NoError(t, err)
		assert.Equal(t, 2, b.CopiesAvailable)
	})

	t.Run("collects every field error and skips uniqueness for a bad isbn", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Create(context.Background(), CreateInput{
			Title: "К",
			ISBN:  "978-96-03-5128-8",
			Year:  2026,
		})
		require.ErrorIs(t, err, apperr.ErrValidation)

		fields := apperr.FieldsOf(err)
		assert.Equal(t, "Title must be at least 2 characters", fields["title"])
		assert.Equal(t, "Field 'author' is required", fields["author"])
		assert.Equal(t, "Invalid ISBN format (978-XXX-XX-XXXX-X)", fields["isbn"])
		assert.Equal(t, "Year must be between 1000 and 2025", fields["year"])
	})

	t.Run("available above total", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().FindByISBN(gomock.Any(), gomock.Any()).Return(Book{}, false, nil)

		in := validCreate()
		in.CopiesTotal = ptr(2)
		in.CopiesAvailable = ptr(3)
		_, err := svc.Create(context.Background(), in)
		require.ErrorIs(t, err, apperr.ErrValidation)
		assert.Equal(t, "Copies available cannot exceed copies total", apperr.FieldsOf(err)["copies_available"])
	})

	t.Run("duplicate isbn is a conflict", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().FindByISBN(gomock.Any(), "978-966-03-5128-8").Return(Book{ID: 3}, true, nil)

		_, err := svc.Create(context.Background(), validCreate())
		require.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, MsgDuplicateISBN, apperr.FieldsOf(err)["isbn"])
	})

	t.Run("unknown category", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().FindByISBN(gomock.Any(), gomock.Any()).Return(Book{}, false, nil)
		repo.EXPECT().CategoryExists(gomock.Any(), int64(8)).Return(false, nil)

		in := validCreate()
		in.CategoryID = ptr(int64(8))
		_, err := svc.Create(context.Background(), in)
		assert.ErrorIs(t, err, ErrCategoryNotFound)
	})

	t.Run("store failure", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().FindByISBN(gomock.Any(), gomock.Any()).Return(Book{}, false, errors.New("connection reset"))

		_, err := svc.Create(context.Background(), validCreate())
		assert.EqualError(t, err, "connection reset")
	})
}

func TestService_Update(t *testing.T) {
	current := Book{ID: 5, Title: "Кобзар", Author: "Тарас Шевченко", ISBN: "978-966-03-5128-8", Year: 1840, CopiesTotal: 3, CopiesAvailable: 2, Status: StatusAvailable}

	t.Run("partial patch keeps other fields", func(t *testing.T) {
		svc, repo := newTestService(t)
		updateThrough(repo, 5, current)

		b, err := svc.Update(context.Background(), 5, UpdateInput{Title: ptr("  Гайдамаки ")})
		require.NoError(t, err)
		assert.Equal(t, "Гайдамаки", b.Title)
		assert.Equal(t, current.ISBN, b.ISBN)
		assert.Equal(t, 2, b.CopiesAvailable)
	})

	t.Run("shrinking total below available is rejected", func(t *testing.T) {
		svc, repo := newTestService(t)
		updateThrough(repo, 5, current)

		_, err := svc.Update(context.Background(), 5, UpdateInput{CopiesTotal: ptr(1)})
		require.ErrorIs(t, err, apperr.ErrValidation)
		assert.Equal(t, "Copies available cannot exceed copies total", apperr.FieldsOf(err)["copies_available"])
	})

	t.Run("unchanged isbn skips the uniqueness lookup", func(t *testing.T) {
		svc, repo := newTestService(t)
		updateThrough(repo, 5, current)

		_, err := svc.Update(context.Background(), 5, UpdateInput{ISBN: ptr(current.ISBN)})
		require.NoError(t, err)
	})

	t.Run("isbn taken by another book", func(t *testing.T) {
		svc, repo := newTestService(t)
		updateThrough(repo, 5, current)
		repo.EXPECT().FindByISBN(gomock.Any(), "978-617-12-0000-1").Return(Book{ID: 6}, true, nil)

		_, err := svc.Update(context.Background(), 5, UpdateInput{ISBN: ptr("978-617-12-0000-1")})
		require.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, MsgDuplicateISBN, apperr.FieldsOf(err)["isbn"])
	})

	t.Run("bad status and isbn format", func(t *testing.T) {
		svc, repo := newTestService(t)
		updateThrough(repo, 5, current)

		_, err := svc.Update(context.Background(), 5, UpdateInput{ISBN: ptr("123"), Status: ptr("borrowed")})
		require.ErrorIs(t, err, apperr.ErrValidation)
		fields := apperr.FieldsOf(err)
		assert.Contains(t, fields, "isbn")
		assert.Contains(t, fields, "status")
	})

	t.Run("not found", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().Update(gomock.Any(), int64(99), gomock.Any()).Return(Book{}, ErrNotFound)

		_, err := svc.Update(context.Background(), 99, UpdateInput{Title: ptr("Гайдамаки")})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPatch_Apply(t *testing.T) {
	b := Book{Title: "A", CopiesTotal: 2, CopiesAvailable: 1}
	status := StatusDamaged

	got := Patch{CopiesTotal: ptr(4), Status: &status, CategoryID: ptr(int64(2))}.Apply(b)

	assert.Equal(t, "A", got.Title)
	assert.Equal(t, 4, got.CopiesTotal)
	assert.Equal(t, 1, got.CopiesAvailable)
	assert.Equal(t, StatusDamaged, got.Status)
	assert.Equal(t, int64(2), *got.CategoryID)
	assert.Nil(t, b.CategoryID)
}

func TestPatch_Record(t *testing.T) {
	empty := ""
	rec := Patch{Title: ptr("Кобзар"), CoverImage: &empty}.record()

	assert.Equal(t, "Кобзар", rec["title"])
	assert.Contains(t, rec, "cover_image")
	assert.Nil(t, rec["cover_image"])
	assert.Len(t, rec, 2)
	assert.Empty(t, Patch{}.record())
}
