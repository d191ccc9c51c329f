package seed

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"libraryapi/db"
	"libraryapi/internal/book"
	"libraryapi/internal/category"
	"libraryapi/internal/loan"
	"libraryapi/internal/reader"
	"libraryapi/internal/validator"
)

type mockLoans struct {
	mock.Mock
}

func (m *mockLoans) Create(ctx context.Context, in loan.CreateInput) (loan.Loan, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(loan.Loan), args.Error(1)
}

// newSeeder wires the real category, book and reader services over mock
// repositories that accept every write.
func newSeeder(t *testing.T, loans LoanCreator) Seeder {
	t.Helper()
	ctrl := gomock.NewController(t)
	engine, err := validator.NewEngine(validator.DefaultRules())
	require.NoError(t, err)

	var nextID int64
	assign := func(id *int64) { nextID++; *id = nextID }

	categories := category.NewMockRepository(ctrl)
	categories.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, c *category.Category) error {
		assign(&c.ID)
		return nil
	}).AnyTimes()

	books := book.NewMockRepository(ctrl)
	books.EXPECT().FindByISBN(gomock.Any(), gomock.Any()).Return(book.Book{}, false, nil).AnyTimes()
	books.EXPECT().CategoryExists(gomock.Any(), gomock.Any()).Return(true, nil).AnyTimes()
	books.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, b *book.Book) error {
		assign(&b.ID)
		return nil
	}).AnyTimes()

	readers := reader.NewMockRepository(ctrl)
	readers.EXPECT().FindByCardNumber(gomock.Any(), gomock.Any()).Return(reader.Reader{}, false, nil).AnyTimes()
	readers.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, r *reader.Reader) error {
		assign(&r.ID)
		return nil
	}).AnyTimes()

	return Seeder{
		Categories: category.NewService(categories, engine),
		Books:      book.NewService(books, engine),
		Readers:    reader.NewService(readers, engine),
		Loans:      loans,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestEmbeddedFixturesPassValidation(t *testing.T) {
	f, err := Parse(db.Fixtures)
	require.NoError(t, err)
	require.NotEmpty(t, f.Books)

	loans := &mockLoans{}
	loans.On("Create", mock.Anything, mock.MatchedBy(func(in loan.CreateInput) bool {
		return in.BookID != 0 && in.ReaderID != 0 && in.CategoryID != 0
	})).Return(loan.Loan{ID: 1}, nil)

	sum, err := newSeeder(t, loans).Run(context.Background(), f)
	require.NoError(t, err)
	loans.AssertNumberOfCalls(t, "Create", len(f.Loans))

	assert.Equal(t, Summary{
		Categories: len(f.Categories),
		Books:      len(f.Books),
		Readers:    len(f.Readers),
		Loans:      len(f.Loans),
	}, sum)
}

func TestRun_UnknownReference(t *testing.T) {
	f := Fixtures{
		Categories: []CategoryFixture{{Name: "Поезія"}},
		Books: []BookFixture{{
			Title: "Кобзар", Author: "Тарас Шевченко", ISBN: "978-966-03-4093-1", Year: 1840, Category: "Поезія",
		}},
		Loans: []LoanFixture{{ISBN: "978-966-03-4093-1", CardNumber: "RD999999", Category: "Поезія"}},
	}

	_, err := newSeeder(t, &mockLoans{}).Run(context.Background(), f)
	assert.ErrorContains(t, err, `unknown reader "RD999999"`)

	f.Books[0].Category = "Проза"
	sum, err := newSeeder(t, &mockLoans{}).Run(context.Background(), f)
	assert.ErrorContains(t, err, `unknown category "Проза"`)
	assert.Equal(t, 1, sum.Categories)
}

func TestRun_StopsOnServiceError(t *testing.T) {
	f, err := Parse(db.Fixtures)
	require.NoError(t, err)

	loans := &mockLoans{}
	loans.On("Create", mock.Anything, mock.Anything).Return(loan.Loan{}, loan.ErrBookUnavailable).Once()

	sum, err := newSeeder(t, loans).Run(context.Background(), f)
	require.ErrorIs(t, err, loan.ErrBookUnavailable)
	loans.AssertExpectations(t)
	assert.Zero(t, sum.Loans)
	assert.Equal(t, len(f.Readers), sum.Readers)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("books: [unclosed"))
	assert.Error(t, err)

	_, err = Parse([]byte("books: {title: 1}"))
	assert.Error(t, err)
}
