package reader

import (
	"context"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryapi/internal/apperr"
	"libraryapi/internal/validator"
)

var fixedNow = time.Date(2025, 3, 1, 15, 30, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *MockRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	repo := NewMockRepository(ctrl)

	rules := validator.DefaultRules()
	rules.Now = func() time.Time { return fixedNow }
	engine, err := validator.NewEngine(rules)
	require.NoError(t, err)

	return NewService(repo, engine), repo
}

func strPtr(s string) *string { return &s }

func validCreate() CreateInput {
	return CreateInput{
		Name:       "Леся Українка",
		CardNumber: "rd123456",
		Phone:      "+380671234567",
		Email:      "lesia@example.com",
	}
}

func TestService_Create(t *testing.T) {
	t.Run("normalizes card number and stamps registration date", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().FindByCardNumber(gomock.Any(), "RD123456").Return(Reader{}, false, nil)
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, r *Reader) error {
			r.ID = 1
			return nil
		})

		r, err := svc.Create(context.Background(), validCreate())
		require.NoError(t, err)
		assert.Equal(t, "RD123456", r.CardNumber)
		assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), r.RegistrationDate)
	})

	t.Run("duplicate card in any case is a conflict", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().FindByCardNumber(gomock.Any(), "RD123456").Return(Reader{ID: 2, CardNumber: "RD123456"}, true, nil)

		_, err := svc.Create(context.Background(), validCreate())
		require.ErrorIs(t, err, apperr.ErrConflict)
		assert.Equal(t, MsgDuplicateCard, apperr.FieldsOf(err)["card_number"])
	})

	t.Run("format errors collected, card lookup skipped", func(t *testing.T) {
		svc, _ := newTestService(t)

		_, err := svc.Create(context.Background(), CreateInput{
			Name:       "Lesya",
			CardNumber: "RD12",
			Phone:      "0671234567",
			Email:      "lesia@",
		})
		require.ErrorIs(t, err, apperr.ErrValidation)

		fields := apperr.FieldsOf(err)
		assert.Equal(t, "Name can only contain letters and spaces", fields["name"])
		assert.Equal(t, "Invalid card number format (RD123456)", fields["card_number"])
		assert.Equal(t, "Invalid phone format (+380XXXXXXXXX)", fields["phone"])
		assert.Equal(t, "Invalid email format", fields["email"])
	})

	t.Run("format error and duplicate reported together", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().FindByCardNumber(gomock.Any(), "RD123456").Return(Reader{ID: 2}, true, nil)

		in := validCreate()
		in.Email = "nope"
		_, err := svc.Create(context.Background(), in)
		require.ErrorIs(t, err, apperr.ErrValidation)
		fields := apperr.FieldsOf(err)
		assert.Equal(t, MsgDuplicateCard, fields["card_number"])
		assert.Equal(t, "Invalid email format", fields["email"])
	})
}

func TestService_Update(t *testing.T) {
	current := Reader{ID: 7, Name: "Леся Українка", CardNumber: "RD123456", Phone: "+380671234567", Email: "lesia@example.com"}

	t.Run("own card number is not a duplicate", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().GetByID(gomock.Any(), int64(7)).Return(current, nil)
		repo.EXPECT().Update(gomock.Any(), int64(7), Patch{CardNumber: strPtr("RD123456")}).Return(current, nil)

		_, err := svc.Update(context.Background(), 7, UpdateInput{CardNumber: strPtr("rd123456")})
		require.NoError(t, err)
	})

	t.Run("card taken by someone else", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().GetByID(gomock.Any(), int64(7)).Return(current, nil)
		repo.EXPECT().FindByCardNumber(gomock.Any(), "RD654321").Return(Reader{ID: 8}, true, nil)

		_, err := svc.Update(context.Background(), 7, UpdateInput{CardNumber: strPtr("RD654321")})
		assert.ErrorIs(t, err, apperr.ErrConflict)
	})

	t.Run("not found", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().GetByID(gomock.Any(), int64(70)).Return(Reader{}, ErrNotFound)

		_, err := svc.Update(context.Background(), 70, UpdateInput{})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("blank phone rejected", func(t *testing.T) {
		svc, repo := newTestService(t)
		repo.EXPECT().GetByID(gomock.Any(), int64(7)).Return(current, nil)

		_, err := svc.Update(context.Background(), 7, UpdateInput{Phone: strPtr(" ")})
		require.ErrorIs(t, err, apperr.ErrValidation)
		assert.Contains(t, apperr.FieldsOf(err), "phone")
	})
}
