package reader

import (
	"context"
	"strings"
	"time"

	"libraryapi/internal/validator"
)

// Service provides reader business logic.
type Service struct {
	repo  Repository
	rules *validator.Engine
}

// NewService creates a new reader service.
func NewService(repo Repository, rules *validator.Engine) *Service {
	return &Service{repo: repo, rules: rules}
}

// List returns all readers with their active loan counts, ordered by name.
func (s *Service) List(ctx context.Context) ([]WithActiveLoans, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Reader, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Reader, error) {
	in.Name = validator.NormalizeName(in.Name)
	in.CardNumber = CanonicalCardNumber(in.CardNumber)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)

	v := validator.New()
	s.rules.Struct(v, in)
	if err := s.checkCard(ctx, v, in.CardNumber, 0); err != nil {
		return Reader{}, err
	}
	if err := v.Err(); err != nil {
		return Reader{}, err
	}

	r := Reader{
		Name:             in.Name,
		CardNumber:       in.CardNumber,
		Phone:            in.Phone,
		Email:            in.Email,
		RegistrationDate: today(s.rules.Rules().Now()),
	}
	if err := s.repo.Create(ctx, &r); err != nil {
		return Reader{}, err
	}
	return r, nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Reader, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Reader{}, err
	}

	if in.Name != nil {
		name := validator.NormalizeName(*in.Name)
		in.Name = &name
	}
	if in.CardNumber != nil {
		card := CanonicalCardNumber(*in.CardNumber)
		in.CardNumber = &card
	}
	in.Phone = validator.TrimPtr(in.Phone)
	in.Email = validator.TrimPtr(in.Email)

	v := validator.New()
	s.rules.Struct(v, in)
	if in.CardNumber != nil && *in.CardNumber != current.CardNumber {
		if err := s.checkCard(ctx, v, *in.CardNumber, id); err != nil {
			return Reader{}, err
		}
	}
	if err := v.Err(); err != nil {
		return Reader{}, err
	}

	patch := Patch{Name: in.Name, CardNumber: in.CardNumber, Phone: in.Phone, Email: in.Email}
	if patch.Empty() {
		return current, nil
	}
	return s.repo.Update(ctx, id, patch)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// checkCard records a conflict when another reader holds card. It does
// nothing if the card number already failed its format rule.
func (s *Service) checkCard(ctx context.Context, v *validator.Validator, card string, selfID int64) error {
	if !v.FieldValid("card_number") {
		return nil
	}
	other, found, err := s.repo.FindByCardNumber(ctx, card)
	if err != nil {
		return err
	}
	if found && other.ID != selfID {
		v.AddConflict("card_number", MsgDuplicateCard)
	}
	return nil
}

func today(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
