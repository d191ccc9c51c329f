package category

import (
	"context"
	"strings"

	"libraryapi/internal/validator"
)

// Service provides category business logic.
type Service struct {
	repo  Repository
	rules *validator.Engine
}

// NewService creates a new category service.
func NewService(repo Repository, rules *validator.Engine) *Service {
	return &Service{repo: repo, rules: rules}
}

// List returns all categories with their book counts, ordered by name.
func (s *Service) List(ctx context.Context) ([]WithBookCount, error) {
	return s.repo.List(ctx)
}

// Popular returns the categories with the most loans. Out-of-range limits
// fall back to the default or are capped.
func (s *Service) Popular(ctx context.Context, limit int) ([]WithLoanCount, error) {
	if limit < 1 {
		limit = DefaultPopularLimit
	}
	if limit > MaxPopularLimit {
		limit = MaxPopularLimit
	}
	return s.repo.Popular(ctx, limit)
}

func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = validator.Optional(in.Description)
	in.FloorLocation = validator.Optional(in.FloorLocation)

	v := validator.New()
	s.rules.Struct(v, in)
	if err := v.Err(); err != nil {
		return Category{}, err
	}

	c := Category{
		Name:          in.Name,
		Description:   in.Description,
		FloorLocation: in.FloorLocation,
	}
	if err := s.repo.Create(ctx, &c); err != nil {
		return Category{}, err
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Category, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Category{}, err
	}

	in.Name = validator.TrimPtr(in.Name)
	in.Description = validator.TrimPtr(in.Description)
	in.FloorLocation = validator.TrimPtr(in.FloorLocation)

	v := validator.New()
	s.rules.Struct(v, in)
	if err := v.Err(); err != nil {
		return Category{}, err
	}

	patch := Patch{Name: in.Name, Description: in.Description, FloorLocation: in.FloorLocation}
	if patch.Empty() {
		return current, nil
	}
	return s.repo.Update(ctx, id, patch)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
