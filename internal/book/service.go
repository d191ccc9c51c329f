package book

import (
	"context"
	"strings"

	"libraryapi/internal/validator"
)

const msgCopiesExceedTotal = "Copies available cannot exceed copies total"

// Service provides book-related business logic.
type Service struct {
	repo  Repository
	rules *validator.Engine
}

// NewService creates a new book service.
func NewService(repo Repository, rules *validator.Engine) *Service {
	return &Service{repo: repo, rules: rules}
}

// List returns all books with their category names, ordered by title.
func (s *Service) List(ctx context.Context) ([]WithCategory, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Book, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Book, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.ISBN = strings.TrimSpace(in.ISBN)
	in.Status = validator.TrimPtr(in.Status)
	in.CoverImage = validator.Optional(in.CoverImage)

	v := validator.New()
	s.rules.Struct(v, in)

	b := Book{
		Title:       in.Title,
		Author:      in.Author,
		ISBN:        in.ISBN,
		Year:        in.Year,
		CopiesTotal: 1,
		CategoryID:  in.CategoryID,
		Status:      StatusAvailable,
		CoverImage:  in.CoverImage,
	}
	if in.CopiesTotal != nil {
		b.CopiesTotal = *in.CopiesTotal
	}
	b.CopiesAvailable = b.CopiesTotal
	if in.CopiesAvailable != nil {
		b.CopiesAvailable = *in.CopiesAvailable
	}
	if in.Status != nil {
		b.Status = Status(*in.Status)
	}

	if v.FieldValid("copies_total") && v.FieldValid("copies_available") {
		v.Check(b.CopiesAvailable <= b.CopiesTotal, "copies_available", msgCopiesExceedTotal)
	}
	if err := s.checkISBN(ctx, v, s.repo, b.ISBN, 0); err != nil {
		return Book{}, err
	}
	if err := v.Err(); err != nil {
		return Book{}, err
	}
	if err := s.checkCategory(ctx, s.repo, b.CategoryID); err != nil {
		return Book{}, err
	}

	if err := s.repo.Create(ctx, &b); err != nil {
		return Book{}, err
	}
	return b, nil
}

// Update applies a partial change. Rules that span fields are evaluated on
// the stored book with the change applied.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Book, error) {
	in.Title = validator.TrimPtr(in.Title)
	in.Author = validator.TrimPtr(in.Author)
	in.ISBN = validator.TrimPtr(in.ISBN)
	in.Status = validator.TrimPtr(in.Status)
	in.CoverImage = validator.TrimPtr(in.CoverImage)

	return s.repo.Update(ctx, id, func(current Book, lookup Lookup) (Patch, error) {
		v := validator.New()
		s.rules.Struct(v, in)

		patch := in.patch()
		merged := patch.Apply(current)

		if v.FieldValid("copies_total") && v.FieldValid("copies_available") {
			v.Check(merged.CopiesAvailable <= merged.CopiesTotal, "copies_available", msgCopiesExceedTotal)
		}
		if in.ISBN != nil && *in.ISBN != current.ISBN {
			if err := s.checkISBN(ctx, v, lookup, *in.ISBN, id); err != nil {
				return Patch{}, err
			}
		}
		if err := v.Err(); err != nil {
			return Patch{}, err
		}
		if err := s.checkCategory(ctx, lookup, in.CategoryID); err != nil {
			return Patch{}, err
		}
		return patch, nil
	})
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// checkISBN records a conflict when another book already uses isbn. It does
// nothing if the isbn already failed its format rule.
func (s *Service) checkISBN(ctx context.Context, v *validator.Validator, lookup Lookup, isbn string, selfID int64) error {
	if !v.FieldValid("isbn") {
		return nil
	}
	other, found, err := lookup.FindByISBN(ctx, isbn)
	if err != nil {
		return err
	}
	if found && other.ID != selfID {
		v.AddConflict("isbn", MsgDuplicateISBN)
	}
	return nil
}

func (s *Service) checkCategory(ctx context.Context, lookup Lookup, id *int64) error {
	if id == nil {
		return nil
	}
	ok, err := lookup.CategoryExists(ctx, *id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCategoryNotFound
	}
	return nil
}
