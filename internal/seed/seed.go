// Package seed loads demo fixtures through the domain services, so every
// record passes the same validation and loan bookkeeping as API traffic.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"libraryapi/internal/book"
	"libraryapi/internal/category"
	"libraryapi/internal/loan"
	"libraryapi/internal/reader"
)

type Fixtures struct {
	Categories []CategoryFixture `yaml:"categories"`
	Books      []BookFixture     `yaml:"books"`
	Readers    []ReaderFixture   `yaml:"readers"`
	Loans      []LoanFixture     `yaml:"loans"`
}

type CategoryFixture struct {
	Name          string  `yaml:"name"`
	Description   *string `yaml:"description"`
	FloorLocation *string `yaml:"floor_location"`
}

// BookFixture names its category instead of referencing an id.
type BookFixture struct {
	Title       string  `yaml:"title"`
	Author      string  `yaml:"author"`
	ISBN        string  `yaml:"isbn"`
	Year        int     `yaml:"year"`
	CopiesTotal *int    `yaml:"copies_total"`
	Category    string  `yaml:"category"`
	Status      *string `yaml:"status"`
}

type ReaderFixture struct {
	Name       string `yaml:"name"`
	CardNumber string `yaml:"card_number"`
	Phone      string `yaml:"phone"`
	Email      string `yaml:"email"`
}

// LoanFixture references its book by isbn and its reader by card number.
type LoanFixture struct {
	ISBN             string   `yaml:"isbn"`
	CardNumber       string   `yaml:"card_number"`
	Category         string   `yaml:"category"`
	LoanDate         *string  `yaml:"loan_date"`
	ReturnDate       *string  `yaml:"return_date"`
	ActualReturnDate *string  `yaml:"actual_return_date"`
	FineAmount       *float64 `yaml:"fine_amount"`
	Status           *string  `yaml:"status"`
}

func Parse(data []byte) (Fixtures, error) {
	var f Fixtures
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixtures{}, fmt.Errorf("parse fixtures: %w", err)
	}
	return f, nil
}

type CategoryCreator interface {
	Create(ctx context.Context, in category.CreateInput) (category.Category, error)
}

type BookCreator interface {
	Create(ctx context.Context, in book.CreateInput) (book.Book, error)
}

type ReaderCreator interface {
	Create(ctx context.Context, in reader.CreateInput) (reader.Reader, error)
}

type LoanCreator interface {
	Create(ctx context.Context, in loan.CreateInput) (loan.Loan, error)
}

type Seeder struct {
	Categories CategoryCreator
	Books      BookCreator
	Readers    ReaderCreator
	Loans      LoanCreator
	Logger     *slog.Logger
}

// Summary counts the records created per table.
type Summary struct {
	Categories int
	Books      int
	Readers    int
	Loans      int
}

// Run creates the fixtures in dependency order and stops at the first
// failure. It expects an empty database.
func (s Seeder) Run(ctx context.Context, f Fixtures) (Summary, error) {
	var sum Summary
	categories := make(map[string]int64)
	books := make(map[string]int64)
	readers := make(map[string]int64)

	for _, cf := range f.Categories {
		c, err := s.Categories.Create(ctx, category.CreateInput{
			Name:          cf.Name,
			Description:   cf.Description,
			FloorLocation: cf.FloorLocation,
		})
		if err != nil {
			return sum, fmt.Errorf("category %q: %w", cf.Name, err)
		}
		categories[c.Name] = c.ID
		sum.Categories++
	}

	for _, bf := range f.Books {
		in := book.CreateInput{
			Title:       bf.Title,
			Author:      bf.Author,
			ISBN:        bf.ISBN,
			Year:        bf.Year,
			CopiesTotal: bf.CopiesTotal,
			Status:      bf.Status,
		}
		if bf.Category != "" {
			id, ok := categories[bf.Category]
			if !ok {
				return sum, fmt.Errorf("book %q: unknown category %q", bf.Title, bf.Category)
			}
			in.CategoryID = &id
		}
		b, err := s.Books.Create(ctx, in)
		if err != nil {
			return sum, fmt.Errorf("book %q: %w", bf.Title, err)
		}
		books[b.ISBN] = b.ID
		sum.Books++
	}

	for _, rf := range f.Readers {
		r, err := s.Readers.Create(ctx, reader.CreateInput{
			Name:       rf.Name,
			CardNumber: rf.CardNumber,
			Phone:      rf.Phone,
			Email:      rf.Email,
		})
		if err != nil {
			return sum, fmt.Errorf("reader %q: %w", rf.CardNumber, err)
		}
		readers[r.CardNumber] = r.ID
		sum.Readers++
	}

	for i, lf := range f.Loans {
		bookID, ok := books[lf.ISBN]
		if !ok {
			return sum, fmt.Errorf("loan %d: unknown book %q", i+1, lf.ISBN)
		}
		readerID, ok := readers[reader.CanonicalCardNumber(lf.CardNumber)]
		if !ok {
			return sum, fmt.Errorf("loan %d: unknown reader %q", i+1, lf.CardNumber)
		}
		categoryID, ok := categories[lf.Category]
		if !ok {
			return sum, fmt.Errorf("loan %d: unknown category %q", i+1, lf.Category)
		}
		_, err := s.Loans.Create(ctx, loan.CreateInput{
			BookID:           bookID,
			ReaderID:         readerID,
			CategoryID:       categoryID,
			LoanDate:         lf.LoanDate,
			ReturnDate:       lf.ReturnDate,
			ActualReturnDate: lf.ActualReturnDate,
			FineAmount:       lf.FineAmount,
			Status:           lf.Status,
		})
		if err != nil {
			return sum, fmt.Errorf("loan %d: %w", i+1, err)
		}
		sum.Loans++
	}

	s.Logger.Info("seed complete",
		"categories", sum.Categories,
		"books", sum.Books,
		"readers", sum.Readers,
		"loans", sum.Loans,
	)
	return sum, nil
}
