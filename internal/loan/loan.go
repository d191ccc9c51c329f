package loan

import (
	"errors"
	"strings"
	"time"

	"libraryapi/internal/apperr"
)

const (
	msgReturnBeforeLoan = "Return date must be after loan date"
	msgInvalidStatus    = "Invalid loan status"
	msgInvalidDate      = "Invalid date format"
)

var (
	ErrNotFound         = apperr.NotFound("Loan not found")
	ErrBookNotFound     = apperr.NotFound("Book not found")
	ErrReaderNotFound   = apperr.NotFound("Reader not found")
	ErrCategoryNotFound = apperr.NotFound("Category not found")
	ErrBookUnavailable  = apperr.Conflict("Book is not available for loan")
)

type Status string

const (
	StatusActive   Status = "active"
	StatusReturned Status = "returned"
	StatusOverdue  Status = "overdue"
)

func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusActive, StatusReturned, StatusOverdue:
		return st, true
	}
	return "", false
}

// HoldsCopy reports whether a loan in this status keeps one copy of its book
// out of circulation.
func (s Status) HoldsCopy() bool {
	return s == StatusActive || s == StatusOverdue
}

type Loan struct {
	ID               int64      `json:"id"`
	BookID           int64      `json:"book_id"`
	ReaderID         int64      `json:"reader_id"`
	CategoryID       int64      `json:"category_id"`
	LoanDate         time.Time  `json:"loan_date"`
	ReturnDate       time.Time  `json:"return_date"`
	ActualReturnDate *time.Time `json:"actual_return_date"`
	FineAmount       *float64   `json:"fine_amount"`
	Status           Status     `json:"status"`
	CreatedAt        time.Time  `json:"created_at"`
}

// WithDetails is a loan joined with the display fields of its book, reader
// and category.
type WithDetails struct {
	Loan
	Title        string `json:"title"`
	Author       string `json:"author"`
	ISBN         string `json:"isbn"`
	ReaderName   string `json:"reader_name"`
	CardNumber   string `json:"card_number"`
	CategoryName string `json:"category_name"`
}

// Stock is the copy bookkeeping of one book.
type Stock struct {
	BookID          int64
	CopiesTotal     int
	CopiesAvailable int
}

// release puts one copy back, never above the total.
func (s *Stock) release() {
	s.CopiesAvailable = min(s.CopiesTotal, s.CopiesAvailable+1)
}

func (s *Stock) acquire() error {
	if s.CopiesAvailable <= 0 {
		return ErrBookUnavailable
	}
	s.CopiesAvailable--
	return nil
}

type CreateInput struct {
	BookID           int64    `json:"book_id" validate:"required,gte=1"`
	ReaderID         int64    `json:"reader_id" validate:"required,gte=1"`
	CategoryID       int64    `json:"category_id" validate:"required,gte=1"`
	LoanDate         *string  `json:"loan_date"`
	ReturnDate       *string  `json:"return_date"`
	ActualReturnDate *string  `json:"actual_return_date"`
	FineAmount       *float64 `json:"fine_amount" validate:"omitempty,between=0 10000"`
	Status           *string  `json:"status"`
}

type UpdateInput struct {
	BookID           *int64   `json:"book_id" validate:"omitempty,gte=1"`
	ReaderID         *int64   `json:"reader_id" validate:"omitempty,gte=1"`
	CategoryID       *int64   `json:"category_id" validate:"omitempty,gte=1"`
	LoanDate         *string  `json:"loan_date"`
	ReturnDate       *string  `json:"return_date"`
	ActualReturnDate *string  `json:"actual_return_date"`
	FineAmount       *float64 `json:"fine_amount" validate:"omitempty,between=0 10000"`
	Status           *string  `json:"status"`
}

// Patch lists the columns an update changes; nil fields are left alone.
// ClearActualReturnDate sets actual_return_date to NULL.
type Patch struct {
	BookID                *int64
	ReaderID              *int64
	CategoryID            *int64
	LoanDate              *time.Time
	ReturnDate            *time.Time
	ActualReturnDate      *time.Time
	ClearActualReturnDate bool
	FineAmount            *float64
	Status                *Status
}

func (p Patch) Empty() bool {
	return p == Patch{}
}

// Apply returns l with the patch applied.
func (p Patch) Apply(l Loan) Loan {
	if p.BookID != nil {
		l.BookID = *p.BookID
	}
	if p.ReaderID != nil {
		l.ReaderID = *p.ReaderID
	}
	if p.CategoryID != nil {
		l.CategoryID = *p.CategoryID
	}
	if p.LoanDate != nil {
		l.LoanDate = *p.LoanDate
	}
	if p.ReturnDate != nil {
		l.ReturnDate = *p.ReturnDate
	}
	if p.ClearActualReturnDate {
		l.ActualReturnDate = nil
	}
	if p.ActualReturnDate != nil {
		t := *p.ActualReturnDate
		l.ActualReturnDate = &t
	}
	if p.FineAmount != nil {
		f := *p.FineAmount
		l.FineAmount = &f
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	return l
}

var errBadDate = errors.New("unrecognized date")

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate accepts RFC 3339 timestamps and the zone-less forms sent by HTML
// date inputs. Zone-less values are read as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errBadDate
}
