package book

import (
	"time"

	"libraryapi/internal/apperr"
)

const MsgDuplicateISBN = "Book with this ISBN already exists"

var (
	ErrNotFound         = apperr.NotFound("Book not found")
	ErrInUse            = apperr.Conflict("Cannot delete book: it is used in loans")
	ErrCategoryNotFound = apperr.NotFound("Category not found")
	ErrDuplicateISBN    = apperr.ConflictFields(MsgDuplicateISBN, map[string]string{"isbn": MsgDuplicateISBN})
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusDamaged   Status = "damaged"
	StatusLost      Status = "lost"
)

// Book is a catalog title. CopiesAvailable is kept in step with the loans
// holding a copy and never leaves [0, CopiesTotal].
type Book struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn"`
	Year            int       `json:"year"`
	CopiesTotal     int       `json:"copies_total"`
	CopiesAvailable int       `json:"copies_available"`
	CategoryID      *int64    `json:"category_id"`
	Status          Status    `json:"status"`
	CoverImage      *string   `json:"cover_image"`
	CreatedAt       time.Time `json:"created_at"`
}

// WithCategory is a book joined with its category name.
type WithCategory struct {
	Book
	CategoryName *string `json:"category_name"`
}

type CreateInput struct {
	Title           string  `json:"title" validate:"required,min=2,max=255"`
	Author          string  `json:"author" validate:"required,min=2,max=255"`
	ISBN            string  `json:"isbn" validate:"required,isbn978"`
	Year            int     `json:"year" validate:"required,year_range"`
	CopiesTotal     *int    `json:"copies_total" validate:"omitempty,between=1 100"`
	CopiesAvailable *int    `json:"copies_available" validate:"omitempty,between=0 100"`
	CategoryID      *int64  `json:"category_id" validate:"omitempty,gte=1"`
	Status          *string `json:"status" validate:"omitempty,oneof=available damaged lost"`
	CoverImage      *string `json:"cover_image" validate:"omitempty,max=255"`
}

type UpdateInput struct {
	Title           *string `json:"title" validate:"omitempty,min=2,max=255"`
	Author          *string `json:"author" validate:"omitempty,min=2,max=255"`
	ISBN            *string `json:"isbn" validate:"omitempty,isbn978"`
	Year            *int    `json:"year" validate:"omitempty,year_range"`
	CopiesTotal     *int    `json:"copies_total" validate:"omitempty,between=1 100"`
	CopiesAvailable *int    `json:"copies_available" validate:"omitempty,between=0 100"`
	CategoryID      *int64  `json:"category_id" validate:"omitempty,gte=1"`
	Status          *string `json:"status" validate:"omitempty,oneof=available damaged lost"`
	CoverImage      *string `json:"cover_image" validate:"omitempty,max=255"`
}

// Patch lists the columns an update changes; nil fields are left alone.
type Patch struct {
	Title           *string
	Author          *string
	ISBN            *string
	Year            *int
	CopiesTotal     *int
	CopiesAvailable *int
	CategoryID      *int64
	Status          *Status
	CoverImage      *string
}

func (in UpdateInput) patch() Patch {
	p := Patch{
		Title:           in.Title,
		Author:          in.Author,
		ISBN:            in.ISBN,
		Year:            in.Year,
		CopiesTotal:     in.CopiesTotal,
		CopiesAvailable: in.CopiesAvailable,
		CategoryID:      in.CategoryID,
		CoverImage:      in.CoverImage,
	}
	if in.Status != nil {
		st := Status(*in.Status)
		p.Status = &st
	}
	return p
}

// Apply returns b with the patch applied.
func (p Patch) Apply(b Book) Book {
	if p.Title != nil {
		b.Title = *p.Title
	}
	if p.Author != nil {
		b.Author = *p.Author
	}
	if p.ISBN != nil {
		b.ISBN = *p.ISBN
	}
	if p.Year != nil {
		b.Year = *p.Year
	}
	if p.CopiesTotal != nil {
		b.CopiesTotal = *p.CopiesTotal
	}
	if p.CopiesAvailable != nil {
		b.CopiesAvailable = *p.CopiesAvailable
	}
	if p.CategoryID != nil {
		id := *p.CategoryID
		b.CategoryID = &id
	}
	if p.Status != nil {
		b.Status = *p.Status
	}
	if p.CoverImage != nil {
		b.CoverImage = p.CoverImage
	}
	return b
}
