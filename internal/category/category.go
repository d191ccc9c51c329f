package category

import (
	"time"

	"libraryapi/internal/apperr"
)

var (
	ErrNotFound = apperr.NotFound("Category not found")
	ErrInUse    = apperr.Conflict("Cannot delete category: it is used by books or loans")
)

const (
	DefaultPopularLimit = 5
	MaxPopularLimit     = 50
)

type Category struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   *string   `json:"description"`
	FloorLocation *string   `json:"floor_location"`
	CreatedAt     time.Time `json:"created_at"`
}

// WithBookCount is a category together with the number of books filed
// under it.
type WithBookCount struct {
	Category
	BooksCount int `json:"books_count"`
}

// WithLoanCount is a category together with the number of loans recorded
// against it.
type WithLoanCount struct {
	Category
	LoansCount int `json:"loans_count"`
}

type CreateInput struct {
	Name          string  `json:"name" validate:"required,min=2,max=100"`
	Description   *string `json:"description"`
	FloorLocation *string `json:"floor_location" validate:"omitempty,max=50"`
}

type UpdateInput struct {
	Name          *string `json:"name" validate:"omitempty,min=2,max=100"`
	Description   *string `json:"description"`
	FloorLocation *string `json:"floor_location" validate:"omitempty,max=50"`
}

// Patch lists the columns an update changes; nil fields are left alone.
type Patch struct {
	Name          *string
	Description   *string
	FloorLocation *string
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.FloorLocation == nil
}
