package book

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=book

// Lookup answers the existence questions asked while validating a write.
type Lookup interface {
	FindByISBN(ctx context.Context, isbn string) (Book, bool, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)
}

// Repository defines the contract for book data storage.
type Repository interface {
	Lookup
	List(ctx context.Context) ([]WithCategory, error)
	GetByID(ctx context.Context, id int64) (Book, error)
	Create(ctx context.Context, b *Book) error
	// Update locks the book, asks apply for the changes to make given the
	// current row, and writes them. An error from apply aborts the update.
	Update(ctx context.Context, id int64, apply func(current Book, lookup Lookup) (Patch, error)) (Book, error)
	Delete(ctx context.Context, id int64) error
}
