package reader

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=reader

// Repository defines the contract for reader data storage.
type Repository interface {
	List(ctx context.Context) ([]WithActiveLoans, error)
	GetByID(ctx context.Context, id int64) (Reader, error)
	FindByCardNumber(ctx context.Context, card string) (Reader, bool, error)
	Create(ctx context.Context, r *Reader) error
	Update(ctx context.Context, id int64, patch Patch) (Reader, error)
	Delete(ctx context.Context, id int64) error
}
