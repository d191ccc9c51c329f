package loan

import (
	"context"
	"time"
)

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=loan

// Store defines the contract for loan data storage. Lifecycle changes run
// inside WithinTx so a loan row and the stock of its books commit together.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	List(ctx context.Context) ([]WithDetails, error)
	ListActive(ctx context.Context) ([]WithDetails, error)
	// ListOverdue returns active loans whose planned return date is before now.
	ListOverdue(ctx context.Context, now time.Time) ([]WithDetails, error)
	GetByID(ctx context.Context, id int64) (Loan, error)
}

// Tx is the unit of work behind a lifecycle operation. Rows returned by the
// Lock methods stay locked until the transaction ends.
type Tx interface {
	LockLoan(ctx context.Context, id int64) (Loan, error)
	LockBook(ctx context.Context, id int64) (Stock, error)
	ReaderExists(ctx context.Context, id int64) (bool, error)
	CategoryExists(ctx context.Context, id int64) (bool, error)
	Insert(ctx context.Context, l *Loan) error
	Update(ctx context.Context, id int64, patch Patch) (Loan, error)
	Delete(ctx context.Context, id int64) error
	SetCopiesAvailable(ctx context.Context, bookID int64, n int) error
}
