package reader

import (
	"strings"
	"time"

	"libraryapi/internal/apperr"
)

const MsgDuplicateCard = "Reader with this card number already exists"

var (
	ErrNotFound      = apperr.NotFound("Reader not found")
	ErrInUse         = apperr.Conflict("Cannot delete reader: they have active loans")
	ErrDuplicateCard = apperr.ConflictFields(MsgDuplicateCard, map[string]string{"card_number": MsgDuplicateCard})
)

// Reader is a registered library patron. CardNumber is stored upper-cased.
type Reader struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	CardNumber       string    `json:"card_number"`
	Phone            string    `json:"phone"`
	Email            string    `json:"email"`
	RegistrationDate time.Time `json:"registration_date"`
	CreatedAt        time.Time `json:"created_at"`
}

// WithActiveLoans is a reader together with the number of active loans.
type WithActiveLoans struct {
	Reader
	ActiveLoans int `json:"active_loans"`
}

type CreateInput struct {
	Name       string `json:"name" validate:"required,min=2,max=100,alphabet_name"`
	CardNumber string `json:"card_number" validate:"required,card_number"`
	Phone      string `json:"phone" validate:"required,phone"`
	Email      string `json:"email" validate:"required,email,max=100"`
}

type UpdateInput struct {
	Name       *string `json:"name" validate:"omitempty,min=2,max=100,alphabet_name"`
	CardNumber *string `json:"card_number" validate:"omitempty,card_number"`
	Phone      *string `json:"phone" validate:"omitempty,phone"`
	Email      *string `json:"email" validate:"omitempty,email,max=100"`
}

// Patch lists the columns an update changes; nil fields are left alone.
type Patch struct {
	Name       *string
	CardNumber *string
	Phone      *string
	Email      *string
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.CardNumber == nil && p.Phone == nil && p.Email == nil
}

// CanonicalCardNumber is the stored form of a card number.
func CanonicalCardNumber(card string) string {
	return strings.ToUpper(strings.TrimSpace(card))
}
