package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	errBookMissing := NotFound("Book not found")
	wrapped := fmt.Errorf("create loan: %w", errBookMissing)

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.True(t, errors.Is(wrapped, errBookMissing))
	assert.False(t, errors.Is(wrapped, ErrConflict))
	assert.False(t, errors.Is(wrapped, NotFound("Book not found")))
}

func TestFieldsAndMessage(t *testing.T) {
	fields := map[string]string{"isbn": "Book with this ISBN already exists"}
	err := fmt.Errorf("wrap: %w", ConflictFields("Book with this ISBN already exists", fields))

	fields["isbn"] = "mutated"

	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, "Book with this ISBN already exists", FieldsOf(err)["isbn"])
	assert.Equal(t, "Book with this ISBN already exists", MessageOf(err))

	assert.Nil(t, FieldsOf(errors.New("boom")))
	assert.Empty(t, MessageOf(errors.New("boom")))
}

func TestValidation(t *testing.T) {
	err := Validation(map[string]string{"title": "Field 'title' is required"})

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "Validation failed", err.Error())
	assert.Len(t, err.Fields, 1)
}
