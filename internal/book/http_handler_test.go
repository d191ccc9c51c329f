package book

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryapi/internal/httpx"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) httpx.Envelope {
	t.Helper()
	var body httpx.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHTTPHandler_List(t *testing.T) {
	svc, repo := newTestService(t)
	handler := NewHTTPHandler(svc)

	name := "Поезія"
	testBook := WithCategory{
		Book:         Book{ID: 1, ISBN: "978-966-03-5128-8", Title: "Кобзар"},
		CategoryName: &name,
	}

	t.Run("success", func(t *testing.T) {
		repo.EXPECT().List(gomock.Any()).Return([]WithCategory{testBook}, nil)

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/api/books", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.True(t, body.Success)
		assert.Contains(t, w.Body.String(), `"category_name":"Поезія"`)
	})

	t.Run("error", func(t *testing.T) {
		repo.EXPECT().List(gomock.Any()).Return(nil, context.DeadlineExceeded)

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/api/books", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal server error", decode(t, w).Message)
	})
}

func TestHTTPHandler_Get(t *testing.T) {
	svc, repo := newTestService(t)
	handler := NewHTTPHandler(svc)

	t.Run("success", func(t *testing.T) {
		repo.EXPECT().GetByID(gomock.Any(), int64(1)).Return(Book{ID: 1, Title: "Кобзар"}, nil)

		r := httptest.NewRequest(http.MethodGet, "/api/books/1", nil)
		r.SetPathValue("id", "1")
		w := httptest.NewRecorder()
		handler.Get(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Book retrieved successfully", decode(t, w).Message)
	})

	t.Run("not found", func(t *testing.T) {
		repo.EXPECT().GetByID(gomock.Any(), int64(2)).Return(Book{}, ErrNotFound)

		r := httptest.NewRequest(http.MethodGet, "/api/books/2", nil)
		r.SetPathValue("id", "2")
		w := httptest.NewRecorder()
		handler.Get(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Book not found", decode(t, w).Message)
	})
}

func TestHTTPHandler_Create(t *testing.T) {
	svc, repo := newTestService(t)
	handler := NewHTTPHandler(svc)

	t.Run("validation errors are returned together", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Create(w, httptest.NewRequest(http.MethodPost, "/api/books", strings.NewReader(`{}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode(t, w)
		assert.False(t, body.Success)
		assert.Len(t, body.Errors, 4)
		assert.Equal(t, "Field 'isbn' is required", body.Errors["isbn"])
	})

	t.Run("duplicate isbn", func(t *testing.T) {
		repo.EXPECT().FindByISBN(gomock.Any(), "978-966-03-5128-8").Return(Book{ID: 3}, true, nil)

		body := `{"title":"Кобзар","author":"Тарас Шевченко","isbn":"978-966-03-5128-8","year":1840}`
		w := httptest.NewRecorder()
		handler.Create(w, httptest.NewRequest(http.MethodPost, "/api/books", strings.NewReader(body)))

		assert.Equal(t, http.StatusConflict, w.Code)
		env := decode(t, w)
		assert.Equal(t, MsgDuplicateISBN, env.Message)
		assert.Equal(t, MsgDuplicateISBN, env.Errors["isbn"])
	})

	t.Run("success", func(t *testing.T) {
		repo.EXPECT().FindByISBN(gomock.Any(), gomock.Any()).Return(Book{}, false, nil)
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		body := `{"title":"Кобзар","author":"Тарас Шевченко","isbn":"978-966-03-5128-8","year":1840,"copies_total":4}`
		w := httptest.NewRecorder()
		handler.Create(w, httptest.NewRequest(http.MethodPost, "/api/books", strings.NewReader(body)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"copies_available":4`)
	})
}

func TestHTTPHandler_Delete(t *testing.T) {
	svc, repo := newTestService(t)
	handler := NewHTTPHandler(svc)

	t.Run("referenced by loans", func(t *testing.T) {
		repo.EXPECT().Delete(gomock.Any(), int64(1)).Return(ErrInUse)

		r := httptest.NewRequest(http.MethodDelete, "/api/books/1", nil)
		r.SetPathValue("id", "1")
		w := httptest.NewRecorder()
		handler.Delete(w, r)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "Cannot delete book: it is used in loans", decode(t, w).Message)
	})

	t.Run("success", func(t *testing.T) {
		repo.EXPECT().Delete(gomock.Any(), int64(2)).Return(nil)

		r := httptest.NewRequest(http.MethodDelete, "/api/books/2", nil)
		r.SetPathValue("id", "2")
		w := httptest.NewRecorder()
		handler.Delete(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Book deleted successfully", decode(t, w).Message)
	})
}
