package category

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

	t.Run("success", func(t *testing.T) {
		repo.EXPECT().List(gomock.Any()).Return([]WithBookCount{{Category: Category{ID: 1, Name: "Поезія"}, BooksCount: 2}}, nil)

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.True(t, body.Success)
		assert.Equal(t, "Categories retrieved successfully", body.Message)
		assert.Contains(t, w.Body.String(), `"books_count":2`)
	})

	t.Run("error", func(t *testing.T) {
		repo.EXPECT().List(gomock.Any()).Return(nil, context.DeadlineExceeded)

		w := httptest.NewRecorder()
		handler.List(w, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestHTTPHandler_Popular(t *testing.T) {
	svc, repo := newTestService(t)
	handler := NewHTTPHandler(svc)

	repo.EXPECT().Popular(gomock.Any(), 2).Return([]WithLoanCount{{Category: Category{ID: 1, Name: "Поезія"}, LoansCount: 9}}, nil)

	w := httptest.NewRecorder()
	handler.Popular(w, httptest.NewRequest(http.MethodGet, "/api/categories/popular?limit=2", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"loans_count":9`)
}

func TestHTTPHandler_Get(t *testing.T) {
	svc, repo := newTestService(t)
	handler := NewHTTPHandler(svc)

	t.Run("not found", func(t *testing.T) {
		repo.EXPECT().GetByID(gomock.Any(), int64(9)).Return(Category{}, ErrNotFound)

		r := httptest.NewRequest(http.MethodGet, "/api/categories/9", nil)
		r.SetPathValue("id", "9")
		w := httptest.NewRecorder()
		handler.Get(w, r)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Category not found", decode(t, w).Message)
	})
}

func TestHTTPHandler_Create(t *testing.T) {
	svc, repo := newTestService(t)
	handler := NewHTTPHandler(svc)

	t.Run("validation error", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Create(w, httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(`{"name":"x"}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := decode(t, w)
		assert.False(t, body.Success)
		assert.Equal(t, "Name must be at least 2 characters", body.Errors["name"])
	})

	t.Run("success", func(t *testing.T) {
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		w := httptest.NewRecorder()
		handler.Create(w, httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(`{"name":"Фантастика"}`)))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "Category created successfully", decode(t, w).Message)
	})

	t.Run("malformed body", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.Create(w, httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(`not json`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHTTPHandler_Delete(t *testing.T) {
	svc, repo := newTestService(t)
	handler := NewHTTPHandler(svc)

	repo.EXPECT().Delete(gomock.Any(), int64(2)).Return(ErrInUse)

	r := httptest.NewRequest(http.MethodDelete, "/api/categories/2", nil)
	r.SetPathValue("id", "2")
	w := httptest.NewRecorder()
	handler.Delete(w, r)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Cannot delete category: it is used by books or loans", decode(t, w).Message)
}
