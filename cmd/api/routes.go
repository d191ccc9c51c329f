package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"libraryapi/internal/book"
	"libraryapi/internal/category"
	"libraryapi/internal/httpx"
	"libraryapi/internal/loan"
	"libraryapi/internal/reader"
)

type handlers struct {
	books      *book.HTTPHandler
	readers    *reader.HTTPHandler
	categories *category.HTTPHandler
	loans      *loan.HTTPHandler
}

type route struct {
	method  string
	pattern string
	handler http.HandlerFunc
}

const idParam = "/{id:[0-9]+}"

func apiRoutes(h handlers) []route {
	return []route{
		{http.MethodGet, "/api/books", h.books.List},
		{http.MethodGet, "/api/books" + idParam, h.books.Get},
		{http.MethodPost, "/api/books", h.books.Create},
		{http.MethodPut, "/api/books" + idParam, h.books.Update},
		{http.MethodDelete, "/api/books" + idParam, h.books.Delete},

		{http.MethodGet, "/api/readers", h.readers.List},
		{http.MethodGet, "/api/readers" + idParam, h.readers.Get},
		{http.MethodPost, "/api/readers", h.readers.Create},
		{http.MethodPut, "/api/readers" + idParam, h.readers.Update},
		{http.MethodDelete, "/api/readers" + idParam, h.readers.Delete},

		{http.MethodGet, "/api/categories", h.categories.List},
		{http.MethodGet, "/api/categories/popular", h.categories.Popular},
		{http.MethodGet, "/api/categories" + idParam, h.categories.Get},
		{http.MethodPost, "/api/categories", h.categories.Create},
		{http.MethodPut, "/api/categories" + idParam, h.categories.Update},
		{http.MethodDelete, "/api/categories" + idParam, h.categories.Delete},

		{http.MethodGet, "/api/loans", h.loans.List},
		{http.MethodGet, "/api/loans/active", h.loans.Active},
		{http.MethodGet, "/api/loans/overdue", h.loans.Overdue},
		{http.MethodGet, "/api/loans" + idParam, h.loans.Get},
		{http.MethodPost, "/api/loans", h.loans.Create},
		{http.MethodPut, "/api/loans" + idParam, h.loans.Update},
		{http.MethodDelete, "/api/loans" + idParam, h.loans.Delete},
	}
}

// newRouter builds the route table. Unknown paths and method mismatches both
// get the JSON 404.
func newRouter(h handlers, ping func(context.Context) error) *chi.Mux {
	r := chi.NewRouter()
	r.NotFound(httpx.NotFound)
	r.MethodNotAllowed(httpx.NotFound)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONSuccess(w, "ok", nil)
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := ping(ctx); err != nil {
			httpx.LoggerFrom(r.Context()).Warn("readiness check failed", "error", err)
			httpx.JSONError(w, http.StatusServiceUnavailable, "Database not ready", nil)
			return
		}
		httpx.JSONSuccess(w, "ready", nil)
	})

	for _, rt := range apiRoutes(h) {
		r.Method(rt.method, rt.pattern, rt.handler)
	}
	return r
}
