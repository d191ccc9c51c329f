package loan

import (
	"context"
	"net/http"

	"libraryapi/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// List handles GET /api/loans
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.List, "Loans retrieved successfully")
}

// Active handles GET /api/loans/active
func (h *HTTPHandler) Active(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.Active, "Active loans retrieved successfully")
}

// Overdue handles GET /api/loans/overdue
func (h *HTTPHandler) Overdue(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.service.Overdue, "Overdue loans retrieved successfully")
}

func (h *HTTPHandler) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context) ([]WithDetails, error), message string) {
	loans, err := fetch(r.Context())
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, message, loans)
}

// Get handles GET /api/loans/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r)
	if !ok {
		httpx.WriteError(w, r, ErrNotFound)
		return
	}
	l, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, "Loan retrieved successfully", l)
}

// Create handles POST /api/loans
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteDecodeError(w, err)
		return
	}
	l, err := h.service.Create(r.Context(), in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, "Loan created successfully", l)
}

// Update handles PUT /api/loans/{id}
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r)
	if !ok {
		httpx.WriteError(w, r, ErrNotFound)
		return
	}
	var in UpdateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.WriteDecodeError(w, err)
		return
	}
	l, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, "Loan updated successfully", l)
}

// Delete handles DELETE /api/loans/{id}
func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.IDParam(r)
	if !ok {
		httpx.WriteError(w, r, ErrNotFound)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.WriteError(w, r, err)
		return
	}
	httpx.JSONSuccess(w, "Loan deleted successfully", nil)
}
