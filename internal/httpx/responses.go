package httpx

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"libraryapi/internal/apperr"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Envelope is the body of every API response.
type Envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    any               `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func JSON(w http.ResponseWriter, statusCode int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func JSONSuccess(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusOK, Envelope{Success: true, Message: message, Data: data})
}

func JSONError(w http.ResponseWriter, statusCode int, message string, fields map[string]string) {
	JSON(w, statusCode, Envelope{Success: false, Message: message, Errors: fields})
}

// WriteError renders err according to its class. Unclassified errors are
// logged and answered with a generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, apperr.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		status = http.StatusConflict
	default:
		LoggerFrom(r.Context()).Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		JSONError(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}
	JSONError(w, status, apperr.MessageOf(err), apperr.FieldsOf(err))
}

// NotFound answers requests that match no route.
func NotFound(w http.ResponseWriter, r *http.Request) {
	JSONError(w, http.StatusNotFound, "API endpoint not found", nil)
}
