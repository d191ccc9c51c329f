package httpx

import (
	"errors"
	"io"
	"net/http"
	"strconv"
)

var (
	ErrInvalidJSON  = errors.New("invalid json body")
	ErrBodyTooLarge = errors.New("request body too large")
)

// DecodeJSON decodes the request body into dst. An empty body leaves dst
// untouched so that required-field rules report what is missing.
func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return ErrBodyTooLarge
		}
		return ErrInvalidJSON
	}
}

// WriteDecodeError answers a DecodeJSON failure.
func WriteDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrBodyTooLarge) {
		JSONError(w, http.StatusRequestEntityTooLarge, "Request body too large", nil)
		return
	}
	JSONError(w, http.StatusBadRequest, "Invalid JSON body", nil)
}

// IDParam parses the {id} path value. Routes constrain it to digits, so a
// failure means the handler was reached outside the router.
func IDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// QueryInt reads an integer query parameter, falling back to def when it is
// absent or malformed.
func QueryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
