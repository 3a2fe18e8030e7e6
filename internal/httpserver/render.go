package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"bazaar/internal/domain"
)

var validate = validator.New()

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeDetail sends the error body shape shared with the original API.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var stockErr *domain.InsufficientStockError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrUnauthorized):
		writeDetail(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeDetail(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrConflict):
		writeDetail(w, http.StatusBadRequest, "already exists")
	case errors.Is(err, domain.ErrInvalidInput):
		writeDetail(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, domain.ErrEmptyCart):
		writeDetail(w, http.StatusBadRequest, "Cart is empty")
	case errors.As(err, &stockErr):
		writeDetail(w, http.StatusBadRequest, stockErr.Error())
	default:
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeValid decodes a JSON body into req and runs struct validation.
func decodeValid(r *http.Request, req any) error {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return err
	}
	return validate.Struct(req)
}
