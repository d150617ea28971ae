// Package handler provides HTTP handlers for the Bodleian API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bodleian-io/bodleian/internal/domain"
	"github.com/bodleian-io/bodleian/internal/service"
)

// Stable machine error codes. Clients branch on these, not on messages.
const (
	codeNotFound        = "NOT_FOUND"
	codeDuplicateBorrow = "DUPLICATE_BORROW"
	codeNoCopies        = "NO_COPIES_AVAILABLE"
	codeNotBorrowed     = "NOT_BORROWED"
	codeConflict        = "CONFLICT"
	codeAlreadyExists   = "ALREADY_EXISTS"
	codeValidation      = "VALIDATION"
	codeUnauthorized    = "UNAUTHORIZED"
	codeForbidden       = "FORBIDDEN"
	codeInternal        = "INTERNAL"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps a service error to an HTTP status and machine code.
func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		// Don't leak wrapped infrastructure detail.
		message = "internal server error"
	}

	writeJSON(w, status, errorBody{Code: code, Message: message})
}

// statusFor classifies an error into an HTTP status and machine code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrBookNotFound),
		errors.Is(err, domain.ErrBorrowerNotFound),
		errors.Is(err, domain.ErrTransactionNotFound):
		return http.StatusNotFound, codeNotFound

	case errors.Is(err, domain.ErrDuplicateBorrow):
		return http.StatusBadRequest, codeDuplicateBorrow

	case errors.Is(err, domain.ErrNoCopiesAvailable):
		return http.StatusBadRequest, codeNoCopies

	case errors.Is(err, domain.ErrNotBorrowed):
		return http.StatusBadRequest, codeNotBorrowed

	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, codeConflict

	case errors.Is(err, domain.ErrBookAlreadyExists),
		errors.Is(err, domain.ErrUserAlreadyExists):
		return http.StatusBadRequest, codeAlreadyExists

	case errors.Is(err, service.ErrInvalidUsername),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidPhone),
		errors.Is(err, service.ErrInvalidPassword),
		errors.Is(err, service.ErrInvalidTitle),
		errors.Is(err, service.ErrInvalidAuthor),
		errors.Is(err, service.ErrInvalidISBN),
		errors.Is(err, service.ErrInvalidCopyCount):
		return http.StatusBadRequest, codeValidation

	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusUnauthorized, codeUnauthorized

	case errors.Is(err, domain.ErrAccessDenied):
		return http.StatusForbidden, codeForbidden

	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeBadRequest reports a malformed request body.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Code: codeValidation, Message: message})
}
