// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Every handler in this application sends JSON back to the client.
// Rather than repeating the same three lines (set header, set status,
// encode JSON) in every handler, we centralise them here, together with
// the one place that decides which HTTP status a storage error maps to.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/institute-api/internal/auth"
	"github.com/aanand-mishra/institute-api/internal/logger"
	"github.com/aanand-mishra/institute-api/internal/storage"
)

// ─────────────────────────────────────────────────────────────────────────────
// Response is the standard envelope returned for error cases.
//
// Success responses may return any JSON shape (a student, a list, ...).
// Error responses always look like:
//
//	{ "status": "error", "error": "field name is required" }
//
// ─────────────────────────────────────────────────────────────────────────────
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Message is the envelope for successful writes that also carry a payload,
// e.g. { "message": "Cohort deleted", "deleted": {...} }.
type Message map[string]any

// WriteJSON writes a JSON-encoded response with the given HTTP status code.
//
// IMPORTANT ORDER: Header() → WriteHeader() → body writes.
// Once WriteHeader is called (or the first Write), headers are locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps any Go error into our standard Response shape.
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ErrorMessage is GeneralError for a plain message.
func ErrorMessage(msg string) Response {
	return Response{Status: StatusError, Error: msg}
}

// ─────────────────────────────────────────────────────────────────────────────
// ValidationError converts a slice of validator.FieldError values into
// a single human-readable Response.
//
// Example output:
//
//	{ "status": "error", "error": "field username is required, field password is required" }
//
// ─────────────────────────────────────────────────────────────────────────────
func ValidationError(errs validator.ValidationErrors) Response {
	var errMessages []string

	for _, e := range errs {
		switch e.ActualTag() {
		case "required", "notblank":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is required", e.Field()))
		case "password":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be at most %d bytes", e.Field(), auth.MaxPasswordBytes))
		case "email":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be a valid email address", e.Field()))
		case "min":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be at least %s", e.Field(), e.Param()))
		case "max":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be at most %s", e.Field(), e.Param()))
		default:
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return Response{
		Status: StatusError,
		Error:  strings.Join(errMessages, ", "),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// StoreError maps an error returned by the storage layer to a status code:
//
//	*storage.ValidationError     → 400
//	storage.ErrInvalidReference  → 400
//	auth.ErrPasswordTooLong      → 400
//	storage.ErrNotFound          → 404
//	storage.ErrConflict          → 409
//	anything else                → 500
//
// Only the sentinel text reaches the client. For 500s the full error is
// logged server-side and the client gets a generic message.
// ─────────────────────────────────────────────────────────────────────────────
func StoreError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	var verr *storage.ValidationError
	switch {
	case errors.As(err, &verr):
		WriteJSON(w, http.StatusBadRequest, GeneralError(verr))
	case errors.Is(err, storage.ErrInvalidReference):
		WriteJSON(w, http.StatusBadRequest, GeneralError(storage.ErrInvalidReference))
	case errors.Is(err, auth.ErrPasswordTooLong):
		WriteJSON(w, http.StatusBadRequest, GeneralError(auth.ErrPasswordTooLong))
	case errors.Is(err, storage.ErrNotFound):
		WriteJSON(w, http.StatusNotFound, GeneralError(storage.ErrNotFound))
	case errors.Is(err, storage.ErrConflict):
		WriteJSON(w, http.StatusConflict, GeneralError(storage.ErrConflict))
	default:
		logger.FromContext(r.Context()).Error(msg, "error", err.Error())
		WriteJSON(w, http.StatusInternalServerError, ErrorMessage("internal server error"))
	}
}
