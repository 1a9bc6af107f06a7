// Package student contains all HTTP handlers related to the Student resource.
//
// HANDLER PATTERN USED HERE: THE CLOSURE / FACTORY PATTERN
// ────────────────────────────────────────────────────────────
// Go's router expects handler functions with the signature:
//
//	func(http.ResponseWriter, *http.Request)
//
// That signature has no room for extra parameters like a database.
// To inject dependencies we use a factory function that:
//  1. Accepts dependencies (storage)
//  2. Returns a function with the exact signature the router needs
//
// Because the inner function "closes over" the outer parameters, it can
// access `storage` even after the factory call has returned:
//
//	router.HandleFunc("POST /api/students", student.New(store))
//	//                                              ^^^^^^^^^^
//	//                         New(store) is called ONCE at startup.
//	//                         It returns a handler func which is called
//	//                         on EVERY incoming request.
//
// A student never exists without its user: create, update and delete
// each touch both rows in a single transaction inside the store.
package student

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/institute-api/internal/auth"
	"github.com/aanand-mishra/institute-api/internal/logger"
	"github.com/aanand-mishra/institute-api/internal/storage"
	"github.com/aanand-mishra/institute-api/internal/types"
	"github.com/aanand-mishra/institute-api/internal/utils/request"
	"github.com/aanand-mishra/institute-api/internal/utils/response"
)

var ErrNoUpdatableFields = errors.New("no updatable fields supplied")

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/students
// Creates a user and its student profile from the JSON request body.
//
// Request body (JSON):
//
//	{ "username": "a", "password": "p", "surname": "S", "firstname": "F",
//	  "phone": null, "nationality": "KE", "isBornAgain": true }
//
// Success response (201 Created): the joined student row.
//
// Error responses:
//
//	400 Bad Request  → empty body, malformed JSON, or failed validation
//	409 Conflict     → username already taken
//	500 Internal     → database error
//
// ─────────────────────────────────────────────────────────────────────────────
func New(store storage.Students) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		log.Info("creating a student")

		// ── Step 1: Decode JSON body ──────────────────────────────────
		var in types.NewStudent
		if err := request.DecodeJSON(w, r, &in); err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		// ── Step 2: Validate before touching the database ─────────────
		if err := request.Validate(in); err != nil {
			response.WriteJSON(w, http.StatusBadRequest,
				response.ValidationError(err.(validator.ValidationErrors)))
			return
		}

		hash, err := auth.HashPassword(in.Password)
		if err != nil {
			response.StoreError(w, r, "error hashing password", err)
			return
		}

		// ── Step 3: Persist user + student in one transaction ─────────
		student, err := store.CreateStudent(r.Context(), in, hash)
		if err != nil {
			response.StoreError(w, r, "error creating student", err)
			return
		}

		log.Info("student created", slog.Int64("id", student.ID))
		response.WriteJSON(w, http.StatusCreated, student)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID handles GET /api/students/{id}
//
// Success response (200 OK): the student joined with its user
//
//	{ "studentid": 1, "userid": 4, "username": "a", "lastLogin": null,
//	  "surname": "S", "firstname": "F", ... }
//
// Error responses:
//
//	400 Bad Request  → id is not a valid integer
//	404 Not Found    → no such student
//
// ─────────────────────────────────────────────────────────────────────────────
func GetByID(store storage.Students) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.ID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		student, err := store.GetStudentByID(r.Context(), id)
		if err != nil {
			response.StoreError(w, r, "error getting student", err)
			return
		}

		response.WriteJSON(w, http.StatusOK, student)
	}
}

// GetList handles GET /api/students. Returns [] (not null) when empty.
func GetList(store storage.Students) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		students, err := store.GetStudents(r.Context())
		if err != nil {
			response.StoreError(w, r, "error getting students", err)
			return
		}
		if students == nil {
			students = []types.Student{}
		}

		response.WriteJSON(w, http.StatusOK, students)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/students/{id}
// Partial update: only the fields present in the body change.
//
// Request body (JSON), any subset of:
//
//	{ "username": "b", "surname": "S2", "firstname": "F2",
//	  "phone": "+254...", "nationality": null, "isBornAgain": false }
//
// Error responses:
//
//	400 Bad Request  → invalid id, bad value, or no updatable field at all
//	404 Not Found    → no such student
//	409 Conflict     → new username already taken
//
// ─────────────────────────────────────────────────────────────────────────────
func Update(store storage.Students) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		id, err := request.ID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		in, err := request.DecodeFields(w, r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		values, err := storage.StudentSchema.Assignments(in)
		if err != nil {
			response.StoreError(w, r, "error validating student", err)
			return
		}
		username, err := usernameField(in)
		if err != nil {
			response.StoreError(w, r, "error validating student", err)
			return
		}

		// Nothing to change: reject before any database call.
		if values.Empty() && username == nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(ErrNoUpdatableFields))
			return
		}

		student, err := store.UpdateStudentByID(r.Context(), id, values, username)
		if err != nil {
			response.StoreError(w, r, "error updating student", err)
			return
		}

		log.Info("student updated", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, student)
	}
}

// usernameField returns the optional new username, or nil when absent.
func usernameField(in storage.Fields) (*string, error) {
	raw, ok := in["username"]
	if !ok {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil, storage.NewValidationError("field username must be a non-empty string")
	}
	return &s, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Delete handles DELETE /api/students/{id}
// Removes the student's user; the student row goes with it (cascade).
//
// Success response (200 OK):
//
//	{ "message": "student deleted", "deleted": { ...the student... } }
//
// ─────────────────────────────────────────────────────────────────────────────
func Delete(store storage.Students) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.ID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		student, err := store.DeleteStudentByID(r.Context(), id)
		if err != nil {
			response.StoreError(w, r, "error deleting student", err)
			return
		}

		logger.FromContext(r.Context()).Info("student deleted",
			slog.Int64("id", id), slog.Int64("userid", student.UserID))
		response.WriteJSON(w, http.StatusOK, response.Message{
			"message": "student deleted",
			"deleted": student,
		})
	}
}
