// Package course contains the HTTP handlers for courses.
//
// A course is a row in courses plus any number of labels in course_types.
// The scalar fields go through storage.CourseSchema like any generic
// resource; "types" is pulled out of the body separately and written in
// the same transaction.
package course

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/institute-api/internal/logger"
	"github.com/aanand-mishra/institute-api/internal/storage"
	"github.com/aanand-mishra/institute-api/internal/types"
	"github.com/aanand-mishra/institute-api/internal/utils/request"
	"github.com/aanand-mishra/institute-api/internal/utils/response"
)

var ErrNoUpdatableFields = errors.New("no updatable fields supplied")

// typesField reads "types" from the body. A missing or null value yields
// nil, meaning "leave the types alone".
func typesField(in storage.Fields) (*[]string, error) {
	raw, ok := in["types"]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, storage.NewValidationError("field types must be an array of strings")
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, storage.NewValidationError("field types must be an array of strings")
		}
		out = append(out, s)
	}
	return &out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// New handles POST /api/courses
//
// Request body (JSON):
//
//	{ "title": "Greek I", "code": "GRK101", "description": null, "units": 3,
//	  "_sectionid": 1, "teachingHours": 40, "types": ["core", "language"] }
//
// Success response (201 Created): the course with its section name and types.
//
//	400 → missing title/code/units, bad value, unknown section
//	409 → code already used
//
// ─────────────────────────────────────────────────────────────────────────────
func New(store storage.Courses) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := request.DecodeFields(w, r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		values, err := storage.CourseSchema.Insert(in)
		if err != nil {
			response.StoreError(w, r, "error validating course", err)
			return
		}
		courseTypes, err := typesField(in)
		if err != nil {
			response.StoreError(w, r, "error validating course", err)
			return
		}

		var labels []string
		if courseTypes != nil {
			labels = *courseTypes
		}

		course, err := store.CreateCourse(r.Context(), values, labels)
		if err != nil {
			response.StoreError(w, r, "error creating course", err)
			return
		}

		logger.FromContext(r.Context()).Info("course created", slog.Int64("id", course.ID))
		response.WriteJSON(w, http.StatusCreated, course)
	}
}

// GetByID handles GET /api/courses/{id}.
func GetByID(store storage.Courses) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.ID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		course, err := store.GetCourseByID(r.Context(), id)
		if err != nil {
			response.StoreError(w, r, "error getting course", err)
			return
		}
		response.WriteJSON(w, http.StatusOK, course)
	}
}

// GetList handles GET /api/courses.
func GetList(store storage.Courses) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		courses, err := store.GetCourses(r.Context())
		if err != nil {
			response.StoreError(w, r, "error getting courses", err)
			return
		}
		if courses == nil {
			courses = []types.Course{}
		}
		response.WriteJSON(w, http.StatusOK, courses)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/courses/{id}
//
// Scalar fields are updated only when present. When "types" is present
// it REPLACES the whole list:
//
//	before: ["A", "C"]   body: { "types": ["A", "B"] }   after: ["A", "B"]
//
// A body with neither scalar fields nor types is a 400, and the store is
// never called.
// ─────────────────────────────────────────────────────────────────────────────
func Update(store storage.Courses) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
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

		values, err := storage.CourseSchema.Assignments(in)
		if err != nil {
			response.StoreError(w, r, "error validating course", err)
			return
		}
		courseTypes, err := typesField(in)
		if err != nil {
			response.StoreError(w, r, "error validating course", err)
			return
		}

		if values.Empty() && courseTypes == nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(ErrNoUpdatableFields))
			return
		}

		course, err := store.UpdateCourseByID(r.Context(), id, values, courseTypes)
		if err != nil {
			response.StoreError(w, r, "error updating course", err)
			return
		}

		logger.FromContext(r.Context()).Info("course updated", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, course)
	}
}

// Delete handles DELETE /api/courses/{id}. Its types go with it.
func Delete(store storage.Courses) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.ID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		course, err := store.DeleteCourseByID(r.Context(), id)
		if err != nil {
			response.StoreError(w, r, "error deleting course", err)
			return
		}

		logger.FromContext(r.Context()).Info("course deleted", slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, response.Message{
			"message": "course deleted",
			"deleted": course,
		})
	}
}
