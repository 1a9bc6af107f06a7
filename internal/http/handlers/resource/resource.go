// Package resource builds the five CRUD handlers for any table described
// by a storage.Schema.
//
// HOW IT FITS TOGETHER:
// ─────────────────────
// A simple entity (a cohort, a course section) needs no handler code of
// its own. Its Schema lists which JSON fields exist, which may be set on
// create and which on update. The store turns that into a
// storage.Resource[T], and these factories turn the Resource into
// http.HandlerFuncs:
//
//	router.HandleFunc("GET /api/cohorts", resource.List(store.Cohorts()))
//
// The column list of every INSERT/UPDATE comes from the Schema. Keys a
// client sends that the Schema does not declare are ignored.
package resource

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/aanand-mishra/institute-api/internal/logger"
	"github.com/aanand-mishra/institute-api/internal/storage"
	"github.com/aanand-mishra/institute-api/internal/utils/request"
	"github.com/aanand-mishra/institute-api/internal/utils/response"
)

// ErrNoUpdatableFields is returned for an update body that names none of
// the fields the schema allows to change.
var ErrNoUpdatableFields = errors.New("no updatable fields supplied")

// List handles GET /api/<table>. An empty table yields [] (never null).
func List[T any](res storage.Resource[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := res.List(r.Context())
		if err != nil {
			response.StoreError(w, r, "error listing "+res.Schema().Table, err)
			return
		}
		if rows == nil {
			rows = []T{}
		}
		response.WriteJSON(w, http.StatusOK, rows)
	}
}

// Get handles GET /api/<table>/{id}.
func Get[T any](res storage.Resource[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := request.ID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		row, err := res.Get(r.Context(), id)
		if err != nil {
			response.StoreError(w, r, "error getting "+res.Schema().Table, err)
			return
		}
		response.WriteJSON(w, http.StatusOK, row)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Create handles POST /api/<table>.
//
//	201 Created  → the inserted row as stored
//	400          → malformed JSON, missing required field, bad value
//	409          → unique constraint violated
// ─────────────────────────────────────────────────────────────────────────────
func Create[T any](res storage.Resource[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())
		table := res.Schema().Table

		in, err := request.DecodeFields(w, r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		values, err := res.Schema().Insert(in)
		if err != nil {
			response.StoreError(w, r, "error validating "+table, err)
			return
		}

		row, err := res.Create(r.Context(), values)
		if err != nil {
			response.StoreError(w, r, "error creating "+table, err)
			return
		}

		log.Info("record created", slog.String("table", table))
		response.WriteJSON(w, http.StatusCreated, row)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Update handles PUT /api/<table>/{id}. It is a partial update: only the
// allow-listed fields present in the body are written.
//
// A body with none of them is rejected with 400 before the store is
// touched.
// ─────────────────────────────────────────────────────────────────────────────
func Update[T any](res storage.Resource[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := res.Schema().Table

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

		values, err := res.Schema().Assignments(in)
		if err != nil {
			response.StoreError(w, r, "error validating "+table, err)
			return
		}
		if values.Empty() {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(ErrNoUpdatableFields))
			return
		}

		row, err := res.Update(r.Context(), id, values)
		if err != nil {
			response.StoreError(w, r, "error updating "+table, err)
			return
		}

		logger.FromContext(r.Context()).Info("record updated",
			slog.String("table", table), slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, row)
	}
}

// Delete handles DELETE /api/<table>/{id} and returns the removed row:
//
//	{ "message": "record deleted", "deleted": { ... } }
func Delete[T any](res storage.Resource[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table := res.Schema().Table

		id, err := request.ID(r)
		if err != nil {
			response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
			return
		}

		row, err := res.Delete(r.Context(), id)
		if err != nil {
			response.StoreError(w, r, "error deleting "+table, err)
			return
		}

		logger.FromContext(r.Context()).Info("record deleted",
			slog.String("table", table), slog.Int64("id", id))
		response.WriteJSON(w, http.StatusOK, response.Message{
			"message": "record deleted",
			"deleted": row,
		})
	}
}
