// Package router wires every route of the API onto one http.ServeMux.
//
// Route table (all JSON under /api):
//
//	GET    /api/health               public
//	POST   /api/auth/register        public
//	POST   /api/auth/login           public
//	POST   /api/auth/logout          bearer token
//	GET    /api/auth/me              bearer token
//	GET    /api/cohorts[/{id}]       bearer token
//	POST   /api/cohorts              bearer token
//	PUT    /api/cohorts/{id}         bearer token
//	DELETE /api/cohorts/{id}         bearer token
//	       /api/courses...           same five as cohorts
//	       /api/students...          same five as cohorts
//	GET    /api/coursesections       bearer token
//	GET    /                         static frontend
package router

import (
	"context"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/aanand-mishra/institute-api/internal/auth"
	authhandler "github.com/aanand-mishra/institute-api/internal/http/handlers/auth"
	"github.com/aanand-mishra/institute-api/internal/http/handlers/course"
	"github.com/aanand-mishra/institute-api/internal/http/handlers/resource"
	"github.com/aanand-mishra/institute-api/internal/http/handlers/student"
	"github.com/aanand-mishra/institute-api/internal/http/middleware"
	"github.com/aanand-mishra/institute-api/internal/storage"
	"github.com/aanand-mishra/institute-api/internal/utils/response"
)

// Deps is everything the routes need. It is built once in main.
type Deps struct {
	Store       storage.Storage
	Issuer      *auth.Issuer
	Log         *slog.Logger
	CORSOrigins []string

	// Static is served at "/". Nil disables the frontend.
	Static fs.FS
}

// New returns the fully wrapped handler for the server.
func New(d Deps) http.Handler {
	mux := http.NewServeMux()

	// protect wraps a single handler with bearer-token authentication.
	authenticate := middleware.Authenticate(d.Issuer, d.Store)
	protect := func(h http.HandlerFunc) http.Handler { return authenticate(h) }

	// ── Public ────────────────────────────────────────────────────────
	mux.HandleFunc("GET /api/health", health(d.Store))
	mux.HandleFunc("POST /api/auth/register", authhandler.Register(d.Store, d.Issuer))
	mux.HandleFunc("POST /api/auth/login", authhandler.Login(d.Store, d.Issuer))

	// ── Auth (protected) ─────────────────────────────────────────────
	mux.Handle("POST /api/auth/logout", protect(authhandler.Logout(d.Store)))
	mux.Handle("GET /api/auth/me", protect(authhandler.Me(d.Store)))

	// ── Cohorts: fully generic ────────────────────────────────────────
	cohorts := d.Store.Cohorts()
	mux.Handle("GET /api/cohorts", protect(resource.List(cohorts)))
	mux.Handle("POST /api/cohorts", protect(resource.Create(cohorts)))
	mux.Handle("GET /api/cohorts/{id}", protect(resource.Get(cohorts)))
	mux.Handle("PUT /api/cohorts/{id}", protect(resource.Update(cohorts)))
	mux.Handle("DELETE /api/cohorts/{id}", protect(resource.Delete(cohorts)))

	// ── Course sections: read-only ────────────────────────────────────
	mux.Handle("GET /api/coursesections", protect(resource.List(d.Store.CourseSections())))

	// ── Courses ───────────────────────────────────────────────────────
	mux.Handle("GET /api/courses", protect(course.GetList(d.Store)))
	mux.Handle("POST /api/courses", protect(course.New(d.Store)))
	mux.Handle("GET /api/courses/{id}", protect(course.GetByID(d.Store)))
	mux.Handle("PUT /api/courses/{id}", protect(course.Update(d.Store)))
	mux.Handle("DELETE /api/courses/{id}", protect(course.Delete(d.Store)))

	// ── Students ──────────────────────────────────────────────────────
	mux.Handle("GET /api/students", protect(student.GetList(d.Store)))
	mux.Handle("POST /api/students", protect(student.New(d.Store)))
	mux.Handle("GET /api/students/{id}", protect(student.GetByID(d.Store)))
	mux.Handle("PUT /api/students/{id}", protect(student.Update(d.Store)))
	mux.Handle("DELETE /api/students/{id}", protect(student.Delete(d.Store)))

	if d.Static != nil {
		mux.Handle("GET /", http.FileServerFS(d.Static))
	}

	log := d.Log
	if log == nil {
		log = slog.Default()
	}
	return middleware.Chain(mux,
		middleware.RequestID(log),
		middleware.AccessLog,
		middleware.Recoverer,
		middleware.CORS(d.CORSOrigins),
	)
}

// health reports whether the database answers within two seconds.
func health(store storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			response.WriteJSON(w, http.StatusServiceUnavailable, response.GeneralError(err))
			return
		}
		response.WriteJSON(w, http.StatusOK, response.Message{"status": response.StatusOK})
	}
}
