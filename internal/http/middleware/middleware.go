// Package middleware holds the http.Handler wrappers that run around
// every route.
//
// A middleware in Go is just a function that takes a handler and returns
// a handler:
//
//	func(next http.Handler) http.Handler
//
// Chain applies them so that the FIRST one listed is the OUTERMOST:
//
//	Chain(mux, RequestID(log), AccessLog, Recoverer)
//	// request → RequestID → AccessLog → Recoverer → mux
package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/aanand-mishra/institute-api/internal/logger"
	"github.com/aanand-mishra/institute-api/internal/utils/response"
)

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

type Middleware func(http.Handler) http.Handler

func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// ─────────────────────────────────────────────────────────────────────────────
// RequestID gives every request an id and a logger that carries it.
//
// An incoming X-Request-ID is kept so that a proxy in front of us can
// correlate its own logs with ours; otherwise a fresh UUID is generated.
// Handlers get the logger back with logger.FromContext(r.Context()).
// ─────────────────────────────────────────────────────────────────────────────
func RequestID(log *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			ctx := logger.WithContext(r.Context(), log.With(slog.String("request_id", id)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusRecorder remembers the status code written by the handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// AccessLog writes one line per request once the handler has returned.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.FromContext(r.Context()).Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// Recoverer turns a panic inside a handler into a 500 instead of a
// dropped connection.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.FromContext(r.Context()).Error("panic in handler",
					slog.Any("panic", rec))
				response.WriteJSON(w, http.StatusInternalServerError,
					response.ErrorMessage("internal server error"))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// CORS allows the listed browser origins to call the API with a bearer
// token. With no origins configured the handler is returned unchanged.
func CORS(origins []string) Middleware {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         600,
	})
	return c.Handler
}
