// Package auth contains the HTTP handlers for registering, logging in
// and out, and reading the current user.
//
// TOKEN LIFECYCLE:
// ────────────────
//
//	register / login  → token issued, session row written
//	every request     → middleware.Authenticate checks signature AND row
//	logout            → session row deleted, token stops working at once
//	purge job         → rows older than the token TTL are removed
package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	authn "github.com/aanand-mishra/institute-api/internal/auth"
	"github.com/aanand-mishra/institute-api/internal/http/middleware"
	"github.com/aanand-mishra/institute-api/internal/logger"
	"github.com/aanand-mishra/institute-api/internal/storage"
	"github.com/aanand-mishra/institute-api/internal/types"
	"github.com/aanand-mishra/institute-api/internal/utils/request"
	"github.com/aanand-mishra/institute-api/internal/utils/response"
)

// Store is the slice of storage these handlers need.
type Store interface {
	storage.Users
	storage.Sessions
}

// Credentials is the body of register and login.
type Credentials struct {
	Username string `json:"username" validate:"required,notblank"`
	Password string `json:"password" validate:"required,password"`
}

// userView is the public part of a user returned with a token.
type userView struct {
	ID       int64  `json:"userid"`
	Username string `json:"username"`
}

var ErrWrongPassword = errors.New("invalid password")

// decodeCredentials writes the 400 itself and reports whether to go on.
func decodeCredentials(w http.ResponseWriter, r *http.Request) (Credentials, bool) {
	var in Credentials
	if err := request.DecodeJSON(w, r, &in); err != nil {
		response.WriteJSON(w, http.StatusBadRequest, response.GeneralError(err))
		return in, false
	}
	if err := request.Validate(in); err != nil {
		response.WriteJSON(w, http.StatusBadRequest,
			response.ValidationError(err.(validator.ValidationErrors)))
		return in, false
	}
	return in, true
}

// ─────────────────────────────────────────────────────────────────────────────
// Register handles POST /api/auth/register
//
// Request body:
//
//	{ "username": "alice", "password": "s3cret" }
//
// Success response (201 Created):
//
//	{ "message": "user registered", "user": { "userid": 1, "username": "alice" }, "token": "..." }
//
// Error responses:
//
//	400 → missing username or password
//	409 → username already taken
//
// ─────────────────────────────────────────────────────────────────────────────
func Register(store Store, issuer *authn.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		in, ok := decodeCredentials(w, r)
		if !ok {
			return
		}

		hash, err := authn.HashPassword(in.Password)
		if err != nil {
			response.StoreError(w, r, "error hashing password", err)
			return
		}

		// The token is usable right away, so the user and its session
		// are written together or not at all.
		user, session, err := store.RegisterUser(r.Context(), in.Username, hash,
			func(u types.User) (types.Session, error) {
				token, claims, err := issuer.Issue(u.ID, u.Username)
				if err != nil {
					return types.Session{}, err
				}
				return types.Session{Token: token, UserID: u.ID, IssuedAt: claims.IssuedAt.Time}, nil
			})
		if err != nil {
			response.StoreError(w, r, "error registering user", err)
			return
		}

		log.Info("user registered", slog.Int64("userid", user.ID))
		response.WriteJSON(w, http.StatusCreated, response.Message{
			"message": "user registered",
			"user":    userView{ID: user.ID, Username: user.Username},
			"token":   session.Token,
		})
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Login handles POST /api/auth/login
//
//	400 → missing username or password
//	404 → no such user
//	401 → wrong password
//	200 → { "message": "login successful", "token": "...", "user": {...} }
//
// last_login and the session row are written in one transaction.
// ─────────────────────────────────────────────────────────────────────────────
func Login(store Store, issuer *authn.Issuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		in, ok := decodeCredentials(w, r)
		if !ok {
			return
		}

		user, err := store.GetUserByUsername(r.Context(), in.Username)
		if err != nil {
			response.StoreError(w, r, "error getting user", err)
			return
		}

		if !authn.VerifyPassword(in.Password, user.PasswordHash) {
			log.Info("login rejected", slog.Int64("userid", user.ID))
			response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(ErrWrongPassword))
			return
		}

		token, claims, err := issuer.Issue(user.ID, user.Username)
		if err != nil {
			response.StoreError(w, r, "error issuing token", err)
			return
		}

		err = store.RecordLogin(r.Context(), types.Session{
			Token: token, UserID: user.ID, IssuedAt: claims.IssuedAt.Time,
		})
		if err != nil {
			response.StoreError(w, r, "error recording login", err)
			return
		}

		log.Info("user logged in", slog.Int64("userid", user.ID))
		response.WriteJSON(w, http.StatusOK, response.Message{
			"message": "login successful",
			"token":   token,
			"user":    userView{ID: user.ID, Username: user.Username},
		})
	}
}

// Logout handles POST /api/auth/logout. It must run behind
// middleware.Authenticate; the presented token is revoked.
func Logout(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := middleware.TokenFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.ErrorMessage("not authenticated"))
			return
		}

		if err := store.DeleteSession(r.Context(), token); err != nil {
			response.StoreError(w, r, "error deleting session", err)
			return
		}
		response.WriteJSON(w, http.StatusOK, response.Message{"message": "logged out"})
	}
}

// Me handles GET /api/auth/me and returns the authenticated user.
func Me(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.ClaimsFromContext(r.Context())
		if !ok {
			response.WriteJSON(w, http.StatusUnauthorized, response.ErrorMessage("not authenticated"))
			return
		}

		user, err := store.GetUserByID(r.Context(), claims.UserID)
		if err != nil {
			response.StoreError(w, r, "error getting user", err)
			return
		}
		response.WriteJSON(w, http.StatusOK, user)
	}
}
