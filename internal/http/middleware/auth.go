package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aanand-mishra/institute-api/internal/auth"
	"github.com/aanand-mishra/institute-api/internal/logger"
	"github.com/aanand-mishra/institute-api/internal/storage"
	"github.com/aanand-mishra/institute-api/internal/utils/response"
)

type claimsKey struct{}
type tokenKey struct{}

// ─────────────────────────────────────────────────────────────────────────────
// Authenticate guards a handler with a bearer token.
//
//	no / malformed Authorization header  → 401
//	bad signature, wrong alg, expired    → 403
//	token without a live session record → 401 (logged out or purged)
//	session lookup failed                → 500
//
// Only when all checks pass is next called, with the token claims on the
// request context (see ClaimsFromContext).
// ─────────────────────────────────────────────────────────────────────────────
func Authenticate(issuer *auth.Issuer, sessions storage.Sessions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				response.WriteJSON(w, http.StatusUnauthorized,
					response.ErrorMessage("authorization header missing or malformed"))
				return
			}

			claims, err := issuer.Parse(token)
			if err != nil {
				response.WriteJSON(w, http.StatusForbidden, response.GeneralError(err))
				return
			}

			if _, err := sessions.GetSession(r.Context(), token); err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					response.WriteJSON(w, http.StatusUnauthorized,
						response.ErrorMessage("session is no longer valid"))
					return
				}
				logger.FromContext(r.Context()).Error("session lookup failed",
					slog.String("error", err.Error()))
				response.WriteJSON(w, http.StatusInternalServerError,
					response.ErrorMessage("internal server error"))
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			ctx = context.WithValue(ctx, tokenKey{}, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// ClaimsFromContext returns the claims set by Authenticate.
func ClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*auth.Claims)
	return c, ok
}

// TokenFromContext returns the raw bearer token accepted by Authenticate.
func TokenFromContext(ctx context.Context) (string, bool) {
	t, ok := ctx.Value(tokenKey{}).(string)
	return t, ok
}
