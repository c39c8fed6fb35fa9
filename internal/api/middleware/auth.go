package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/localhub/server/internal/api/problem"
	"github.com/localhub/server/internal/auth"
	"github.com/localhub/server/internal/domain/users"
	"github.com/localhub/server/internal/metrics"
	"github.com/rs/zerolog"
)

// UserLoader hydrates the principal named by a verified token.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*users.User, error)
}

// Authenticate requires a valid bearer token whose user still exists, and
// attaches that user as the request principal. Routes that must stay public
// are simply not wrapped with it.
func Authenticate(tokens *auth.TokenManager, loader UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := auth.TokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				unauthorized(w, r, "missing_token", "Not authorized, no token", err)
				return
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				if errors.Is(err, auth.ErrInvalidPayload) {
					unauthorized(w, r, "invalid_payload", "Invalid token payload", err)
					return
				}
				unauthorized(w, r, "invalid_token", "Not authorized, token failed", err)
				return
			}

			user, err := loader.GetByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, users.ErrNotFound) {
					unauthorized(w, r, "unknown_user", "User not found", err)
					return
				}
				problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Failed to load user", err)
				return
			}

			ctx := auth.WithPrincipal(r.Context(), user.Principal())
			logger := zerolog.Ctx(ctx).With().Str("user_id", user.ID).Logger()
			ctx = logger.WithContext(ctx)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCapability rejects authenticated callers lacking capability with 403.
// It must run after Authenticate.
func RequireCapability(capability auth.Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := auth.PrincipalFromContext(r.Context())
			if principal == nil {
				unauthorized(w, r, "missing_principal", "Not authorized", problem.ErrUnauthorized)
				return
			}
			if !principal.Has(capability) {
				metrics.AuthFailuresTotal.WithLabelValues("forbidden").Inc()
				problem.Write(w, r, http.StatusForbidden, problem.TypeForbidden, "Access denied", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, r *http.Request, reason, title string, err error) {
	metrics.AuthFailuresTotal.WithLabelValues(reason).Inc()
	w.Header().Set("WWW-Authenticate", `Bearer realm="localhub"`)
	problem.Write(w, r, http.StatusUnauthorized, problem.TypeUnauthorized, title, err, problem.WithDetail(title))
}
