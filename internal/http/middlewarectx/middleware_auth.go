// Package middlewarectx contains the HTTP middleware chain: JWT
// authentication, the account access gate and rate limiting. The caller
// identity extracted from the token travels in the request context under
// typed keys.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/trainrup/billing/internal/http/response"
	"github.com/trainrup/billing/internal/lib/sl"
	"github.com/trainrup/billing/internal/models"
)

// Key is the type for request context keys.
type Key string

const (
	// User is the context key for the caller's username.
	User Key = "username"
	// Role is the context key for the caller's role.
	Role Key = "role"
	// UserUID is the context key for the caller's uid.
	UserUID Key = "user_uid"
)

// Service validates a bearer token into a caller identity.
type Service interface {
	ValidateToken(ctx context.Context, token string) (*models.Caller, error)
}

// CallerFromContext rebuilds the caller identity placed by JWTMiddleware.
func CallerFromContext(ctx context.Context) (models.Caller, bool) {
	username, ok := ctx.Value(User).(string)
	if !ok || username == "" {
		return models.Caller{}, false
	}
	role, _ := ctx.Value(Role).(string)
	uid, _ := ctx.Value(UserUID).(string)
	return models.Caller{UID: uid, Username: username, Role: role}, true
}

// JWTMiddleware checks the Authorization header and, on success, stores
// the caller's username, role and uid in the request context.
func JWTMiddleware(authService Service, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			authHeader := r.Header.Get("Authorization")

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Error("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			caller, err := authService.ValidateToken(r.Context(), tokenStr)
			if err != nil {
				log.Error("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			ctx := context.WithValue(r.Context(), User, caller.Username)
			ctx = context.WithValue(ctx, Role, caller.Role)
			ctx = context.WithValue(ctx, UserUID, caller.UID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
