package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/trainrup/billing/internal/http/response"
	"github.com/trainrup/billing/internal/lib/sl"
	"github.com/trainrup/billing/internal/models"
)

// UserReader loads the current account state for the gate check.
type UserReader interface {
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
}

// AccessGateMiddleware re-checks the account on every request: a token
// issued before an admin blocked the account or before the subscription
// lapsed must stop working immediately, not at its expiry. Blocking is
// checked first and admins skip the subscription gate.
func AccessGateMiddleware(users UserReader, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.AccessGateMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			caller, ok := CallerFromContext(r.Context())
			if !ok {
				log.Error("caller not found in context")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthorized"))
				return
			}

			user, err := users.GetUserByUID(r.Context(), caller.UID)
			if err != nil {
				log.Error("failed to load account for access check", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("unauthorized"))
				return
			}

			if user.AccountBlocked {
				log.Warn("blocked account denied", slog.String("uid", user.UID))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("account is blocked"))
				return
			}
			if user.Role != models.RoleAdmin && !user.IsSubscriptionActive(time.Now()) {
				log.Warn("inactive subscription denied", slog.String("uid", user.UID))
				render.Status(r, http.StatusPaymentRequired)
				render.JSON(w, r, response.Error("subscription is not active"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
