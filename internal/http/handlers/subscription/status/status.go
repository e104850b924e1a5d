// Package status implements the HTTP handler for the derived subscription
// view: plan, effective client limit and trial countdown, all computed
// against today on every request.
package status

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/trainrup/billing/internal/http/middlewarectx"
	"github.com/trainrup/billing/internal/http/response"
	"github.com/trainrup/billing/internal/lib/sl"
	"github.com/trainrup/billing/internal/models"
)

// Handler serves subscription status requests.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service describes the subscription view business logic.
type Service interface {
	Status(ctx context.Context, caller models.Caller, trainerUID string) (*models.SubscriptionView, error)
}

// New creates a status Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Subscription status
// @Description Returns the derived subscription view. Trainers see their own; admins may pass another trainer's uid.
// @Tags Subscription
// @Produce json
// @Param uid path string false "Trainer uid (admin only)"
// @Success 200 {object} map[string]any "Subscription view"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 403 {object} response.ErrorResponse "Not allowed to inspect another trainer"
// @Router /subscription/status [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.status"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	caller, ok := middlewarectx.CallerFromContext(r.Context())
	if !ok {
		log.Error("caller not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	// Empty uid means the caller's own subscription.
	trainerUID := chi.URLParam(r, "uid")

	view, err := h.service.Status(r.Context(), caller, trainerUID)
	if err != nil {
		log.Error("failed to build subscription view", sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	render.JSON(w, r, response.OKWithData(view))
}
