// Package unblock implements the admin HTTP handler that lifts the
// blocking overlay from a trainer account.
package unblock

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

// Handler serves admin unblock requests.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service describes the unblocking business logic.
type Service interface {
	Unblock(ctx context.Context, caller models.Caller, trainerUID string) (*models.BlockingView, error)
}

// New creates an unblock Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Unblock a trainer account
// @Description Lifts the blocking overlay and clears the stored reason and timestamp.
// @Tags Admin
// @Produce json
// @Param uid path string true "Trainer uid"
// @Success 200 {object} map[string]any "Blocking state"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 403 {object} response.ErrorResponse "Caller is not an admin"
// @Failure 404 {object} response.ErrorResponse "Trainer not found"
// @Router /admin/trainers/{uid}/unblock [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.unblock"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	trainerUID := chi.URLParam(r, "uid")
	if trainerUID == "" {
		log.Error("missing trainer uid")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("missing trainer uid"))
		return
	}

	caller, ok := middlewarectx.CallerFromContext(r.Context())
	if !ok {
		log.Error("caller not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	view, err := h.service.Unblock(r.Context(), caller, trainerUID)
	if err != nil {
		log.Error("failed to unblock account", sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("account unblocked", slog.String("trainer_uid", trainerUID))
	render.JSON(w, r, response.OKWithData(view))
}
