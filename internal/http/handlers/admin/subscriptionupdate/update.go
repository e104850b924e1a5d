// Package subscriptionupdate implements the admin HTTP handler for the
// partial subscription update: status, plan, client limit and trial
// extension. Setting the status back to active or trial also lifts an
// account block.
package subscriptionupdate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/trainrup/billing/internal/http/middlewarectx"
	"github.com/trainrup/billing/internal/http/response"
	"github.com/trainrup/billing/internal/lib/sl"
	"github.com/trainrup/billing/internal/models"
)

// Handler serves admin subscription updates.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service describes the subscription administration business logic.
type Service interface {
	Update(ctx context.Context, caller models.Caller, trainerUID string, upd models.DummySubscriptionUpdate) (*models.SubscriptionUpdateView, error)
}

// New creates an update Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Update a trainer's subscription
// @Description Applies a partial subscription change. Absent fields stay unchanged; trial extensions accumulate.
// @Tags Admin
// @Accept json
// @Produce json
// @Param uid path string true "Trainer uid"
// @Param request body models.DummySubscriptionUpdate true "Fields to change"
// @Success 200 {object} map[string]any "Updated subscription plus blocking state"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 403 {object} response.ErrorResponse "Caller is not an admin"
// @Failure 404 {object} response.ErrorResponse "Trainer not found"
// @Failure 422 {object} response.ErrorResponse "Validation failed"
// @Router /admin/trainers/{uid}/subscription [patch]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.subscriptionupdate"
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

	var req models.DummySubscriptionUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	caller, ok := middlewarectx.CallerFromContext(r.Context())
	if !ok {
		log.Error("caller not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	view, err := h.service.Update(r.Context(), caller, trainerUID, req)
	if err != nil {
		log.Error("failed to update subscription", sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("subscription updated", slog.String("trainer_uid", trainerUID))
	render.JSON(w, r, response.OKWithData(view))
}
