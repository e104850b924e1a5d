// Package clientcreate implements the HTTP handler for onboarding a
// client under the plan's client quota.
package clientcreate

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/trainrup/billing/internal/http/middlewarectx"
	"github.com/trainrup/billing/internal/http/response"
	"github.com/trainrup/billing/internal/lib/sl"
	"github.com/trainrup/billing/internal/models"
)

// Handler serves client onboarding requests.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service describes the onboarding business logic.
type Service interface {
	Onboard(ctx context.Context, caller models.Caller, req models.DummyClient) (*models.Client, error)
}

// New creates an onboarding Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Onboard a client
// @Description Adds a client for the caller. Fails when the plan's client quota is reached.
// @Tags Clients
// @Accept json
// @Produce json
// @Param request body models.DummyClient true "Client data"
// @Success 200 {object} map[string]any "Created client"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 403 {object} response.ErrorResponse "Client quota reached"
// @Failure 422 {object} response.ErrorResponse "Validation failed"
// @Router /clients [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.client.create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyClient
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

	client, err := h.service.Onboard(r.Context(), caller, req)
	if err != nil {
		log.Error("failed to onboard client", sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("client onboarded", slog.Int("id", client.ID))
	render.JSON(w, r, response.OKWithData(client))
}
