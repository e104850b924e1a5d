// Package block implements the admin HTTP handler that raises the
// blocking overlay on a trainer account.
package block

import (
	"context"
	"encoding/json"
	"errors"
	"io"
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

// Handler serves admin block requests.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service describes the blocking business logic.
type Service interface {
	Block(ctx context.Context, caller models.Caller, trainerUID string, req models.DummyBlock) (*models.BlockingView, error)
}

// New creates a block Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Block a trainer account
// @Description Raises the blocking overlay. Blocking an already blocked account refreshes the reason.
// @Tags Admin
// @Accept json
// @Produce json
// @Param uid path string true "Trainer uid"
// @Param request body models.DummyBlock false "Block reason"
// @Success 200 {object} map[string]any "Blocking state"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 403 {object} response.ErrorResponse "Caller is not an admin"
// @Failure 404 {object} response.ErrorResponse "Trainer not found"
// @Router /admin/trainers/{uid}/block [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.block"
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

	// The reason is optional.
	var req models.DummyBlock
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Error("failed to decode request", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	caller, ok := middlewarectx.CallerFromContext(r.Context())
	if !ok {
		log.Error("caller not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	view, err := h.service.Block(r.Context(), caller, trainerUID, req)
	if err != nil {
		log.Error("failed to block account", sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("account blocked", slog.String("trainer_uid", trainerUID))
	render.JSON(w, r, response.OKWithData(view))
}
