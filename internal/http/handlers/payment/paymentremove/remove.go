// Package paymentremove implements the HTTP handler for deleting a
// pending payment. Completed, failed and refunded records stay for audit.
package paymentremove

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/trainrup/billing/internal/http/middlewarectx"
	"github.com/trainrup/billing/internal/http/response"
	"github.com/trainrup/billing/internal/lib/sl"
	"github.com/trainrup/billing/internal/models"
)

// Handler serves payment deletion requests.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service describes the deletion business logic.
type Service interface {
	Delete(ctx context.Context, caller models.Caller, id int) error
}

// New creates a deletion Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Delete a pending payment
// @Description Removes a payment that is still pending. Settled records cannot be deleted.
// @Tags Payments
// @Produce json
// @Param id path int true "Payment id"
// @Success 200 {object} map[string]any
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 404 {object} response.ErrorResponse "Payment not found"
// @Failure 409 {object} response.ErrorResponse "Payment is not pending"
// @Router /payments/{id} [delete]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.remove"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		log.Error("invalid payment id", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid payment id"))
		return
	}

	caller, ok := middlewarectx.CallerFromContext(r.Context())
	if !ok {
		log.Error("caller not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	if err := h.service.Delete(r.Context(), caller, id); err != nil {
		log.Error("failed to delete payment", sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("payment deleted", slog.Int("id", id))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"deleted_id": id,
	}))
}
