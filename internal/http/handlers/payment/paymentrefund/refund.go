// Package paymentrefund implements the HTTP handler for refunding a completed payment.
package paymentrefund

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

// Handler serves refund requests.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service describes the business logic behind the handler.
type Service interface {
	Refund(ctx context.Context, caller models.Caller, id int) (*models.Payment, error)
}

// New creates a Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Refund a payment
// @Description Moves a completed payment to refunded. Refunded is terminal.
// @Tags Payments
// @Produce json
// @Param id path int true "Payment id"
// @Success 200 {object} map[string]any
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 404 {object} response.ErrorResponse "Payment not found"
// @Failure 409 {object} response.ErrorResponse "Status forbids the operation"
// @Router /payments/{id}/refund [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.refund"
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

	payment, err := h.service.Refund(r.Context(), caller, id)
	if err != nil {
		log.Error("failed to refund payment", sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("payment refunded", slog.Int("id", id))
	render.JSON(w, r, response.OKWithData(payment))
}
