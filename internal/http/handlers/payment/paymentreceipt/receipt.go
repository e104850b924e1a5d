// Package paymentreceipt implements the HTTP handler that returns the
// receipt data for a completed payment. The engine emits data only; the
// document itself is rendered elsewhere.
package paymentreceipt

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

// Handler serves receipt requests.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service describes the receipt business logic.
type Service interface {
	Receipt(ctx context.Context, caller models.Caller, id int) (*models.Receipt, error)
}

// New creates a receipt Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Receipt data for a completed payment
// @Description Returns the payment and a snapshot of the billed client. Only completed payments have receipts.
// @Tags Payments
// @Produce json
// @Param id path int true "Payment id"
// @Success 200 {object} map[string]any "Receipt data"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 404 {object} response.ErrorResponse "Payment not found"
// @Failure 409 {object} response.ErrorResponse "Payment is not completed"
// @Router /payments/{id}/receipt [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.receipt"
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

	receipt, err := h.service.Receipt(r.Context(), caller, id)
	if err != nil {
		log.Error("failed to build receipt", sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("receipt built", slog.Int("id", id))
	render.JSON(w, r, response.OKWithData(receipt))
}
