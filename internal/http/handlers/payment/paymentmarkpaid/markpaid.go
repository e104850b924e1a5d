// Package paymentmarkpaid implements the HTTP handler for manually
// completing a pending payment, for money received outside the gateway.
package paymentmarkpaid

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/trainrup/billing/internal/http/middlewarectx"
	"github.com/trainrup/billing/internal/http/response"
	"github.com/trainrup/billing/internal/lib/sl"
	"github.com/trainrup/billing/internal/models"
)

// Handler serves mark-paid requests.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service describes the completion business logic.
type Service interface {
	MarkCompleted(ctx context.Context, caller models.Caller, id int, req models.DummyMarkPaid) (*models.Payment, error)
}

// New creates a mark-paid Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Mark a payment as paid
// @Description Completes a pending payment. The settlement method may differ from the one recorded at creation.
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path int true "Payment id"
// @Param request body models.DummyMarkPaid true "Settlement details"
// @Success 200 {object} map[string]any "Completed payment"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 404 {object} response.ErrorResponse "Payment not found"
// @Failure 409 {object} response.ErrorResponse "Payment is not pending"
// @Router /payments/{id}/mark-paid [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.markpaid"
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

	var req models.DummyMarkPaid
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

	payment, err := h.service.MarkCompleted(r.Context(), caller, id, req)
	if err != nil {
		log.Error("failed to mark payment paid", sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("payment marked paid", slog.Int("id", id))
	render.JSON(w, r, response.OKWithData(payment))
}
