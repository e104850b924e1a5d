// Package paymentoverdue implements the HTTP handler for the overdue
// payments view, derived from the current date on every request.
package paymentoverdue

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/trainrup/billing/internal/http/middlewarectx"
	"github.com/trainrup/billing/internal/http/response"
	"github.com/trainrup/billing/internal/lib/sl"
	"github.com/trainrup/billing/internal/models"
)

// Handler serves overdue listing requests.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service describes the overdue listing business logic.
type Service interface {
	Overdue(ctx context.Context, caller models.Caller, limit, offset int) ([]*models.Payment, error)
}

// New creates an overdue listing Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary List overdue payments
// @Description Returns pending payments whose due date has passed, oldest due first.
// @Tags Payments
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]any "Overdue payments"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Router /payments/overdue [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.overdue"
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

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	payments, err := h.service.Overdue(r.Context(), caller, limit, offset)
	if err != nil {
		log.Error("failed to list overdue payments", sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("overdue payments listed", slog.Int("count", len(payments)))
	render.JSON(w, r, response.OKWithData(payments))
}
