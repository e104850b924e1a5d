// Package paymentlist implements the HTTP handler for listing payments
// with optional status, client, overdue and date-range filters.
package paymentlist

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/trainrup/billing/internal/http/middlewarectx"
	"github.com/trainrup/billing/internal/http/response"
	"github.com/trainrup/billing/internal/lib/sl"
	"github.com/trainrup/billing/internal/models"
)

// Handler serves payment listing requests.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service describes the listing business logic.
type Service interface {
	List(ctx context.Context, caller models.Caller, filter models.ListFilter) ([]*models.Payment, error)
}

// New creates a listing Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func parseFilter(r *http.Request) models.ListFilter {
	q := r.URL.Query()
	filter := models.ListFilter{
		Status: q.Get("status"),
	}
	if v, err := strconv.Atoi(q.Get("client_id")); err == nil {
		filter.ClientID = v
	}
	if q.Get("overdue") == "true" {
		filter.Overdue = true
	}
	if t, err := time.Parse("2006-01-02", q.Get("date_from")); err == nil {
		filter.DateFrom = &t
	}
	if t, err := time.Parse("2006-01-02", q.Get("date_to")); err == nil {
		filter.DateTo = &t
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		filter.Offset = v
	}
	return filter
}

// ServeHTTP godoc
// @Summary List payments
// @Description Returns the caller's payments, optionally narrowed by status, client, overdue flag and due-date range.
// @Tags Payments
// @Produce json
// @Param status query string false "Payment status"
// @Param client_id query int false "Client id"
// @Param overdue query bool false "Only overdue payments"
// @Param date_from query string false "Due date lower bound (2006-01-02)"
// @Param date_to query string false "Due date upper bound (2006-01-02)"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} map[string]any "Payments"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Router /payments [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.list"
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

	payments, err := h.service.List(r.Context(), caller, parseFilter(r))
	if err != nil {
		log.Error("failed to list payments", sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("payments listed", slog.Int("count", len(payments)))
	render.JSON(w, r, response.OKWithData(payments))
}
