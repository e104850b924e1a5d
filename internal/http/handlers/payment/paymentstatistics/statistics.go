// Package paymentstatistics implements the HTTP handler for the money
// aggregates, recomputed from current records on every request.
package paymentstatistics

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/trainrup/billing/internal/http/middlewarectx"
	"github.com/trainrup/billing/internal/http/response"
	"github.com/trainrup/billing/internal/lib/sl"
	"github.com/trainrup/billing/internal/models"
)

// Handler serves statistics requests.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service describes the statistics business logic.
type Service interface {
	Statistics(ctx context.Context, caller models.Caller) (*models.Statistics, error)
}

// New creates a statistics Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Payment statistics
// @Description Returns the aggregate money view: totals received, pending, overdue and this/last month revenue.
// @Tags Payments
// @Produce json
// @Success 200 {object} map[string]any "Aggregates"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Router /payments/statistics [get]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.statistics"
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

	stats, err := h.service.Statistics(r.Context(), caller)
	if err != nil {
		log.Error("failed to compute statistics", sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	render.JSON(w, r, response.OKWithData(stats))
}
