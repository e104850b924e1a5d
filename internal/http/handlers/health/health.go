// Package health implements the readiness check.
package health

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/trainrup/billing/internal/http/response"
	"github.com/trainrup/billing/internal/lib/sl"
)

// Handler serves readiness checks.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service reports whether the storage is reachable.
type Service interface {
	CheckDatabaseReady(ctx context.Context) error
}

// New creates a health Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Readiness check
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} response.ErrorResponse "Storage unreachable"
// @Router /health [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CheckDatabaseReady(r.Context()); err != nil {
		h.log.Error("storage is not ready", sl.Err(err))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, response.Error("storage unreachable"))
		return
	}
	render.JSON(w, r, response.OKWithData(map[string]any{"healthy": true}))
}
