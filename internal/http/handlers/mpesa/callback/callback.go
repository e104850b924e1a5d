// Package callback implements the unauthenticated endpoint the gateway
// posts the asynchronous STK result to. The endpoint always acknowledges
// well-formed payloads so the gateway stops redelivering; settling or
// releasing the payment happens inside the coordinator.
package callback

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/trainrup/billing/internal/http/response"
	"github.com/trainrup/billing/internal/lib/sl"
	"github.com/trainrup/billing/internal/mpesa"
)

// Handler serves gateway callbacks.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service describes the callback settlement business logic.
type Service interface {
	HandleCallback(ctx context.Context, payload *mpesa.CallbackPayload) error
}

// New creates a callback Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Gateway callback
// @Description Receives the asynchronous STK push result from the payment gateway.
// @Tags Mpesa
// @Accept json
// @Produce json
// @Success 200 {object} map[string]any "Acknowledgement"
// @Failure 400 {object} response.ErrorResponse "Malformed payload"
// @Router /payments/mpesa/callback [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.mpesa.callback"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var payload mpesa.CallbackPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		log.Error("failed to decode callback payload", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid callback payload"))
		return
	}

	if err := h.service.HandleCallback(r.Context(), &payload); err != nil {
		log.Error("failed to process callback", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal error"))
		return
	}

	// Daraja expects this exact acknowledgement shape.
	render.JSON(w, r, map[string]any{
		"ResultCode": 0,
		"ResultDesc": "Accepted",
	})
}
