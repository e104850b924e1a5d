// Package initiate implements the HTTP handler that sends an STK push
// prompt for a pending payment. The response acknowledges the prompt
// only; completion waits for the asynchronous callback.
package initiate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
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
	"github.com/trainrup/billing/internal/services/coordinator"
)

// Handler serves STK push initiation requests.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service describes the handshake initiation business logic.
type Service interface {
	Initiate(ctx context.Context, caller models.Caller, id int, rawPhone string) (*coordinator.InitiateResult, error)
}

// New creates an initiation Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

type request struct {
	PhoneNumber string `json:"phone_number,omitempty"`
}

// ServeHTTP godoc
// @Summary Send an STK push prompt
// @Description Prompts the payer's phone for a pending payment. At most one prompt can be outstanding per payment.
// @Tags Mpesa
// @Accept json
// @Produce json
// @Param id path int true "Payment id"
// @Param request body request false "Override phone number"
// @Success 200 {object} map[string]any "Prompt acknowledgement"
// @Failure 401 {object} response.ErrorResponse "Unauthorized"
// @Failure 404 {object} response.ErrorResponse "Payment not found"
// @Failure 409 {object} response.ErrorResponse "Payment not pending or prompt already outstanding"
// @Failure 422 {object} response.ErrorResponse "Malformed phone number"
// @Failure 502 {object} response.ErrorResponse "Gateway unavailable"
// @Router /payments/{id}/mpesa [post]
// @Security BearerAuth
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.mpesa.initiate"
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

	// The body is optional: absent means prompt the number stored on
	// the payment.
	var req request
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

	result, err := h.service.Initiate(r.Context(), caller, id, req.PhoneNumber)
	if err != nil {
		log.Error("failed to initiate stk push", sl.Err(err))
		status, resp := response.FromError(err)
		render.Status(r, status)
		render.JSON(w, r, resp)
		return
	}

	log.Info("stk push initiated",
		slog.Int("payment_id", id),
		slog.String("checkout_request_id", result.CheckoutRequestID))
	render.JSON(w, r, response.OKWithData(result))
}
