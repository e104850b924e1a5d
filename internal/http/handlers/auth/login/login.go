// Package login implements the HTTP handler for authentication. Login is
// where blocked accounts and lapsed subscriptions are turned away.
package login

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/trainrup/billing/internal/errs"
	"github.com/trainrup/billing/internal/http/response"
	"github.com/trainrup/billing/internal/lib/sl"
	"github.com/trainrup/billing/internal/models"
)

// Handler serves login requests.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service describes the login business logic.
type Service interface {
	Login(ctx context.Context, req models.DummyLogin) (string, error)
}

// New creates a login Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP godoc
// @Summary Log in
// @Description Checks credentials and the account gates and returns a bearer token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.DummyLogin true "Credentials"
// @Success 200 {object} map[string]any "Bearer token"
// @Failure 400 {object} response.ErrorResponse "Invalid JSON"
// @Failure 401 {object} response.ErrorResponse "Invalid credentials"
// @Failure 403 {object} response.ErrorResponse "Account blocked or subscription inactive"
// @Router /login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyLogin
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

	token, err := h.service.Login(r.Context(), req)
	if err != nil {
		log.Error("login failed", sl.Err(err))
		switch {
		case errors.Is(err, errs.ErrValidation):
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, response.Error("invalid credentials"))
		case errors.Is(err, errs.ErrPermissionDenied):
			render.Status(r, http.StatusForbidden)
			render.JSON(w, r, response.Error("account access denied"))
		default:
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("internal error"))
		}
		return
	}

	log.Info("user logged in", slog.String("username", req.Username))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"token": token,
	}))
}
