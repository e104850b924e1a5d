package response

import (
	"errors"
	"net/http"

	"github.com/trainrup/billing/internal/errs"
)

// FromError maps a service error onto an HTTP status and error envelope.
// Unmapped errors come back as a generic 500 so internal details never
// leak to the client.
func FromError(err error) (int, ErrorResponse) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusUnprocessableEntity, Error("validation failed")
	case errors.Is(err, errs.ErrInvalidTransition):
		return http.StatusConflict, Error("operation not allowed in current state")
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, Error("not found")
	case errors.Is(err, errs.ErrLimitExceeded):
		return http.StatusForbidden, Error("plan limit exceeded")
	case errors.Is(err, errs.ErrPermissionDenied):
		return http.StatusForbidden, Error("permission denied")
	case errors.Is(err, errs.ErrGateway):
		return http.StatusBadGateway, Error("payment gateway unavailable, try again")
	default:
		return http.StatusInternalServerError, Error("internal error")
	}
}
