// Package errs defines the error taxonomy shared by services, storage and
// HTTP handlers. Handlers map these sentinels onto HTTP statuses; services
// wrap them with operation context via fmt.Errorf and %w.
package errs

import "errors"

var (
	// ErrValidation marks bad input: non-positive amount, malformed phone
	// number, missing required field.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTransition marks a mutation attempted from a payment or
	// subscription status that does not permit it.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrNotFound marks an unknown payment, trainer or client id.
	ErrNotFound = errors.New("not found")

	// ErrLimitExceeded marks a client quota violation.
	ErrLimitExceeded = errors.New("client limit exceeded")

	// ErrGateway marks a failed or timed out call to the M-Pesa gateway.
	// It is the only retryable error in the taxonomy; retries must go
	// through the idempotent initiate path.
	ErrGateway = errors.New("payment gateway error")

	// ErrPermissionDenied marks a non-admin caller invoking an admin-only
	// operation or a caller acting across trainer boundaries.
	ErrPermissionDenied = errors.New("permission denied")
)
