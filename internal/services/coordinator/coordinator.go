// Package coordinator drives the asynchronous mobile-money confirmation
// handshake: claim the one outstanding prompt per payment, initiate it
// at the gateway, then settle or release the claim when the callback
// arrives. The payment stays pending until the gateway confirms success;
// a declined or timed-out prompt only releases the claim so the trainer
// can re-prompt.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trainrup/billing/internal/errs"
	"github.com/trainrup/billing/internal/lib/phone"
	"github.com/trainrup/billing/internal/lib/sl"
	"github.com/trainrup/billing/internal/models"
	"github.com/trainrup/billing/internal/mpesa"
)

// Repository defines the storage methods the handshake needs.
type Repository interface {
	ReadPayment(ctx context.Context, trainerUID string, id int) (*models.Payment, error)
	ClaimPrompt(ctx context.Context, trainerUID string, id int, phoneNumber string) (int, error)
	StoreCheckoutRequest(ctx context.Context, id int, checkoutRequestID string) error
	ReleasePrompt(ctx context.Context, id int) error
	CompletePromptedPayment(ctx context.Context, checkoutRequestID, receiptNumber string) (int, error)
	ReleasePromptByCheckoutID(ctx context.Context, checkoutRequestID string) (int, error)
}

// Gateway is the STK-push side of the mobile-money provider.
type Gateway interface {
	InitiateSTKPush(ctx context.Context, phoneNumber string, amount float64, accountReference, description string) (*mpesa.STKPushResponse, error)
}

// InitiateResult is returned to the trainer after a prompt is sent. The
// payment itself is still pending at this point.
type InitiateResult struct {
	PaymentID         int    `json:"payment_id"`
	CheckoutRequestID string `json:"checkout_request_id"`
	CustomerMessage   string `json:"customer_message"`
}

// Service coordinates STK prompts and their callbacks.
type Service struct {
	repo    Repository
	gateway Gateway
	log     *slog.Logger
}

// New creates a coordinator Service.
func New(repo Repository, gateway Gateway, log *slog.Logger) *Service {
	return &Service{repo: repo, gateway: gateway, log: log}
}

// Initiate sends an STK prompt for a pending payment. The claim on
// stk_prompt_outstanding is taken before the gateway call, so concurrent
// initiations for the same payment produce exactly one prompt; a repeat
// call while the prompt is live returns the stored acknowledgement
// without touching the gateway. If the gateway call fails the claim is
// released and the caller may retry.
func (s *Service) Initiate(ctx context.Context, caller models.Caller, id int, rawPhone string) (*InitiateResult, error) {
	const op = "services.coordinator.Initiate"

	p, err := s.repo.ReadPayment(ctx, caller.UID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if p.Status != models.PaymentStatusPending {
		return nil, fmt.Errorf("%s: payment %d is %s: %w", op, id, p.Status, errs.ErrInvalidTransition)
	}

	if rawPhone == "" {
		rawPhone = p.PhoneNumber
	}
	msisdn, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, errs.ErrValidation, err)
	}

	rows, err := s.repo.ClaimPrompt(ctx, caller.UID, id, msisdn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		// A retry while the prompt is live gets the stored
		// acknowledgement back instead of an error, so a trainer whose
		// first response was lost can still obtain the checkout id
		// without pushing a second payer prompt.
		cur, readErr := s.repo.ReadPayment(ctx, caller.UID, id)
		if readErr != nil {
			return nil, fmt.Errorf("%s: %w", op, readErr)
		}
		if cur.PromptOutstanding && cur.CheckoutRequestID != nil {
			s.log.Info("prompt already outstanding, returning stored acknowledgement",
				slog.Int("payment_id", id),
				slog.String("checkout_request_id", *cur.CheckoutRequestID))
			return &InitiateResult{
				PaymentID:         id,
				CheckoutRequestID: *cur.CheckoutRequestID,
			}, nil
		}
		return nil, fmt.Errorf("%s: a prompt is already outstanding for payment %d: %w", op, id, errs.ErrInvalidTransition)
	}

	resp, err := s.gateway.InitiateSTKPush(ctx, msisdn, p.Amount, p.InvoiceNumber, p.Description)
	if err != nil {
		if relErr := s.repo.ReleasePrompt(ctx, id); relErr != nil {
			s.log.Error("failed to release prompt claim after gateway error",
				slog.Int("payment_id", id), sl.Err(relErr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.StoreCheckoutRequest(ctx, id, resp.CheckoutRequestID); err != nil {
		// Without the checkout id the callback can never match, so the
		// claim must not stay outstanding. The payer may still confirm
		// the live prompt; that callback is then ignored as unknown and
		// the trainer re-prompts.
		if relErr := s.repo.ReleasePrompt(ctx, id); relErr != nil {
			s.log.Error("failed to release prompt claim after store error",
				slog.Int("payment_id", id), sl.Err(relErr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("stk prompt sent",
		slog.Int("payment_id", id),
		slog.String("checkout_request_id", resp.CheckoutRequestID))

	return &InitiateResult{
		PaymentID:         id,
		CheckoutRequestID: resp.CheckoutRequestID,
		CustomerMessage:   resp.CustomerMessage,
	}, nil
}

// HandleCallback settles the handshake from the gateway's asynchronous
// result. Success completes the payment with the gateway receipt as the
// transaction reference. Any failure (declined, timed out, cancelled)
// releases the claim and leaves the payment pending. Unknown checkout
// IDs and replayed callbacks are acknowledged without effect so the
// gateway stops redelivering.
func (s *Service) HandleCallback(ctx context.Context, payload *mpesa.CallbackPayload) error {
	const op = "services.coordinator.HandleCallback"

	result := mpesa.ParseCallback(payload)
	if result.CheckoutRequestID == "" {
		s.log.Warn("callback without checkout request id, ignored")
		return nil
	}

	if result.Success {
		rows, err := s.repo.CompletePromptedPayment(ctx, result.CheckoutRequestID, result.ReceiptNumber)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		if rows == 0 {
			s.log.Warn("success callback matched no pending payment, ignored",
				slog.String("checkout_request_id", result.CheckoutRequestID))
			return nil
		}
		s.log.Info("payment completed via mobile money",
			slog.String("checkout_request_id", result.CheckoutRequestID),
			slog.String("receipt", result.ReceiptNumber))
		return nil
	}

	rows, err := s.repo.ReleasePromptByCheckoutID(ctx, result.CheckoutRequestID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		s.log.Warn("failure callback matched no outstanding prompt, ignored",
			slog.String("checkout_request_id", result.CheckoutRequestID))
		return nil
	}
	s.log.Info("stk prompt declined, payment stays pending",
		slog.String("checkout_request_id", result.CheckoutRequestID),
		slog.Int("result_code", result.ResultCode),
		slog.String("result_desc", result.ResultDescription))
	return nil
}
