package repository

import (
	"context"
	"fmt"
)

// ClaimPrompt marks a pending payment as having a live STK prompt. The
// conditional UPDATE is the idempotency guard: only one caller can win the
// claim, so a retried initiate never produces a second payer prompt.
// Returns the number of rows claimed (0 or 1).
func (s *Storage) ClaimPrompt(ctx context.Context, trainerUID string, id int, phoneNumber string) (int, error) {
	const op = "storage.ClaimPrompt"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments
			  SET stk_prompt_outstanding = TRUE, phone_number = $3, updated_at = NOW()
			  WHERE id = $1 AND trainer_uid = $2
			    AND payment_status = 'pending'
			    AND stk_prompt_outstanding = FALSE`
	result, err := s.DB.ExecContext(ctx, query, id, trainerUID, phoneNumber)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// StoreCheckoutRequest records the gateway's checkout request id for a
// claimed prompt so the later callback can find the payment.
func (s *Storage) StoreCheckoutRequest(ctx context.Context, id int, checkoutRequestID string) error {
	const op = "storage.StoreCheckoutRequest"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments
			  SET checkout_request_id = $2, updated_at = NOW()
			  WHERE id = $1`
	if _, err := s.DB.ExecContext(ctx, query, id, checkoutRequestID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ReleasePrompt clears the outstanding-prompt claim, leaving the payment
// pending. Used when the gateway call fails or the payer cancels.
func (s *Storage) ReleasePrompt(ctx context.Context, id int) error {
	const op = "storage.ReleasePrompt"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments
			  SET stk_prompt_outstanding = FALSE, updated_at = NOW()
			  WHERE id = $1`
	if _, err := s.DB.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CompletePromptedPayment completes a payment identified by its checkout
// request id, supplying the external receipt number as transaction_id.
// Guarded on the pending status like every other transition.
func (s *Storage) CompletePromptedPayment(ctx context.Context, checkoutRequestID, receiptNumber string) (int, error) {
	const op = "storage.CompletePromptedPayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments
			  SET payment_status = 'completed',
			      payment_date = NOW(),
			      payment_method = 'mobile_money',
			      transaction_id = $2,
			      stk_prompt_outstanding = FALSE,
			      updated_at = NOW()
			  WHERE checkout_request_id = $1 AND payment_status = 'pending'`
	result, err := s.DB.ExecContext(ctx, query, checkoutRequestID, receiptNumber)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ReleasePromptByCheckoutID clears the claim for a payment the payer
// cancelled or ignored. The payment stays pending.
func (s *Storage) ReleasePromptByCheckoutID(ctx context.Context, checkoutRequestID string) (int, error) {
	const op = "storage.ReleasePromptByCheckoutID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments
			  SET stk_prompt_outstanding = FALSE, updated_at = NOW()
			  WHERE checkout_request_id = $1 AND payment_status = 'pending'`
	result, err := s.DB.ExecContext(ctx, query, checkoutRequestID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
