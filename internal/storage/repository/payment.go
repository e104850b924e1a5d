package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/trainrup/billing/internal/errs"
	"github.com/trainrup/billing/internal/models"
)

const paymentColumns = `id, trainer_uid, client_id, amount, payment_method, payment_status,
	due_date, payment_date, transaction_id, invoice_number, description, notes,
	phone_number, stk_prompt_outstanding, checkout_request_id, created_at, updated_at`

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.TrainerUID, &p.ClientID, &p.Amount, &p.Method, &p.Status,
		&p.DueDate, &p.PaymentDate, &p.TransactionID, &p.InvoiceNumber, &p.Description,
		&p.Notes, &p.PhoneNumber, &p.PromptOutstanding, &p.CheckoutRequestID,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePayment inserts a new pending payment and returns its ID.
func (s *Storage) CreatePayment(ctx context.Context, p models.Payment) (int, error) {
	const op = "storage.CreatePayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO payments (trainer_uid, client_id, amount, payment_method,
			      payment_status, due_date, invoice_number, description, notes, phone_number)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			  RETURNING id`
	var newID int
	err := s.DB.QueryRowContext(ctx, query,
		p.TrainerUID, p.ClientID, p.Amount, p.Method, p.Status,
		p.DueDate, p.InvoiceNumber, p.Description, p.Notes, p.PhoneNumber).Scan(&newID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return newID, nil
}

// ReadPayment returns a payment owned by the given trainer.
func (s *Storage) ReadPayment(ctx context.Context, trainerUID string, id int) (*models.Payment, error) {
	const op = "storage.ReadPayment"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND trainer_uid = $2`
	p, err := scanPayment(s.DB.QueryRowContext(ctx, query, id, trainerUID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, errs.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// MarkPaymentCompleted flips a pending payment to completed, stamping the
// payment date exactly once. The WHERE clause checks the persisted status;
// zero rows affected means the record was missing or not pending.
func (s *Storage) MarkPaymentCompleted(ctx context.Context, trainerUID string, id int, method string, transactionID *string, note string) (int, error) {
	const op = "storage.MarkPaymentCompleted"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments
			  SET payment_status = 'completed',
			      payment_date = NOW(),
			      payment_method = $3,
			      transaction_id = COALESCE($4, transaction_id),
			      notes = CASE WHEN $5 = '' THEN notes
			                   WHEN notes = '' THEN $5
			                   ELSE notes || E'\n' || $5 END,
			      stk_prompt_outstanding = FALSE,
			      updated_at = NOW()
			  WHERE id = $1 AND trainer_uid = $2 AND payment_status = 'pending'`
	result, err := s.DB.ExecContext(ctx, query, id, trainerUID, method, transactionID, note)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// MarkPaymentFailed flips a pending payment to failed.
func (s *Storage) MarkPaymentFailed(ctx context.Context, trainerUID string, id int) (int, error) {
	const op = "storage.MarkPaymentFailed"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments
			  SET payment_status = 'failed', stk_prompt_outstanding = FALSE, updated_at = NOW()
			  WHERE id = $1 AND trainer_uid = $2 AND payment_status = 'pending'`
	result, err := s.DB.ExecContext(ctx, query, id, trainerUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// RefundPayment flips a completed payment to refunded. The payment date is
// left untouched for the audit trail.
func (s *Storage) RefundPayment(ctx context.Context, trainerUID string, id int) (int, error) {
	const op = "storage.RefundPayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE payments
			  SET payment_status = 'refunded', updated_at = NOW()
			  WHERE id = $1 AND trainer_uid = $2 AND payment_status = 'completed'`
	result, err := s.DB.ExecContext(ctx, query, id, trainerUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// DeletePendingPayment removes a payment only while it is still pending;
// completed, failed and refunded records are retained for audit.
func (s *Storage) DeletePendingPayment(ctx context.Context, trainerUID string, id int) (int, error) {
	const op = "storage.DeletePendingPayment"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `DELETE FROM payments
			  WHERE id = $1 AND trainer_uid = $2 AND payment_status = 'pending'`
	result, err := s.DB.ExecContext(ctx, query, id, trainerUID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// ListPayments returns a trainer's payments with optional filters and
// pagination, newest first. Overdue filtering compares stored due dates
// against the supplied date, never a stored flag.
func (s *Storage) ListPayments(ctx context.Context, trainerUID string, filter models.ListFilter, today time.Time) ([]*models.Payment, error) {
	const op = "storage.ListPayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + paymentColumns + ` FROM payments WHERE trainer_uid = $1`
	args := []any{trainerUID}

	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND payment_status = $` + strconv.Itoa(len(args))
	}
	if filter.ClientID != 0 {
		args = append(args, filter.ClientID)
		query += ` AND client_id = $` + strconv.Itoa(len(args))
	}
	if filter.Overdue {
		// Overdue compares dates only, so the timestamp is truncated
		// before it is bound.
		args = append(args, today.Truncate(24*time.Hour))
		query += ` AND payment_status = 'pending' AND due_date < $` + strconv.Itoa(len(args))
	}
	if filter.DateFrom != nil {
		args = append(args, *filter.DateFrom)
		query += ` AND created_at >= $` + strconv.Itoa(len(args))
	}
	if filter.DateTo != nil {
		args = append(args, *filter.DateTo)
		query += ` AND created_at <= $` + strconv.Itoa(len(args))
	}

	args = append(args, filter.Limit)
	query += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args))
	args = append(args, filter.Offset)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	return result, nil
}

// ListOverduePayments returns pending payments whose due date has passed,
// oldest due first.
func (s *Storage) ListOverduePayments(ctx context.Context, trainerUID string, today time.Time, limit, offset int) ([]*models.Payment, error) {
	const op = "storage.ListOverduePayments"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + paymentColumns + `
			  FROM payments
			  WHERE trainer_uid = $1 AND payment_status = 'pending' AND due_date < $2
			  ORDER BY due_date
			  LIMIT $3 OFFSET $4`
	rows, err := s.DB.QueryContext(ctx, query, trainerUID, today.Truncate(24*time.Hour), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var result []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	return result, nil
}

// PaymentStatistics computes the aggregate money view for a trainer in a
// single pass over current records. Nothing here is cached or stored.
func (s *Storage) PaymentStatistics(ctx context.Context, trainerUID string, today time.Time) (*models.Statistics, error) {
	const op = "storage.PaymentStatistics"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	day := today.Truncate(24 * time.Hour)
	thisMonth := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	lastMonth := thisMonth.AddDate(0, -1, 0)

	query := `SELECT
			      COALESCE(SUM(amount) FILTER (WHERE payment_status = 'completed'), 0),
			      COALESCE(SUM(amount) FILTER (WHERE payment_status = 'pending'), 0),
			      COALESCE(SUM(amount) FILTER (WHERE payment_status = 'pending' AND due_date < $2), 0),
			      COALESCE(SUM(amount) FILTER (WHERE payment_status = 'completed' AND payment_date >= $3), 0),
			      COALESCE(SUM(amount) FILTER (WHERE payment_status = 'completed' AND payment_date >= $4 AND payment_date < $3), 0)
			  FROM payments
			  WHERE trainer_uid = $1`
	var stats models.Statistics
	err := s.DB.QueryRowContext(ctx, query, trainerUID, day, thisMonth, lastMonth).Scan(
		&stats.TotalReceived, &stats.PendingAmount, &stats.OverdueAmount,
		&stats.ThisMonthRevenue, &stats.LastMonthRevenue)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &stats, nil
}
