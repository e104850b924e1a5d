// Package payment implements the payment lifecycle manager: creation with
// due-date resolution, the guarded status transitions, derived overdue
// views and the on-demand aggregates. Every transition is checked against
// the persisted status by the repository; this service only interprets the
// outcome (zero rows affected becomes not-found or invalid-transition).
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trainrup/billing/internal/errs"
	"github.com/trainrup/billing/internal/lib/period"
	"github.com/trainrup/billing/internal/lib/sl"
	"github.com/trainrup/billing/internal/models"
)

// Repository defines the storage methods the lifecycle manager needs.
type Repository interface {
	CreatePayment(ctx context.Context, p models.Payment) (int, error)
	ReadPayment(ctx context.Context, trainerUID string, id int) (*models.Payment, error)
	MarkPaymentCompleted(ctx context.Context, trainerUID string, id int, method string, transactionID *string, note string) (int, error)
	MarkPaymentFailed(ctx context.Context, trainerUID string, id int) (int, error)
	RefundPayment(ctx context.Context, trainerUID string, id int) (int, error)
	DeletePendingPayment(ctx context.Context, trainerUID string, id int) (int, error)
	ListPayments(ctx context.Context, trainerUID string, filter models.ListFilter, today time.Time) ([]*models.Payment, error)
	ListOverduePayments(ctx context.Context, trainerUID string, today time.Time, limit, offset int) ([]*models.Payment, error)
	PaymentStatistics(ctx context.Context, trainerUID string, today time.Time) (*models.Statistics, error)
	ReadClient(ctx context.Context, trainerUID string, id int) (*models.Client, error)
}

// Cache stores immutable receipt snapshots.
type Cache interface {
	Get(key string, result any) (bool, error)
	Set(key string, value any, expiration time.Duration) error
}

// Service implements the payment lifecycle operations.
type Service struct {
	repo  Repository
	cache Cache
	log   *slog.Logger
	now   func() time.Time
}

// New creates a payment Service.
func New(repo Repository, cache Cache, log *slog.Logger) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
		log:   log,
		now:   time.Now,
	}
}

// resolveDueDate turns the request's explicit date or period template into
// the stored due date.
func (s *Service) resolveDueDate(req models.DummyPayment) (time.Time, error) {
	if req.DueDate != "" {
		dueDate, err := time.Parse("02-01-2006", req.DueDate)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid due date: %w", errs.ErrValidation)
		}
		return dueDate, nil
	}
	if req.PeriodTemplate != "" {
		dueDate, err := period.Resolve(req.PeriodTemplate, s.now())
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %w", errs.ErrValidation, err)
		}
		return dueDate, nil
	}
	return time.Time{}, fmt.Errorf("due_date or period_template is required: %w", errs.ErrValidation)
}

// newInvoiceNumber builds a unique invoice reference. Immutable once
// assigned.
func (s *Service) newInvoiceNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("INV-%s-%s", s.now().Format("20060102"), suffix)
}

// Create records a new pending payment for one of the caller's clients.
func (s *Service) Create(ctx context.Context, caller models.Caller, req models.DummyPayment) (*models.Payment, error) {
	const op = "services.payment.Create"

	if req.Amount <= 0 {
		return nil, fmt.Errorf("%s: amount must be positive: %w", op, errs.ErrValidation)
	}

	// Client ownership doubles as the cross-trainer boundary check.
	client, err := s.repo.ReadClient(ctx, caller.UID, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%s: client does not belong to trainer: %w", op, errs.ErrValidation)
	}

	dueDate, err := s.resolveDueDate(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p := models.Payment{
		TrainerUID:    caller.UID,
		ClientID:      client.ID,
		Amount:        req.Amount,
		Method:        req.Method,
		Status:        models.PaymentStatusPending,
		DueDate:       dueDate,
		InvoiceNumber: s.newInvoiceNumber(),
		Description:   req.Description,
		Notes:         req.Notes,
		PhoneNumber:   req.PhoneNumber,
	}

	id, err := s.repo.CreatePayment(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("created payment",
		slog.Int("id", id),
		slog.String("invoice_number", p.InvoiceNumber),
		slog.String("due_date", dueDate.Format("2006-01-02")))

	return s.repo.ReadPayment(ctx, caller.UID, id)
}

// classifyStuckTransition reads the record after a guarded update affected
// zero rows and reports whether the payment was missing or merely in a
// status that forbids the transition.
func (s *Service) classifyStuckTransition(ctx context.Context, caller models.Caller, id int, wantStatus string) error {
	p, err := s.repo.ReadPayment(ctx, caller.UID, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("payment %d is %s, want %s: %w", id, p.Status, wantStatus, errs.ErrInvalidTransition)
}

// MarkCompleted flips a pending payment to completed. The method may
// differ from the one recorded at creation (invoiced as mobile money,
// settled in cash). transactionID is optional.
func (s *Service) MarkCompleted(ctx context.Context, caller models.Caller, id int, req models.DummyMarkPaid) (*models.Payment, error) {
	const op = "services.payment.MarkCompleted"

	var transactionID *string
	if t := strings.TrimSpace(req.TransactionID); t != "" {
		transactionID = &t
	}
	note := ""
	if n := strings.TrimSpace(req.Notes); n != "" {
		note = "Payment Note: " + n
	}

	rows, err := s.repo.MarkPaymentCompleted(ctx, caller.UID, id, req.Method, transactionID, note)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return nil, s.classifyStuckTransition(ctx, caller, id, models.PaymentStatusPending)
	}
	s.log.Info("payment marked completed", slog.Int("id", id), slog.String("method", req.Method))
	return s.repo.ReadPayment(ctx, caller.UID, id)
}

// MarkFailed flips a pending payment to failed.
func (s *Service) MarkFailed(ctx context.Context, caller models.Caller, id int) (*models.Payment, error) {
	const op = "services.payment.MarkFailed"

	rows, err := s.repo.MarkPaymentFailed(ctx, caller.UID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return nil, s.classifyStuckTransition(ctx, caller, id, models.PaymentStatusPending)
	}
	s.log.Info("payment marked failed", slog.Int("id", id))
	return s.repo.ReadPayment(ctx, caller.UID, id)
}

// Refund flips a completed payment to refunded.
func (s *Service) Refund(ctx context.Context, caller models.Caller, id int) (*models.Payment, error) {
	const op = "services.payment.Refund"

	rows, err := s.repo.RefundPayment(ctx, caller.UID, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return nil, s.classifyStuckTransition(ctx, caller, id, models.PaymentStatusCompleted)
	}
	s.log.Info("payment refunded", slog.Int("id", id))
	return s.repo.ReadPayment(ctx, caller.UID, id)
}

// Delete removes a payment while it is still pending. Completed, failed
// and refunded records are kept for audit.
func (s *Service) Delete(ctx context.Context, caller models.Caller, id int) error {
	const op = "services.payment.Delete"

	rows, err := s.repo.DeletePendingPayment(ctx, caller.UID, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return s.classifyStuckTransition(ctx, caller, id, models.PaymentStatusPending)
	}
	s.log.Info("deleted pending payment", slog.Int("id", id))
	return nil
}

// Read returns a single payment.
func (s *Service) Read(ctx context.Context, caller models.Caller, id int) (*models.Payment, error) {
	return s.repo.ReadPayment(ctx, caller.UID, id)
}

// List returns the caller's payments narrowed by filter.
func (s *Service) List(ctx context.Context, caller models.Caller, filter models.ListFilter) ([]*models.Payment, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	return s.repo.ListPayments(ctx, caller.UID, filter, s.now())
}

// Overdue returns the caller's overdue payments, oldest due first.
func (s *Service) Overdue(ctx context.Context, caller models.Caller, limit, offset int) ([]*models.Payment, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListOverduePayments(ctx, caller.UID, s.now(), limit, offset)
}

// Statistics recomputes the aggregate money view from current records and
// the current date.
func (s *Service) Statistics(ctx context.Context, caller models.Caller) (*models.Statistics, error) {
	return s.repo.PaymentStatistics(ctx, caller.UID, s.now())
}

// Receipt assembles the data handed to the external document renderer:
// the completed payment plus a snapshot of the billed client. The status
// is re-read on every call before the cache is consulted: a completed
// record can still move on to refunded, and a receipt must never be
// served for a payment that is no longer completed.
func (s *Service) Receipt(ctx context.Context, caller models.Caller, id int) (*models.Receipt, error) {
	p, err := s.repo.ReadPayment(ctx, caller.UID, id)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PaymentStatusCompleted {
		return nil, fmt.Errorf("receipt is only available for completed payments: %w", errs.ErrInvalidTransition)
	}

	cacheKey := fmt.Sprintf("receipt:%s:%d", caller.UID, id)
	var cached models.Receipt
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("receipt cache read failed", slog.String("key", cacheKey), sl.Err(err))
	}
	if found {
		return &cached, nil
	}

	client, err := s.repo.ReadClient(ctx, caller.UID, p.ClientID)
	if err != nil {
		return nil, err
	}

	receipt := &models.Receipt{Payment: *p, Client: *client}
	if err := s.cache.Set(cacheKey, receipt, 24*time.Hour); err != nil {
		s.log.Warn("failed to cache receipt", slog.String("key", cacheKey), sl.Err(err))
	}
	return receipt, nil
}
