// Package models contains the domain structures for payments, trainers and
// clients, plus the request types used to receive data from JSON requests
// before validation. External payloads keep the legacy payment_status and
// payment_method field names; inside the engine only the canonical Status
// and Method fields exist.
package models

import "time"

// Payment statuses. Legal transitions are pending -> completed,
// pending -> failed and completed -> refunded; nothing else.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Payment methods.
const (
	MethodCash         = "cash"
	MethodMobileMoney  = "mobile_money"
	MethodBankTransfer = "bank_transfer"
	MethodCreditCard   = "credit_card"
	MethodDebitCard    = "debit_card"
	MethodOther        = "other"
)

// Payment is the billable unit tracked through the guarded state machine.
// DueDate is meaningful only while the payment is pending and is never
// mutated after creation. PaymentDate is set exactly once, at completion.
type Payment struct {
	ID                int        `json:"id"`
	TrainerUID        string     `json:"trainer_uid"`
	ClientID          int        `json:"client_id"`
	Amount            float64    `json:"amount"`
	Method            string     `json:"payment_method"`
	Status            string     `json:"payment_status"`
	DueDate           time.Time  `json:"due_date"`
	PaymentDate       *time.Time `json:"payment_date,omitempty"`
	TransactionID     *string    `json:"transaction_id,omitempty"`
	InvoiceNumber     string     `json:"invoice_number"`
	Description       string     `json:"description,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	PhoneNumber       string     `json:"phone_number,omitempty"`
	PromptOutstanding bool       `json:"-"`
	CheckoutRequestID *string    `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// IsOverdue reports whether the payment is pending with a due date strictly
// before today. Date-only comparison, time of day is ignored. The result is
// always derived, never stored.
func (p *Payment) IsOverdue(today time.Time) bool {
	if p.Status != PaymentStatusPending || p.DueDate.IsZero() {
		return false
	}
	due := p.DueDate.Truncate(24 * time.Hour)
	day := today.Truncate(24 * time.Hour)
	return due.Before(day)
}

// DummyPayment receives payment creation data from a JSON request. Exactly
// one of DueDate (02-01-2006) or PeriodTemplate must be supplied; the
// service resolves either into the stored due date.
type DummyPayment struct {
	ClientID       int     `json:"client_id" validate:"required"`
	Amount         float64 `json:"amount" validate:"required,gt=0"`
	Method         string  `json:"payment_method" validate:"required,oneof=cash mobile_money bank_transfer credit_card debit_card other"`
	DueDate        string  `json:"due_date,omitempty" validate:"omitempty"`
	PeriodTemplate string  `json:"period_template,omitempty" validate:"omitempty,oneof=per_session monthly quarterly biannually annually"`
	Description    string  `json:"description,omitempty"`
	Notes          string  `json:"notes,omitempty"`
	PhoneNumber    string  `json:"phone_number,omitempty"`
}

// DummyMarkPaid receives the manual completion request for an existing
// payment. Method may differ from the one recorded at creation.
type DummyMarkPaid struct {
	Method        string `json:"payment_method" validate:"required,oneof=cash mobile_money bank_transfer credit_card debit_card other"`
	TransactionID string `json:"transaction_id,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// ListFilter narrows payment listings.
type ListFilter struct {
	Status   string
	ClientID int
	Overdue  bool
	DateFrom *time.Time
	DateTo   *time.Time
	Limit    int
	Offset   int
}

// Statistics is the aggregate view over a trainer's payments. Every field
// is recomputed from current records on each read.
type Statistics struct {
	TotalReceived    float64 `json:"total_received"`
	PendingAmount    float64 `json:"pending_amount"`
	OverdueAmount    float64 `json:"overdue_amount"`
	ThisMonthRevenue float64 `json:"this_month_revenue"`
	LastMonthRevenue float64 `json:"last_month_revenue"`
}

// Receipt is the data handed to the external document renderer for a
// completed payment: the record plus a snapshot of the client it bills.
// The engine emits data only, never formatted output.
type Receipt struct {
	Payment Payment `json:"payment"`
	Client  Client  `json:"client"`
}
