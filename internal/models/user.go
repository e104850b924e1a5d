package models

import "time"

// User roles.
const (
	RoleTrainer = "trainer"
	RoleAdmin   = "admin"
)

// Subscription statuses.
const (
	SubscriptionTrial     = "trial"
	SubscriptionActive    = "active"
	SubscriptionExpired   = "expired"
	SubscriptionCancelled = "cancelled"
	SubscriptionSuspended = "suspended"
)

// Plan types.
const (
	PlanTrial        = "trial"
	PlanStarter      = "starter"
	PlanProfessional = "professional"
	PlanEnterprise   = "enterprise"
)

// UnlimitedClients is the client_limit value that disables the quota.
const UnlimitedClients = -1

// defaultClientLimits are applied when no explicit limit is stored.
var defaultClientLimits = map[string]int{
	PlanTrial:        5,
	PlanStarter:      10,
	PlanProfessional: 50,
	PlanEnterprise:   UnlimitedClients,
}

// User represents a registered trainer or admin. Subscription and blocking
// fields are two orthogonal axes: either an inactive subscription or the
// blocked flag denies platform access, and blocking always wins.
type User struct {
	UID                string     // Unique identifier
	Username           string     // Login name, unique
	Email              string     // Contact email, unique
	PhoneNumber        string     // Contact phone
	PasswordHash       string     // bcrypt hash
	Role               string     // trainer or admin
	SubscriptionStatus string     // trial, active, expired, cancelled, suspended
	PlanType           string     // trial, starter, professional, enterprise
	ClientLimit        *int       // Max clients, -1 for unlimited, nil for plan default
	TrialStartDate     *time.Time // When the trial window opened
	TrialEndDate       *time.Time // When the trial window closes
	AccountBlocked     bool       // Admin-controlled access gate
	BlockReason        string     // Why the account was blocked
	BlockedAt          *time.Time // When the account was blocked
	CreatedAt          time.Time
}

// IsTrialActive derives whether the trial window is still open as of today.
// Never cached; callers must pass the current date at decision time.
func (u *User) IsTrialActive(today time.Time) bool {
	if u.SubscriptionStatus != SubscriptionTrial || u.TrialEndDate == nil {
		return false
	}
	return !today.Truncate(24 * time.Hour).After(u.TrialEndDate.Truncate(24 * time.Hour))
}

// IsSubscriptionActive reports whether the subscription grants access:
// a paid active status, or a trial whose window has not closed.
func (u *User) IsSubscriptionActive(today time.Time) bool {
	if u.SubscriptionStatus == SubscriptionActive {
		return true
	}
	return u.IsTrialActive(today)
}

// DaysUntilTrialEnd returns the remaining trial days, floored at zero,
// or nil when no trial end date is set.
func (u *User) DaysUntilTrialEnd(today time.Time) *int {
	if u.TrialEndDate == nil {
		return nil
	}
	days := int(u.TrialEndDate.Truncate(24*time.Hour).Sub(today.Truncate(24*time.Hour)).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return &days
}

// EffectiveClientLimit returns the stored limit or the plan-type default.
func (u *User) EffectiveClientLimit() int {
	if u.ClientLimit != nil {
		return *u.ClientLimit
	}
	if limit, ok := defaultClientLimits[u.PlanType]; ok {
		return limit
	}
	return defaultClientLimits[PlanTrial]
}

// SubscriptionView is the derived, read-only status exposed to callers.
type SubscriptionView struct {
	Status            string  `json:"status"`
	PlanType          string  `json:"plan_type"`
	ClientLimit       int     `json:"client_limit"`
	TrialStartDate    *string `json:"trial_start_date,omitempty"`
	TrialEndDate      *string `json:"trial_end_date,omitempty"`
	IsTrialActive     bool    `json:"is_trial_active"`
	DaysUntilTrialEnd *int    `json:"days_until_trial_end,omitempty"`
}

// BlockingView reports the blocking overlay state.
type BlockingView struct {
	AccountBlocked bool    `json:"account_blocked"`
	BlockReason    string  `json:"block_reason,omitempty"`
	BlockedAt      *string `json:"blocked_at,omitempty"`
}

// SubscriptionUpdateView is the admin update response: the refreshed
// subscription plus the blocking overlay, which the update may have
// lifted as a side effect.
type SubscriptionUpdateView struct {
	Subscription *SubscriptionView `json:"subscription"`
	Blocking     *BlockingView     `json:"blocking"`
}

// DummySubscriptionUpdate receives the admin partial-update request.
// Absent fields leave the corresponding column unchanged.
type DummySubscriptionUpdate struct {
	Status          *string `json:"status,omitempty" validate:"omitempty,oneof=trial active expired cancelled suspended"`
	PlanType        *string `json:"plan_type,omitempty" validate:"omitempty,oneof=trial starter professional enterprise"`
	ClientLimit     *int    `json:"client_limit,omitempty" validate:"omitempty,min=-1"`
	ExtendTrialDays *int    `json:"extend_trial_days,omitempty" validate:"omitempty,gt=0"`
}

// DummyBlock receives the admin block request.
type DummyBlock struct {
	BlockReason string `json:"block_reason,omitempty"`
}

// DummyRegister receives trainer registration data from a JSON request.
type DummyRegister struct {
	Username    string `json:"username" validate:"required,min=3,max=64"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// DummyLogin receives login credentials from a JSON request.
type DummyLogin struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}
