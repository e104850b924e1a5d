// Package subscription implements the admin-driven subscription state
// machine and the blocking overlay. Admin operations never silently
// no-op: missing users surface as not-found, non-admin callers as
// permission-denied.
package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/trainrup/billing/internal/errs"
	"github.com/trainrup/billing/internal/models"
)

// Repository defines the storage methods for subscription administration.
type Repository interface {
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
	UpdateSubscription(ctx context.Context, trainerUID string, upd models.DummySubscriptionUpdate) (int, error)
	BlockUser(ctx context.Context, trainerUID, reason string) (int, error)
	UnblockUser(ctx context.Context, trainerUID string) (int, error)
}

// Service implements subscription and blocking administration.
type Service struct {
	repo Repository
	log  *slog.Logger
	now  func() time.Time
}

// New creates a subscription Service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log, now: time.Now}
}

func requireAdmin(caller models.Caller) error {
	if !caller.IsAdmin() {
		return fmt.Errorf("caller %s is not an admin: %w", caller.Username, errs.ErrPermissionDenied)
	}
	return nil
}

// Status returns the derived subscription view for a trainer. Trainers see
// their own status; admins see anyone's.
func (s *Service) Status(ctx context.Context, caller models.Caller, trainerUID string) (*models.SubscriptionView, error) {
	const op = "services.subscription.Status"

	if trainerUID == "" {
		trainerUID = caller.UID
	}
	if trainerUID != caller.UID && !caller.IsAdmin() {
		return nil, fmt.Errorf("%s: %w", op, errs.ErrPermissionDenied)
	}

	user, err := s.repo.GetUserByUID(ctx, trainerUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s.buildView(user), nil
}

func (s *Service) buildView(user *models.User) *models.SubscriptionView {
	today := s.now()
	view := &models.SubscriptionView{
		Status:            user.SubscriptionStatus,
		PlanType:          user.PlanType,
		ClientLimit:       user.EffectiveClientLimit(),
		IsTrialActive:     user.IsTrialActive(today),
		DaysUntilTrialEnd: user.DaysUntilTrialEnd(today),
	}
	if user.TrialStartDate != nil {
		d := user.TrialStartDate.Format("2006-01-02")
		view.TrialStartDate = &d
	}
	if user.TrialEndDate != nil {
		d := user.TrialEndDate.Format("2006-01-02")
		view.TrialEndDate = &d
	}
	return view
}

// Update applies the admin's partial subscription change. Setting the
// status back to active or trial also lifts an account block, so a
// reinstated trainer can log in without a separate unblock call.
func (s *Service) Update(ctx context.Context, caller models.Caller, trainerUID string, upd models.DummySubscriptionUpdate) (*models.SubscriptionUpdateView, error) {
	const op = "services.subscription.Update"

	if err := requireAdmin(caller); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if upd.Status == nil && upd.PlanType == nil && upd.ClientLimit == nil && upd.ExtendTrialDays == nil {
		return nil, fmt.Errorf("%s: empty update: %w", op, errs.ErrValidation)
	}

	rows, err := s.repo.UpdateSubscription(ctx, trainerUID, upd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%s: trainer %s: %w", op, trainerUID, errs.ErrNotFound)
	}

	if upd.Status != nil && (*upd.Status == models.SubscriptionActive || *upd.Status == models.SubscriptionTrial) {
		if _, err := s.repo.UnblockUser(ctx, trainerUID); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	s.log.Info("subscription updated",
		slog.String("trainer_uid", trainerUID),
		slog.String("admin", caller.Username))

	user, err := s.repo.GetUserByUID(ctx, trainerUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	// The blocking overlay rides along so the caller sees whether the
	// update lifted a block.
	return &models.SubscriptionUpdateView{
		Subscription: s.buildView(user),
		Blocking:     blockingViewFromUser(user),
	}, nil
}

// Block sets the blocking overlay on a trainer. Blocking an already
// blocked account only refreshes the reason.
func (s *Service) Block(ctx context.Context, caller models.Caller, trainerUID string, req models.DummyBlock) (*models.BlockingView, error) {
	const op = "services.subscription.Block"

	if err := requireAdmin(caller); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.repo.BlockUser(ctx, trainerUID, req.BlockReason)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%s: trainer %s: %w", op, trainerUID, errs.ErrNotFound)
	}

	s.log.Info("account blocked",
		slog.String("trainer_uid", trainerUID),
		slog.String("reason", req.BlockReason),
		slog.String("admin", caller.Username))

	return s.blockingView(ctx, trainerUID)
}

// Unblock lifts the blocking overlay. Unblocking an unblocked account is
// a no-op that still reports the current state.
func (s *Service) Unblock(ctx context.Context, caller models.Caller, trainerUID string) (*models.BlockingView, error) {
	const op = "services.subscription.Unblock"

	if err := requireAdmin(caller); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rows, err := s.repo.UnblockUser(ctx, trainerUID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("%s: trainer %s: %w", op, trainerUID, errs.ErrNotFound)
	}

	s.log.Info("account unblocked",
		slog.String("trainer_uid", trainerUID),
		slog.String("admin", caller.Username))

	return s.blockingView(ctx, trainerUID)
}

func blockingViewFromUser(user *models.User) *models.BlockingView {
	view := &models.BlockingView{
		AccountBlocked: user.AccountBlocked,
		BlockReason:    user.BlockReason,
	}
	if user.BlockedAt != nil {
		t := user.BlockedAt.Format(time.RFC3339)
		view.BlockedAt = &t
	}
	return view
}

func (s *Service) blockingView(ctx context.Context, trainerUID string) (*models.BlockingView, error) {
	user, err := s.repo.GetUserByUID(ctx, trainerUID)
	if err != nil {
		return nil, err
	}
	return blockingViewFromUser(user), nil
}
