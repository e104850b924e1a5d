// Package sweeper implements the scheduled trial-expiry sweep: find
// trainers whose trial window has closed, mark the subscription expired,
// block the account and queue a notification. Blocking goes through the
// same admin operations the HTTP surface uses, under a system identity,
// so the sweep and a concurrent admin action cannot disagree about state.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trainrup/billing/internal/lib/sl"
	"github.com/trainrup/billing/internal/models"
)

// systemCaller is the identity the sweep acts under.
var systemCaller = models.Caller{
	UID:      "system",
	Username: "trial-sweeper",
	Role:     models.RoleAdmin,
}

// Repository finds the accounts whose trial window has closed.
type Repository interface {
	FindExpiredTrials(ctx context.Context) ([]*models.User, error)
}

// Administrator is the subscription administration surface the sweep
// drives.
type Administrator interface {
	Update(ctx context.Context, caller models.Caller, trainerUID string, upd models.DummySubscriptionUpdate) (*models.SubscriptionUpdateView, error)
	Block(ctx context.Context, caller models.Caller, trainerUID string, req models.DummyBlock) (*models.BlockingView, error)
}

// Publisher queues a notification for the sender.
type Publisher interface {
	PublishTrialExpired(notice models.TrialExpiredNotice) error
}

// Service runs the trial-expiry sweep.
type Service struct {
	repo      Repository
	admin     Administrator
	publisher Publisher
	log       *slog.Logger
}

// New creates a sweeper Service.
func New(repo Repository, admin Administrator, publisher Publisher, log *slog.Logger) *Service {
	return &Service{repo: repo, admin: admin, publisher: publisher, log: log}
}

// Sweep processes every expired trial once. A failure on one account is
// logged and does not stop the rest; the next run retries it.
func (s *Service) Sweep(ctx context.Context) error {
	const op = "services.sweeper.Sweep"

	users, err := s.repo.FindExpiredTrials(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if len(users) == 0 {
		s.log.Info("no expired trials found")
		return nil
	}

	expired := models.SubscriptionExpired
	var failed int
	for _, user := range users {
		if err := s.sweepOne(ctx, user, expired); err != nil {
			failed++
			s.log.Error("failed to sweep account",
				slog.String("trainer_uid", user.UID), sl.Err(err))
		}
	}

	s.log.Info("trial sweep finished",
		slog.Int("processed", len(users)-failed),
		slog.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%s: %d of %d accounts failed", op, failed, len(users))
	}
	return nil
}

func (s *Service) sweepOne(ctx context.Context, user *models.User, expired string) error {
	if _, err := s.admin.Update(ctx, systemCaller, user.UID, models.DummySubscriptionUpdate{
		Status: &expired,
	}); err != nil {
		return err
	}
	if _, err := s.admin.Block(ctx, systemCaller, user.UID, models.DummyBlock{
		BlockReason: "Trial period expired",
	}); err != nil {
		return err
	}

	notice := models.TrialExpiredNotice{
		TrainerUID: user.UID,
		Username:   user.Username,
		Email:      user.Email,
	}
	if user.TrialEndDate != nil {
		notice.TrialEndDate = user.TrialEndDate.Format("2006-01-02")
	}
	if err := s.publisher.PublishTrialExpired(notice); err != nil {
		// Blocking already happened; the notification is best effort.
		s.log.Warn("failed to queue trial-expired notice",
			slog.String("trainer_uid", user.UID), sl.Err(err))
	}
	return nil
}
