// Package client handles client onboarding under the plan quota.
package client

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/trainrup/billing/internal/errs"
	"github.com/trainrup/billing/internal/models"
)

// Repository defines the storage methods client onboarding needs.
type Repository interface {
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
	CountClients(ctx context.Context, trainerUID string) (int, error)
	CreateClient(ctx context.Context, c models.Client) (int, error)
	ReadClient(ctx context.Context, trainerUID string, id int) (*models.Client, error)
}

// Service implements client onboarding.
type Service struct {
	repo Repository
	log  *slog.Logger
}

// New creates a client Service.
func New(repo Repository, log *slog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Onboard adds a client for the trainer, enforcing the plan's client
// quota. The quota counts current clients only, so removing a client
// frees a slot.
func (s *Service) Onboard(ctx context.Context, caller models.Caller, req models.DummyClient) (*models.Client, error) {
	const op = "services.client.Onboard"

	trainer, err := s.repo.GetUserByUID(ctx, caller.UID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	limit := trainer.EffectiveClientLimit()
	if limit != models.UnlimitedClients {
		count, err := s.repo.CountClients(ctx, caller.UID)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if count >= limit {
			return nil, fmt.Errorf("%s: plan allows %d clients: %w", op, limit, errs.ErrLimitExceeded)
		}
	}

	id, err := s.repo.CreateClient(ctx, models.Client{
		TrainerUID: caller.UID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Phone:      req.Phone,
		Email:      req.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("client onboarded", slog.Int("id", id), slog.String("trainer_uid", caller.UID))
	return s.repo.ReadClient(ctx, caller.UID, id)
}
