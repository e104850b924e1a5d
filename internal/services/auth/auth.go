// Package auth registers trainers and issues tokens. Login is the single
// enforcement point for the access gates: a blocked account is denied
// before the subscription is even considered, and an expired subscription
// is denied after the password check so credential errors stay uniform.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/trainrup/billing/internal/errs"
	"github.com/trainrup/billing/internal/lib/jwt"
	"github.com/trainrup/billing/internal/lib/password"
	"github.com/trainrup/billing/internal/models"
)

// TrialDays is the length of the trial window opened at registration.
const TrialDays = 14

// Repository defines the storage methods authentication needs.
type Repository interface {
	RegisterUser(ctx context.Context, user models.User) (string, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
}

// Service registers users and issues tokens.
type Service struct {
	repo  Repository
	maker jwt.Maker
	log   *slog.Logger
	now   func() time.Time
}

// New creates an auth Service.
func New(repo Repository, maker jwt.Maker, log *slog.Logger) *Service {
	return &Service{repo: repo, maker: maker, log: log, now: time.Now}
}

// Register creates a trainer account with the defaults every new account
// gets: trainer role, trial plan and a 14-day trial window starting today.
func (s *Service) Register(ctx context.Context, req models.DummyRegister) (string, error) {
	const op = "services.auth.Register"

	hash, err := password.GetHash(req.Password)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	today := s.now().Truncate(24 * time.Hour)
	trialEnd := today.AddDate(0, 0, TrialDays)

	uid, err := s.repo.RegisterUser(ctx, models.User{
		Username:           req.Username,
		Email:              req.Email,
		PhoneNumber:        req.PhoneNumber,
		PasswordHash:       hash,
		Role:               models.RoleTrainer,
		SubscriptionStatus: models.SubscriptionTrial,
		PlanType:           models.PlanTrial,
		TrialStartDate:     &today,
		TrialEndDate:       &trialEnd,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("trainer registered",
		slog.String("uid", uid),
		slog.String("username", req.Username),
		slog.String("trial_end", trialEnd.Format("2006-01-02")))
	return uid, nil
}

// Login checks credentials and the access gates and returns a signed
// token. Wrong username and wrong password produce the same error.
func (s *Service) Login(ctx context.Context, req models.DummyLogin) (string, error) {
	const op = "services.auth.Login"

	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return "", fmt.Errorf("%s: invalid credentials: %w", op, errs.ErrValidation)
	}
	if err := password.CompareHash(user.PasswordHash, req.Password); err != nil {
		return "", fmt.Errorf("%s: invalid credentials: %w", op, errs.ErrValidation)
	}

	if user.AccountBlocked {
		return "", fmt.Errorf("%s: account is blocked: %w", op, errs.ErrPermissionDenied)
	}
	if user.Role != models.RoleAdmin && !user.IsSubscriptionActive(s.now()) {
		return "", fmt.Errorf("%s: subscription is not active: %w", op, errs.ErrPermissionDenied)
	}

	token, err := s.maker.GenerateToken(user.Username, user.Role, user.UID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user logged in", slog.String("username", user.Username), slog.String("role", user.Role))
	return token, nil
}

// ValidateToken parses a bearer token into the caller identity.
func (s *Service) ValidateToken(_ context.Context, tokenStr string) (*models.Caller, error) {
	const op = "services.auth.ValidateToken"

	claims, err := s.maker.ParseToken(tokenStr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &models.Caller{
		UID:      claims.UserUID,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}
