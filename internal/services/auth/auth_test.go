package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trainrup/billing/internal/errs"
	"github.com/trainrup/billing/internal/lib/jwt"
	"github.com/trainrup/billing/internal/lib/password"
	"github.com/trainrup/billing/internal/models"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) RegisterUser(ctx context.Context, user models.User) (string, error) {
	args := m.Called(ctx, user)
	return args.String(0), args.Error(1)
}

func (m *mockRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockRepository) GetUserByUID(ctx context.Context, uid string) (*models.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func newTestService(repo *mockRepository) *Service {
	maker := jwt.NewJWTMaker("test-secret", time.Hour)
	svc := New(repo, maker, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time {
		return time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	}
	return svc
}

func TestRegister(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo)

	repo.On("RegisterUser", mock.Anything, mock.MatchedBy(func(u models.User) bool {
		return u.Role == models.RoleTrainer &&
			u.SubscriptionStatus == models.SubscriptionTrial &&
			u.PlanType == models.PlanTrial &&
			u.TrialEndDate != nil &&
			u.TrialEndDate.Equal(time.Date(2024, 1, 29, 0, 0, 0, 0, time.UTC)) &&
			u.PasswordHash != "" && u.PasswordHash != "secret-password"
	})).Return("uid-1", nil).Once()

	uid, err := svc.Register(context.Background(), models.DummyRegister{
		Username: "coach",
		Email:    "coach@example.com",
		Password: "secret-password",
	})
	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)
	repo.AssertExpectations(t)
}

func TestLogin(t *testing.T) {
	hash, err := password.GetHash("secret-password")
	require.NoError(t, err)

	activeTrainer := func() *models.User {
		end := time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)
		return &models.User{
			UID:                "uid-1",
			Username:           "coach",
			PasswordHash:       hash,
			Role:               models.RoleTrainer,
			SubscriptionStatus: models.SubscriptionTrial,
			PlanType:           models.PlanTrial,
			TrialEndDate:       &end,
		}
	}

	t.Run("issues a token carrying the identity", func(t *testing.T) {
		repo := new(mockRepository)
		svc := newTestService(repo)

		repo.On("GetUserByUsername", mock.Anything, "coach").Return(activeTrainer(), nil).Once()

		token, err := svc.Login(context.Background(), models.DummyLogin{Username: "coach", Password: "secret-password"})
		require.NoError(t, err)

		caller, err := svc.ValidateToken(context.Background(), token)
		require.NoError(t, err)
		assert.Equal(t, "uid-1", caller.UID)
		assert.Equal(t, models.RoleTrainer, caller.Role)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := new(mockRepository)
		svc := newTestService(repo)

		repo.On("GetUserByUsername", mock.Anything, "coach").Return(activeTrainer(), nil).Once()

		_, err := svc.Login(context.Background(), models.DummyLogin{Username: "coach", Password: "nope"})
		assert.ErrorIs(t, err, errs.ErrValidation)
	})

	t.Run("unknown user looks like wrong password", func(t *testing.T) {
		repo := new(mockRepository)
		svc := newTestService(repo)

		repo.On("GetUserByUsername", mock.Anything, "ghost").Return(nil, errs.ErrNotFound).Once()

		_, err := svc.Login(context.Background(), models.DummyLogin{Username: "ghost", Password: "whatever"})
		assert.ErrorIs(t, err, errs.ErrValidation)
		assert.NotErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("blocked account is denied even with valid credentials", func(t *testing.T) {
		repo := new(mockRepository)
		svc := newTestService(repo)

		user := activeTrainer()
		user.AccountBlocked = true
		repo.On("GetUserByUsername", mock.Anything, "coach").Return(user, nil).Once()

		_, err := svc.Login(context.Background(), models.DummyLogin{Username: "coach", Password: "secret-password"})
		assert.ErrorIs(t, err, errs.ErrPermissionDenied)
	})

	t.Run("expired trial is denied", func(t *testing.T) {
		repo := new(mockRepository)
		svc := newTestService(repo)

		user := activeTrainer()
		end := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
		user.TrialEndDate = &end
		repo.On("GetUserByUsername", mock.Anything, "coach").Return(user, nil).Once()

		_, err := svc.Login(context.Background(), models.DummyLogin{Username: "coach", Password: "secret-password"})
		assert.ErrorIs(t, err, errs.ErrPermissionDenied)
	})

	t.Run("admin logs in regardless of subscription", func(t *testing.T) {
		repo := new(mockRepository)
		svc := newTestService(repo)

		user := activeTrainer()
		user.Role = models.RoleAdmin
		user.SubscriptionStatus = models.SubscriptionExpired
		user.TrialEndDate = nil
		repo.On("GetUserByUsername", mock.Anything, "coach").Return(user, nil).Once()

		_, err := svc.Login(context.Background(), models.DummyLogin{Username: "coach", Password: "secret-password"})
		assert.NoError(t, err)
	})
}
