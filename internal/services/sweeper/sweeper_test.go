package sweeper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trainrup/billing/internal/models"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) FindExpiredTrials(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

type mockAdministrator struct {
	mock.Mock
}

func (m *mockAdministrator) Update(ctx context.Context, caller models.Caller, trainerUID string, upd models.DummySubscriptionUpdate) (*models.SubscriptionUpdateView, error) {
	args := m.Called(ctx, caller, trainerUID, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SubscriptionUpdateView), args.Error(1)
}

func (m *mockAdministrator) Block(ctx context.Context, caller models.Caller, trainerUID string, req models.DummyBlock) (*models.BlockingView, error) {
	args := m.Called(ctx, caller, trainerUID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BlockingView), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishTrialExpired(notice models.TrialExpiredNotice) error {
	args := m.Called(notice)
	return args.Error(0)
}

func expiredUser(uid string) *models.User {
	end := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	return &models.User{
		UID:                uid,
		Username:           "coach-" + uid,
		Email:              uid + "@example.com",
		SubscriptionStatus: models.SubscriptionTrial,
		TrialEndDate:       &end,
	}
}

func newTestService(repo *mockRepository, admin *mockAdministrator, pub *mockPublisher) *Service {
	return New(repo, admin, pub, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSweep(t *testing.T) {
	t.Run("expires, blocks and notifies each account", func(t *testing.T) {
		repo := new(mockRepository)
		admin := new(mockAdministrator)
		pub := new(mockPublisher)
		svc := newTestService(repo, admin, pub)

		repo.On("FindExpiredTrials", mock.Anything).
			Return([]*models.User{expiredUser("u1"), expiredUser("u2")}, nil).Once()
		for _, uid := range []string{"u1", "u2"} {
			admin.On("Update", mock.Anything, systemCaller, uid, mock.MatchedBy(func(upd models.DummySubscriptionUpdate) bool {
				return upd.Status != nil && *upd.Status == models.SubscriptionExpired
			})).Return(&models.SubscriptionUpdateView{Subscription: &models.SubscriptionView{Status: models.SubscriptionExpired}}, nil).Once()
			admin.On("Block", mock.Anything, systemCaller, uid, models.DummyBlock{BlockReason: "Trial period expired"}).
				Return(&models.BlockingView{AccountBlocked: true}, nil).Once()
			pub.On("PublishTrialExpired", mock.MatchedBy(func(n models.TrialExpiredNotice) bool {
				return n.TrainerUID == uid && n.TrialEndDate == "2024-01-10"
			})).Return(nil).Once()
		}

		require.NoError(t, svc.Sweep(context.Background()))
		admin.AssertExpectations(t)
		pub.AssertExpectations(t)
	})

	t.Run("nothing to do", func(t *testing.T) {
		repo := new(mockRepository)
		admin := new(mockAdministrator)
		pub := new(mockPublisher)
		svc := newTestService(repo, admin, pub)

		repo.On("FindExpiredTrials", mock.Anything).Return([]*models.User{}, nil).Once()

		assert.NoError(t, svc.Sweep(context.Background()))
		admin.AssertNotCalled(t, "Block", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("one failing account does not stop the rest", func(t *testing.T) {
		repo := new(mockRepository)
		admin := new(mockAdministrator)
		pub := new(mockPublisher)
		svc := newTestService(repo, admin, pub)

		repo.On("FindExpiredTrials", mock.Anything).
			Return([]*models.User{expiredUser("u1"), expiredUser("u2")}, nil).Once()
		admin.On("Update", mock.Anything, systemCaller, "u1", mock.Anything).
			Return(nil, errors.New("db down")).Once()
		admin.On("Update", mock.Anything, systemCaller, "u2", mock.Anything).
			Return(&models.SubscriptionUpdateView{}, nil).Once()
		admin.On("Block", mock.Anything, systemCaller, "u2", mock.Anything).
			Return(&models.BlockingView{AccountBlocked: true}, nil).Once()
		pub.On("PublishTrialExpired", mock.Anything).Return(nil).Once()

		err := svc.Sweep(context.Background())
		assert.Error(t, err)
		admin.AssertExpectations(t)
	})

	t.Run("publish failure does not fail the sweep", func(t *testing.T) {
		repo := new(mockRepository)
		admin := new(mockAdministrator)
		pub := new(mockPublisher)
		svc := newTestService(repo, admin, pub)

		repo.On("FindExpiredTrials", mock.Anything).
			Return([]*models.User{expiredUser("u1")}, nil).Once()
		admin.On("Update", mock.Anything, systemCaller, "u1", mock.Anything).
			Return(&models.SubscriptionUpdateView{}, nil).Once()
		admin.On("Block", mock.Anything, systemCaller, "u1", mock.Anything).
			Return(&models.BlockingView{AccountBlocked: true}, nil).Once()
		pub.On("PublishTrialExpired", mock.Anything).Return(errors.New("broker down")).Once()

		assert.NoError(t, svc.Sweep(context.Background()))
	})
}
