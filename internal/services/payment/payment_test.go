package payment

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
	"github.com/trainrup/billing/internal/models"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) CreatePayment(ctx context.Context, p models.Payment) (int, error) {
	args := m.Called(ctx, p)
	return args.Int(0), args.Error(1)
}

func (m *mockRepository) ReadPayment(ctx context.Context, trainerUID string, id int) (*models.Payment, error) {
	args := m.Called(ctx, trainerUID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockRepository) MarkPaymentCompleted(ctx context.Context, trainerUID string, id int, method string, transactionID *string, note string) (int, error) {
	args := m.Called(ctx, trainerUID, id, method, transactionID, note)
	return args.Int(0), args.Error(1)
}

func (m *mockRepository) MarkPaymentFailed(ctx context.Context, trainerUID string, id int) (int, error) {
	args := m.Called(ctx, trainerUID, id)
	return args.Int(0), args.Error(1)
}

func (m *mockRepository) RefundPayment(ctx context.Context, trainerUID string, id int) (int, error) {
	args := m.Called(ctx, trainerUID, id)
	return args.Int(0), args.Error(1)
}

func (m *mockRepository) DeletePendingPayment(ctx context.Context, trainerUID string, id int) (int, error) {
	args := m.Called(ctx, trainerUID, id)
	return args.Int(0), args.Error(1)
}

func (m *mockRepository) ListPayments(ctx context.Context, trainerUID string, filter models.ListFilter, today time.Time) ([]*models.Payment, error) {
	args := m.Called(ctx, trainerUID, filter, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *mockRepository) ListOverduePayments(ctx context.Context, trainerUID string, today time.Time, limit, offset int) ([]*models.Payment, error) {
	args := m.Called(ctx, trainerUID, today, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *mockRepository) PaymentStatistics(ctx context.Context, trainerUID string, today time.Time) (*models.Statistics, error) {
	args := m.Called(ctx, trainerUID, today)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Statistics), args.Error(1)
}

func (m *mockRepository) ReadClient(ctx context.Context, trainerUID string, id int) (*models.Client, error) {
	args := m.Called(ctx, trainerUID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(key string, result any) (bool, error) {
	args := m.Called(key, result)
	return args.Bool(0), args.Error(1)
}

func (m *mockCache) Set(key string, value any, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(repo *mockRepository, cache *mockCache) *Service {
	svc := New(repo, cache, discardLogger())
	svc.now = func() time.Time {
		return time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	}
	return svc
}

func TestCreate(t *testing.T) {
	caller := models.Caller{UID: "trainer-1", Role: models.RoleTrainer}

	cases := []struct {
		name        string
		req         models.DummyPayment
		wantDueDate time.Time
		wantErr     error
	}{
		{
			name: "explicit due date",
			req: models.DummyPayment{
				ClientID: 7,
				Amount:   2500,
				Method:   models.MethodCash,
				DueDate:  "20-02-2024",
			},
			wantDueDate: time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "monthly template",
			req: models.DummyPayment{
				ClientID:       7,
				Amount:         2500,
				Method:         models.MethodMobileMoney,
				PeriodTemplate: "monthly",
			},
			wantDueDate: time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "missing both date inputs",
			req: models.DummyPayment{
				ClientID: 7,
				Amount:   2500,
				Method:   models.MethodCash,
			},
			wantErr: errs.ErrValidation,
		},
		{
			name: "non-positive amount",
			req: models.DummyPayment{
				ClientID: 7,
				Amount:   0,
				Method:   models.MethodCash,
				DueDate:  "20-02-2024",
			},
			wantErr: errs.ErrValidation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := new(mockRepository)
			svc := newTestService(repo, new(mockCache))

			if tc.wantErr == nil || tc.req.Amount > 0 {
				repo.On("ReadClient", mock.Anything, caller.UID, tc.req.ClientID).
					Return(&models.Client{ID: tc.req.ClientID}, nil).Maybe()
			}
			if tc.wantErr == nil {
				repo.On("CreatePayment", mock.Anything, mock.MatchedBy(func(p models.Payment) bool {
					return p.Status == models.PaymentStatusPending &&
						p.DueDate.Equal(tc.wantDueDate) &&
						p.InvoiceNumber != ""
				})).Return(42, nil).Once()
				repo.On("ReadPayment", mock.Anything, caller.UID, 42).
					Return(&models.Payment{ID: 42, Status: models.PaymentStatusPending}, nil).Once()
			}

			got, err := svc.Create(context.Background(), caller, tc.req)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 42, got.ID)
			repo.AssertExpectations(t)
		})
	}
}

func TestCreateRejectsForeignClient(t *testing.T) {
	repo := new(mockRepository)
	svc := newTestService(repo, new(mockCache))

	repo.On("ReadClient", mock.Anything, "trainer-1", 9).
		Return(nil, errs.ErrNotFound).Once()

	_, err := svc.Create(context.Background(), models.Caller{UID: "trainer-1"}, models.DummyPayment{
		ClientID: 9,
		Amount:   100,
		Method:   models.MethodCash,
		DueDate:  "20-02-2024",
	})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestMarkCompleted(t *testing.T) {
	caller := models.Caller{UID: "trainer-1"}

	t.Run("success", func(t *testing.T) {
		repo := new(mockRepository)
		svc := newTestService(repo, new(mockCache))

		repo.On("MarkPaymentCompleted", mock.Anything, caller.UID, 5, models.MethodCash, (*string)(nil), "").
			Return(1, nil).Once()
		repo.On("ReadPayment", mock.Anything, caller.UID, 5).
			Return(&models.Payment{ID: 5, Status: models.PaymentStatusCompleted}, nil).Once()

		got, err := svc.MarkCompleted(context.Background(), caller, 5, models.DummyMarkPaid{Method: models.MethodCash})
		require.NoError(t, err)
		assert.Equal(t, models.PaymentStatusCompleted, got.Status)
	})

	t.Run("already completed", func(t *testing.T) {
		repo := new(mockRepository)
		svc := newTestService(repo, new(mockCache))

		repo.On("MarkPaymentCompleted", mock.Anything, caller.UID, 5, models.MethodCash, (*string)(nil), "").
			Return(0, nil).Once()
		repo.On("ReadPayment", mock.Anything, caller.UID, 5).
			Return(&models.Payment{ID: 5, Status: models.PaymentStatusCompleted}, nil).Once()

		_, err := svc.MarkCompleted(context.Background(), caller, 5, models.DummyMarkPaid{Method: models.MethodCash})
		assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	})

	t.Run("missing payment", func(t *testing.T) {
		repo := new(mockRepository)
		svc := newTestService(repo, new(mockCache))

		repo.On("MarkPaymentCompleted", mock.Anything, caller.UID, 5, models.MethodCash, (*string)(nil), "").
			Return(0, nil).Once()
		repo.On("ReadPayment", mock.Anything, caller.UID, 5).
			Return(nil, errs.ErrNotFound).Once()

		_, err := svc.MarkCompleted(context.Background(), caller, 5, models.DummyMarkPaid{Method: models.MethodCash})
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})
}

func TestRefundRequiresCompleted(t *testing.T) {
	caller := models.Caller{UID: "trainer-1"}
	repo := new(mockRepository)
	svc := newTestService(repo, new(mockCache))

	repo.On("RefundPayment", mock.Anything, caller.UID, 8).Return(0, nil).Once()
	repo.On("ReadPayment", mock.Anything, caller.UID, 8).
		Return(&models.Payment{ID: 8, Status: models.PaymentStatusPending}, nil).Once()

	_, err := svc.Refund(context.Background(), caller, 8)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestDeleteKeepsNonPending(t *testing.T) {
	caller := models.Caller{UID: "trainer-1"}
	repo := new(mockRepository)
	svc := newTestService(repo, new(mockCache))

	repo.On("DeletePendingPayment", mock.Anything, caller.UID, 3).Return(0, nil).Once()
	repo.On("ReadPayment", mock.Anything, caller.UID, 3).
		Return(&models.Payment{ID: 3, Status: models.PaymentStatusRefunded}, nil).Once()

	err := svc.Delete(context.Background(), caller, 3)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestReceipt(t *testing.T) {
	caller := models.Caller{UID: "trainer-1"}

	t.Run("rejects pending payment", func(t *testing.T) {
		repo := new(mockRepository)
		cache := new(mockCache)
		svc := newTestService(repo, cache)

		repo.On("ReadPayment", mock.Anything, caller.UID, 4).
			Return(&models.Payment{ID: 4, Status: models.PaymentStatusPending}, nil).Once()

		_, err := svc.Receipt(context.Background(), caller, 4)
		assert.ErrorIs(t, err, errs.ErrInvalidTransition)
		cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("refund stops a previously cached receipt", func(t *testing.T) {
		repo := new(mockRepository)
		cache := new(mockCache)
		svc := newTestService(repo, cache)

		// First call completes and caches the snapshot.
		repo.On("ReadPayment", mock.Anything, caller.UID, 4).
			Return(&models.Payment{ID: 4, ClientID: 2, Status: models.PaymentStatusCompleted}, nil).Once()
		cache.On("Get", "receipt:trainer-1:4", mock.Anything).Return(false, nil).Once()
		repo.On("ReadClient", mock.Anything, caller.UID, 2).
			Return(&models.Client{ID: 2, FirstName: "Amina"}, nil).Once()
		cache.On("Set", "receipt:trainer-1:4", mock.Anything, 24*time.Hour).Return(nil).Once()

		_, err := svc.Receipt(context.Background(), caller, 4)
		require.NoError(t, err)

		// After the refund the current status wins over the cache.
		repo.On("ReadPayment", mock.Anything, caller.UID, 4).
			Return(&models.Payment{ID: 4, ClientID: 2, Status: models.PaymentStatusRefunded}, nil).Once()

		_, err = svc.Receipt(context.Background(), caller, 4)
		assert.ErrorIs(t, err, errs.ErrInvalidTransition)
		cache.AssertNumberOfCalls(t, "Get", 1)
	})

	t.Run("caches completed snapshot", func(t *testing.T) {
		repo := new(mockRepository)
		cache := new(mockCache)
		svc := newTestService(repo, cache)

		cache.On("Get", "receipt:trainer-1:4", mock.Anything).Return(false, nil).Once()
		repo.On("ReadPayment", mock.Anything, caller.UID, 4).
			Return(&models.Payment{ID: 4, ClientID: 2, Status: models.PaymentStatusCompleted}, nil).Once()
		repo.On("ReadClient", mock.Anything, caller.UID, 2).
			Return(&models.Client{ID: 2, FirstName: "Amina"}, nil).Once()
		cache.On("Set", "receipt:trainer-1:4", mock.Anything, 24*time.Hour).Return(nil).Once()

		receipt, err := svc.Receipt(context.Background(), caller, 4)
		require.NoError(t, err)
		assert.Equal(t, "Amina", receipt.Client.FirstName)
		cache.AssertExpectations(t)
	})
}
