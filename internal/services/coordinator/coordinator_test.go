package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trainrup/billing/internal/errs"
	"github.com/trainrup/billing/internal/models"
	"github.com/trainrup/billing/internal/mpesa"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) ReadPayment(ctx context.Context, trainerUID string, id int) (*models.Payment, error) {
	args := m.Called(ctx, trainerUID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *mockRepository) ClaimPrompt(ctx context.Context, trainerUID string, id int, phoneNumber string) (int, error) {
	args := m.Called(ctx, trainerUID, id, phoneNumber)
	return args.Int(0), args.Error(1)
}

func (m *mockRepository) StoreCheckoutRequest(ctx context.Context, id int, checkoutRequestID string) error {
	args := m.Called(ctx, id, checkoutRequestID)
	return args.Error(0)
}

func (m *mockRepository) ReleasePrompt(ctx context.Context, id int) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockRepository) CompletePromptedPayment(ctx context.Context, checkoutRequestID, receiptNumber string) (int, error) {
	args := m.Called(ctx, checkoutRequestID, receiptNumber)
	return args.Int(0), args.Error(1)
}

func (m *mockRepository) ReleasePromptByCheckoutID(ctx context.Context, checkoutRequestID string) (int, error) {
	args := m.Called(ctx, checkoutRequestID)
	return args.Int(0), args.Error(1)
}

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) InitiateSTKPush(ctx context.Context, phoneNumber string, amount float64, accountReference, description string) (*mpesa.STKPushResponse, error) {
	args := m.Called(ctx, phoneNumber, amount, accountReference, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mpesa.STKPushResponse), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pendingPayment() *models.Payment {
	return &models.Payment{
		ID:            12,
		TrainerUID:    "trainer-1",
		Amount:        1500,
		Status:        models.PaymentStatusPending,
		InvoiceNumber: "INV-20240115-AB12CD34",
		PhoneNumber:   "0712345678",
	}
}

func callbackBody(t *testing.T, resultCode int, receipt string) *mpesa.CallbackPayload {
	t.Helper()
	raw := map[string]any{
		"Body": map[string]any{
			"stkCallback": map[string]any{
				"MerchantRequestID": "mr-1",
				"CheckoutRequestID": "ws_CO_123",
				"ResultCode":        resultCode,
				"ResultDesc":        "whatever",
			},
		},
	}
	if resultCode == 0 {
		raw["Body"].(map[string]any)["stkCallback"].(map[string]any)["CallbackMetadata"] = map[string]any{
			"Item": []map[string]any{
				{"Name": "Amount", "Value": 1500.0},
				{"Name": "MpesaReceiptNumber", "Value": receipt},
				{"Name": "PhoneNumber", "Value": 254712345678.0},
			},
		}
	}
	body, err := json.Marshal(raw)
	require.NoError(t, err)
	var payload mpesa.CallbackPayload
	require.NoError(t, json.Unmarshal(body, &payload))
	return &payload
}

func TestInitiate(t *testing.T) {
	caller := models.Caller{UID: "trainer-1", Role: models.RoleTrainer}

	t.Run("sends one prompt and stores the checkout id", func(t *testing.T) {
		repo := new(mockRepository)
		gateway := new(mockGateway)
		svc := New(repo, gateway, discardLogger())

		repo.On("ReadPayment", mock.Anything, "trainer-1", 12).Return(pendingPayment(), nil).Once()
		repo.On("ClaimPrompt", mock.Anything, "trainer-1", 12, "254712345678").Return(1, nil).Once()
		gateway.On("InitiateSTKPush", mock.Anything, "254712345678", 1500.0, "INV-20240115-AB12CD34", "").
			Return(&mpesa.STKPushResponse{CheckoutRequestID: "ws_CO_123", CustomerMessage: "ok"}, nil).Once()
		repo.On("StoreCheckoutRequest", mock.Anything, 12, "ws_CO_123").Return(nil).Once()

		result, err := svc.Initiate(context.Background(), caller, 12, "")
		require.NoError(t, err)
		assert.Equal(t, "ws_CO_123", result.CheckoutRequestID)
		repo.AssertExpectations(t)
		gateway.AssertExpectations(t)
	})

	t.Run("retry while the prompt is live returns the stored acknowledgement", func(t *testing.T) {
		repo := new(mockRepository)
		gateway := new(mockGateway)
		svc := New(repo, gateway, discardLogger())

		checkoutID := "ws_CO_123"
		outstanding := pendingPayment()
		outstanding.PromptOutstanding = true
		outstanding.CheckoutRequestID = &checkoutID

		repo.On("ReadPayment", mock.Anything, "trainer-1", 12).Return(pendingPayment(), nil).Once()
		repo.On("ClaimPrompt", mock.Anything, "trainer-1", 12, "254712345678").Return(0, nil).Once()
		repo.On("ReadPayment", mock.Anything, "trainer-1", 12).Return(outstanding, nil).Once()

		result, err := svc.Initiate(context.Background(), caller, 12, "")
		require.NoError(t, err)
		assert.Equal(t, "ws_CO_123", result.CheckoutRequestID)
		assert.Equal(t, 12, result.PaymentID)
		gateway.AssertNotCalled(t, "InitiateSTKPush", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		repo.AssertExpectations(t)
	})

	t.Run("lost claim without a stored checkout id is rejected", func(t *testing.T) {
		repo := new(mockRepository)
		gateway := new(mockGateway)
		svc := New(repo, gateway, discardLogger())

		outstanding := pendingPayment()
		outstanding.PromptOutstanding = true

		repo.On("ReadPayment", mock.Anything, "trainer-1", 12).Return(pendingPayment(), nil).Once()
		repo.On("ClaimPrompt", mock.Anything, "trainer-1", 12, "254712345678").Return(0, nil).Once()
		repo.On("ReadPayment", mock.Anything, "trainer-1", 12).Return(outstanding, nil).Once()

		_, err := svc.Initiate(context.Background(), caller, 12, "")
		assert.ErrorIs(t, err, errs.ErrInvalidTransition)
		gateway.AssertNotCalled(t, "InitiateSTKPush", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("gateway failure releases the claim", func(t *testing.T) {
		repo := new(mockRepository)
		gateway := new(mockGateway)
		svc := New(repo, gateway, discardLogger())

		repo.On("ReadPayment", mock.Anything, "trainer-1", 12).Return(pendingPayment(), nil).Once()
		repo.On("ClaimPrompt", mock.Anything, "trainer-1", 12, "254712345678").Return(1, nil).Once()
		gateway.On("InitiateSTKPush", mock.Anything, "254712345678", 1500.0, "INV-20240115-AB12CD34", "").
			Return(nil, errs.ErrGateway).Once()
		repo.On("ReleasePrompt", mock.Anything, 12).Return(nil).Once()

		_, err := svc.Initiate(context.Background(), caller, 12, "")
		assert.ErrorIs(t, err, errs.ErrGateway)
		repo.AssertExpectations(t)
	})

	t.Run("failure to store the checkout id releases the claim", func(t *testing.T) {
		repo := new(mockRepository)
		gateway := new(mockGateway)
		svc := New(repo, gateway, discardLogger())

		repo.On("ReadPayment", mock.Anything, "trainer-1", 12).Return(pendingPayment(), nil).Once()
		repo.On("ClaimPrompt", mock.Anything, "trainer-1", 12, "254712345678").Return(1, nil).Once()
		gateway.On("InitiateSTKPush", mock.Anything, "254712345678", 1500.0, "INV-20240115-AB12CD34", "").
			Return(&mpesa.STKPushResponse{CheckoutRequestID: "ws_CO_123"}, nil).Once()
		repo.On("StoreCheckoutRequest", mock.Anything, 12, "ws_CO_123").Return(errors.New("connection reset")).Once()
		repo.On("ReleasePrompt", mock.Anything, 12).Return(nil).Once()

		_, err := svc.Initiate(context.Background(), caller, 12, "")
		assert.Error(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("rejects malformed phone number before claiming", func(t *testing.T) {
		repo := new(mockRepository)
		gateway := new(mockGateway)
		svc := New(repo, gateway, discardLogger())

		repo.On("ReadPayment", mock.Anything, "trainer-1", 12).Return(pendingPayment(), nil).Once()

		_, err := svc.Initiate(context.Background(), caller, 12, "not-a-phone")
		assert.ErrorIs(t, err, errs.ErrValidation)
		repo.AssertNotCalled(t, "ClaimPrompt", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects non-pending payment", func(t *testing.T) {
		repo := new(mockRepository)
		gateway := new(mockGateway)
		svc := New(repo, gateway, discardLogger())

		p := pendingPayment()
		p.Status = models.PaymentStatusCompleted
		repo.On("ReadPayment", mock.Anything, "trainer-1", 12).Return(p, nil).Once()

		_, err := svc.Initiate(context.Background(), caller, 12, "")
		assert.ErrorIs(t, err, errs.ErrInvalidTransition)
	})
}

func TestHandleCallback(t *testing.T) {
	t.Run("success completes the payment with the gateway receipt", func(t *testing.T) {
		repo := new(mockRepository)
		svc := New(repo, new(mockGateway), discardLogger())

		repo.On("CompletePromptedPayment", mock.Anything, "ws_CO_123", "SAF12345").Return(1, nil).Once()

		err := svc.HandleCallback(context.Background(), callbackBody(t, 0, "SAF12345"))
		require.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("failure releases the claim and keeps the payment pending", func(t *testing.T) {
		repo := new(mockRepository)
		svc := New(repo, new(mockGateway), discardLogger())

		repo.On("ReleasePromptByCheckoutID", mock.Anything, "ws_CO_123").Return(1, nil).Once()

		err := svc.HandleCallback(context.Background(), callbackBody(t, 1032, ""))
		require.NoError(t, err)
		repo.AssertNotCalled(t, "CompletePromptedPayment", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("replayed success callback is acknowledged without effect", func(t *testing.T) {
		repo := new(mockRepository)
		svc := New(repo, new(mockGateway), discardLogger())

		repo.On("CompletePromptedPayment", mock.Anything, "ws_CO_123", "SAF12345").Return(0, nil).Once()

		err := svc.HandleCallback(context.Background(), callbackBody(t, 0, "SAF12345"))
		assert.NoError(t, err)
	})

	t.Run("unknown checkout id is acknowledged without effect", func(t *testing.T) {
		repo := new(mockRepository)
		svc := New(repo, new(mockGateway), discardLogger())

		repo.On("ReleasePromptByCheckoutID", mock.Anything, "ws_CO_123").Return(0, nil).Once()

		err := svc.HandleCallback(context.Background(), callbackBody(t, 1037, ""))
		assert.NoError(t, err)
	})
}
