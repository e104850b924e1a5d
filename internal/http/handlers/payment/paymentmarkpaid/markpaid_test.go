package paymentmarkpaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/trainrup/billing/internal/errs"
	"github.com/trainrup/billing/internal/http/middlewarectx"
	"github.com/trainrup/billing/internal/models"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) MarkCompleted(ctx context.Context, caller models.Caller, id int, req models.DummyMarkPaid) (*models.Payment, error) {
	args := m.Called(ctx, caller, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func TestMarkPaidHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		paymentID      string
		requestBody    any
		authorized     bool
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "successful completion",
			paymentID:   "5",
			requestBody: models.DummyMarkPaid{Method: models.MethodCash},
			authorized:  true,
			setupMock: func(m *MockService) {
				m.On("MarkCompleted", mock.Anything, mock.AnythingOfType("models.Caller"), 5, mock.AnythingOfType("models.DummyMarkPaid")).
					Return(&models.Payment{ID: 5, Status: models.PaymentStatusCompleted}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"payment_status":"completed"`,
		},
		{
			name:           "invalid JSON",
			paymentID:      "5",
			requestBody:    "not a json",
			authorized:     true,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid request body"`,
		},
		{
			name:           "missing method fails validation",
			paymentID:      "5",
			requestBody:    models.DummyMarkPaid{},
			authorized:     true,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `field Method is a required field`,
		},
		{
			name:           "unauthorized",
			paymentID:      "5",
			requestBody:    models.DummyMarkPaid{Method: models.MethodCash},
			authorized:     false,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `"error":"unauthorized"`,
		},
		{
			name:           "invalid id in url",
			paymentID:      "abc",
			requestBody:    models.DummyMarkPaid{Method: models.MethodCash},
			authorized:     true,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"error":"invalid payment id"`,
		},
		{
			name:        "already completed maps to conflict",
			paymentID:   "5",
			requestBody: models.DummyMarkPaid{Method: models.MethodCash},
			authorized:  true,
			setupMock: func(m *MockService) {
				m.On("MarkCompleted", mock.Anything, mock.AnythingOfType("models.Caller"), 5, mock.AnythingOfType("models.DummyMarkPaid")).
					Return(nil, fmt.Errorf("payment 5 is completed: %w", errs.ErrInvalidTransition))
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"error":"operation not allowed in current state"`,
		},
		{
			name:        "missing payment maps to not found",
			paymentID:   "5",
			requestBody: models.DummyMarkPaid{Method: models.MethodCash},
			authorized:  true,
			setupMock: func(m *MockService) {
				m.On("MarkCompleted", mock.Anything, mock.AnythingOfType("models.Caller"), 5, mock.AnythingOfType("models.DummyMarkPaid")).
					Return(nil, errs.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"error":"not found"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			var body []byte
			var err error
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				body, err = json.Marshal(tt.requestBody)
				assert.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/payments/"+tt.paymentID+"/mark-paid", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			ctx := req.Context()
			if tt.authorized {
				ctx = context.WithValue(ctx, middlewarectx.User, "coach")
				ctx = context.WithValue(ctx, middlewarectx.Role, models.RoleTrainer)
				ctx = context.WithValue(ctx, middlewarectx.UserUID, "trainer-1")
			}
			ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-id")
			req = req.WithContext(ctx)

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("id", tt.paymentID)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
