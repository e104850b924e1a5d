package block

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

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

func (m *MockService) Block(ctx context.Context, caller models.Caller, trainerUID string, req models.DummyBlock) (*models.BlockingView, error) {
	args := m.Called(ctx, caller, trainerUID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BlockingView), args.Error(1)
}

func TestBlockHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		trainerUID     string
		role           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:       "admin blocks a trainer",
			trainerUID: "trainer-1",
			role:       models.RoleAdmin,
			setupMock: func(m *MockService) {
				m.On("Block", mock.Anything, mock.AnythingOfType("models.Caller"), "trainer-1", models.DummyBlock{BlockReason: "payment dispute"}).
					Return(&models.BlockingView{AccountBlocked: true, BlockReason: "payment dispute"}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"account_blocked":true`,
		},
		{
			name:       "trainer is rejected",
			trainerUID: "trainer-2",
			role:       models.RoleTrainer,
			setupMock: func(m *MockService) {
				m.On("Block", mock.Anything, mock.AnythingOfType("models.Caller"), "trainer-2", mock.AnythingOfType("models.DummyBlock")).
					Return(nil, errs.ErrPermissionDenied)
			},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `"error":"permission denied"`,
		},
		{
			name:       "unknown trainer",
			trainerUID: "ghost",
			role:       models.RoleAdmin,
			setupMock: func(m *MockService) {
				m.On("Block", mock.Anything, mock.AnythingOfType("models.Caller"), "ghost", mock.AnythingOfType("models.DummyBlock")).
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

			body, err := json.Marshal(models.DummyBlock{BlockReason: "payment dispute"})
			assert.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/admin/trainers/"+tt.trainerUID+"/block", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			ctx := context.WithValue(req.Context(), middlewarectx.User, "caller")
			ctx = context.WithValue(ctx, middlewarectx.Role, tt.role)
			ctx = context.WithValue(ctx, middlewarectx.UserUID, "caller-uid")
			ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-id")
			req = req.WithContext(ctx)

			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("uid", tt.trainerUID)
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}
