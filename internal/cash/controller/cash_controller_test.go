package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"comanda/internal/commons"
	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
)

type mockCashService struct {
	OpenSessionFunc   func(ctx context.Context, openingBalance decimal.Decimal, notes *string) (*domain.CashRegisterSession, error)
	CloseSessionFunc  func(ctx context.Context, sessionID string, informed decimal.Decimal, notes *string) (*domain.CashRegisterSession, error)
	AddAdjustmentFunc func(ctx context.Context, sessionID string, t domain.AdjustmentType, amount decimal.Decimal, reason string) (*domain.CashAdjustment, error)
	ActiveSessionFunc func() *domain.CashRegisterSession
}

func (m *mockCashService) OpenSession(ctx context.Context, openingBalance decimal.Decimal, notes *string) (*domain.CashRegisterSession, error) {
	return m.OpenSessionFunc(ctx, openingBalance, notes)
}

func (m *mockCashService) CloseSession(ctx context.Context, sessionID string, informed decimal.Decimal, notes *string) (*domain.CashRegisterSession, error) {
	return m.CloseSessionFunc(ctx, sessionID, informed, notes)
}

func (m *mockCashService) AddAdjustment(ctx context.Context, sessionID string, t domain.AdjustmentType, amount decimal.Decimal, reason string) (*domain.CashAdjustment, error) {
	return m.AddAdjustmentFunc(ctx, sessionID, t, amount, reason)
}

func (m *mockCashService) ActiveSession() *domain.CashRegisterSession {
	return m.ActiveSessionFunc()
}

type stubLister struct{}

func (stubLister) Sessions() []domain.CashRegisterSession { return nil }

func (stubLister) Adjustments(sessionID string) []domain.CashAdjustment { return nil }

func newRouter(svc CashService) http.Handler {
	c := NewCashController(svc, stubLister{}, zap.NewNop())
	r := chi.NewRouter()
	r.Get("/cash/sessions/active", c.GetActiveSession)
	r.Post("/cash/sessions", c.OpenSession)
	r.Post("/cash/sessions/{sessionId}/close", c.CloseSession)
	r.Post("/cash/sessions/{sessionId}/adjustments", c.AddAdjustment)
	return r
}

func TestOpenSession_Created(t *testing.T) {
	svc := &mockCashService{
		OpenSessionFunc: func(ctx context.Context, openingBalance decimal.Decimal, notes *string) (*domain.CashRegisterSession, error) {
			assert.True(t, decimal.RequireFromString("150.50").Equal(openingBalance))
			return &domain.CashRegisterSession{ID: "s1", OpeningBalance: openingBalance, Status: domain.CashSessionOpen, OpenedAt: time.Now()}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/cash/sessions", strings.NewReader(`{"openingBalance": 150.50}`))
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var body domain.CashRegisterSession
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "s1", body.ID)
}

func TestOpenSession_MissingBalance(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/cash/sessions", strings.NewReader(`{"notes": "x"}`))
	rec := httptest.NewRecorder()
	newRouter(&mockCashService{}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body commons.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "openingBalance", body.Details[0].Field)
}

func TestOpenSession_AlreadyOpen(t *testing.T) {
	svc := &mockCashService{
		OpenSessionFunc: func(ctx context.Context, openingBalance decimal.Decimal, notes *string) (*domain.CashRegisterSession, error) {
			return nil, apperrors.NewConflictError("a cash register session is already open")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/cash/sessions", strings.NewReader(`{"openingBalance": "10"}`))
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCloseSession_PassesSessionID(t *testing.T) {
	svc := &mockCashService{
		CloseSessionFunc: func(ctx context.Context, sessionID string, informed decimal.Decimal, notes *string) (*domain.CashRegisterSession, error) {
			assert.Equal(t, "s1", sessionID)
			assert.Equal(t, "counted twice", *notes)
			return &domain.CashRegisterSession{ID: sessionID, Status: domain.CashSessionClosed}, nil
		},
	}

	body := `{"closingBalanceInformed": 183, "notes": "counted twice"}`
	req := httptest.NewRequest(http.MethodPost, "/cash/sessions/s1/close", strings.NewReader(body))
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAddAdjustment_ValidationFromService(t *testing.T) {
	svc := &mockCashService{
		AddAdjustmentFunc: func(ctx context.Context, sessionID string, typ domain.AdjustmentType, amount decimal.Decimal, reason string) (*domain.CashAdjustment, error) {
			return nil, apperrors.NewValidationError("invalid cash adjustment", apperrors.ValidationDetail{Field: "amount", Message: "must be greater than zero"})
		},
	}

	body := `{"adjustmentType": "ADD", "amount": -1, "reason": "x"}`
	req := httptest.NewRequest(http.MethodPost, "/cash/sessions/s1/adjustments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetActiveSession_NoneOpen(t *testing.T) {
	svc := &mockCashService{ActiveSessionFunc: func() *domain.CashRegisterSession { return nil }}

	req := httptest.NewRequest(http.MethodGet, "/cash/sessions/active", nil)
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
