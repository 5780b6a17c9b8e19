package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"comanda/internal/commons"
	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
)

type CashService interface {
	OpenSession(ctx context.Context, openingBalance decimal.Decimal, notes *string) (*domain.CashRegisterSession, error)
	CloseSession(ctx context.Context, sessionID string, informed decimal.Decimal, notes *string) (*domain.CashRegisterSession, error)
	AddAdjustment(ctx context.Context, sessionID string, adjustmentType domain.AdjustmentType, amount decimal.Decimal, reason string) (*domain.CashAdjustment, error)
	ActiveSession() *domain.CashRegisterSession
}

type SessionLister interface {
	Sessions() []domain.CashRegisterSession
	Adjustments(sessionID string) []domain.CashAdjustment
}

type CashController struct {
	service  CashService
	sessions SessionLister
	logger   *zap.Logger
}

func NewCashController(service CashService, sessions SessionLister, logger *zap.Logger) *CashController {
	return &CashController{
		service:  service,
		sessions: sessions,
		logger:   logger,
	}
}

type sessionResponse struct {
	domain.CashRegisterSession
	Adjustments []domain.CashAdjustment `json:"adjustments"`
}

func (c *CashController) withAdjustments(s domain.CashRegisterSession) sessionResponse {
	return sessionResponse{CashRegisterSession: s, Adjustments: c.sessions.Adjustments(s.ID)}
}

func (c *CashController) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := c.sessions.Sessions()
	resp := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, c.withAdjustments(s))
	}
	commons.WriteJSON(w, c.logger, http.StatusOK, resp)
}

func (c *CashController) GetActiveSession(w http.ResponseWriter, r *http.Request) {
	active := c.service.ActiveSession()
	if active == nil {
		commons.WriteError(w, c.logger, commons.NewTraceID(), apperrors.NewNotFoundError("no open cash register session"))
		return
	}
	commons.WriteJSON(w, c.logger, http.StatusOK, c.withAdjustments(*active))
}

type openSessionRequest struct {
	OpeningBalance *decimal.Decimal `json:"openingBalance"`
	Notes          *string          `json:"notes"`
}

func (c *CashController) OpenSession(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req openSessionRequest
	if !commons.DecodeJSON(w, r, logger, traceID, &req) {
		return
	}
	if req.OpeningBalance == nil {
		commons.WriteValidationError(w, logger, traceID, "validation failed", apperrors.ValidationDetail{
			Field:   "openingBalance",
			Message: "openingBalance is required",
		})
		return
	}

	session, err := c.service.OpenSession(r.Context(), *req.OpeningBalance, req.Notes)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	commons.WriteJSON(w, logger, http.StatusCreated, session)
}

type closeSessionRequest struct {
	ClosingBalanceInformed *decimal.Decimal `json:"closingBalanceInformed"`
	Notes                  *string          `json:"notes"`
}

func (c *CashController) CloseSession(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req closeSessionRequest
	if !commons.DecodeJSON(w, r, logger, traceID, &req) {
		return
	}
	if req.ClosingBalanceInformed == nil {
		commons.WriteValidationError(w, logger, traceID, "validation failed", apperrors.ValidationDetail{
			Field:   "closingBalanceInformed",
			Message: "closingBalanceInformed is required",
		})
		return
	}

	session, err := c.service.CloseSession(r.Context(), chi.URLParam(r, "sessionId"), *req.ClosingBalanceInformed, req.Notes)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	commons.WriteJSON(w, logger, http.StatusOK, c.withAdjustments(*session))
}

type adjustmentRequest struct {
	AdjustmentType domain.AdjustmentType `json:"adjustmentType"`
	Amount         decimal.Decimal       `json:"amount"`
	Reason         string                `json:"reason"`
}

func (c *CashController) AddAdjustment(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req adjustmentRequest
	if !commons.DecodeJSON(w, r, logger, traceID, &req) {
		return
	}

	adjustment, err := c.service.AddAdjustment(r.Context(), chi.URLParam(r, "sessionId"), req.AdjustmentType, req.Amount, req.Reason)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	commons.WriteJSON(w, logger, http.StatusCreated, adjustment)
}
