package service

import (
	"context"
	"database/sql"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"comanda/internal/cash/reconciliation"
	"comanda/internal/commons"
	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/notice"
	"comanda/internal/state"
)

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type SessionRepository interface {
	Insert(ctx context.Context, tx *sql.Tx, s domain.CashRegisterSession) error
	FindOpenForUpdate(ctx context.Context, tx *sql.Tx) (*domain.CashRegisterSession, error)
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*domain.CashRegisterSession, error)
	Close(ctx context.Context, tx *sql.Tx, s domain.CashRegisterSession) error
	FindAll(ctx context.Context) ([]domain.CashRegisterSession, error)
}

type AdjustmentRepository interface {
	Insert(ctx context.Context, a domain.CashAdjustment) error
	FindBySession(ctx context.Context, tx *sql.Tx, sessionID string) ([]domain.CashAdjustment, error)
	FindAll(ctx context.Context) ([]domain.CashAdjustment, error)
}

type SalesRepository interface {
	FindSettledOrders(ctx context.Context, tx *sql.Tx, sessionID string) ([]domain.Order, error)
}

type StateStore interface {
	Dispatch(a state.Action)
	ActiveSession() *domain.CashRegisterSession
}

type Metrics interface {
	CashSessionClosed(difference float64)
}

type Options struct {
	TxTimeout        time.Duration
	MaxRetryAttempts int
}

type CashService struct {
	db               TransactionManager
	sessionRepo      SessionRepository
	adjustmentRepo   AdjustmentRepository
	salesRepo        SalesRepository
	store            StateStore
	notifier         notice.Notifier
	metrics          Metrics
	clock            commons.Clock
	logger           *zap.Logger
	txTimeout        time.Duration
	maxRetryAttempts int
}

func NewCashService(
	db TransactionManager,
	sessionRepo SessionRepository,
	adjustmentRepo AdjustmentRepository,
	salesRepo SalesRepository,
	store StateStore,
	notifier notice.Notifier,
	metrics Metrics,
	clock commons.Clock,
	logger *zap.Logger,
	opts Options,
) *CashService {
	if opts.TxTimeout <= 0 {
		opts.TxTimeout = 5 * time.Second
	}
	if opts.MaxRetryAttempts <= 0 {
		opts.MaxRetryAttempts = 3
	}
	return &CashService{
		db:               db,
		sessionRepo:      sessionRepo,
		adjustmentRepo:   adjustmentRepo,
		salesRepo:        salesRepo,
		store:            store,
		notifier:         notifier,
		metrics:          metrics,
		clock:            clock,
		logger:           logger,
		txTimeout:        opts.TxTimeout,
		maxRetryAttempts: opts.MaxRetryAttempts,
	}
}

func (s *CashService) Preload(ctx context.Context) error {
	sessions, err := s.sessionRepo.FindAll(ctx)
	if err != nil {
		return apperrors.NewInternalError("loading cash sessions", err)
	}
	adjustments, err := s.adjustmentRepo.FindAll(ctx)
	if err != nil {
		return apperrors.NewInternalError("loading cash adjustments", err)
	}

	s.store.Dispatch(state.SessionsLoaded{Sessions: sessions})
	s.store.Dispatch(state.AdjustmentsLoaded{Adjustments: adjustments})
	s.logger.Info("cash register loaded", zap.Int("sessions", len(sessions)), zap.Int("adjustments", len(adjustments)))
	return nil
}

func (s *CashService) ActiveSession() *domain.CashRegisterSession {
	return s.store.ActiveSession()
}

// OpenSession starts a new OPEN session. Only one session may be open at a time.
func (s *CashService) OpenSession(ctx context.Context, openingBalance decimal.Decimal, notes *string) (*domain.CashRegisterSession, error) {
	const operation = "Failed to open cash register"

	if openingBalance.IsNegative() {
		err := apperrors.NewValidationError("opening balance cannot be negative", apperrors.ValidationDetail{
			Field:   "openingBalance",
			Message: "must be zero or greater",
		})
		s.notifier.Notify(notice.ForError(operation, err))
		return nil, err
	}

	session := domain.CashRegisterSession{
		ID:             uuid.NewString(),
		OpeningBalance: openingBalance,
		Status:         domain.CashSessionOpen,
		OpenedAt:       s.clock.Now(),
		NotesOpening:   trimmed(notes),
	}

	err := s.withRetry(ctx, "open", func() error {
		return s.inTx(ctx, func(txCtx context.Context, tx *sql.Tx) error {
			open, err := s.sessionRepo.FindOpenForUpdate(txCtx, tx)
			if err == nil {
				return apperrors.NewConflictError("a cash register session is already open since " + open.OpenedAt.Format(time.DateTime))
			}
			if _, notFound := apperrors.IsNotFoundError(err); !notFound {
				return err
			}
			return s.sessionRepo.Insert(txCtx, tx, session)
		})
	})
	if err != nil {
		err = s.wrap("opening cash register", err)
		s.logger.Warn("cash register not opened", zap.Error(err))
		s.notifier.Notify(notice.ForError(operation, err))
		return nil, err
	}

	s.store.Dispatch(state.SessionUpserted{Session: session})
	s.notifier.Notify(notice.Success("Cash register opened with " + money(openingBalance)))
	s.logger.Info("cash register opened", zap.String("sessionId", session.ID), zap.String("openingBalance", openingBalance.StringFixed(2)))

	return &session, nil
}

// CloseSession reconciles the session against its cash sales and adjustments and stores the result.
func (s *CashService) CloseSession(ctx context.Context, sessionID string, informed decimal.Decimal, notes *string) (*domain.CashRegisterSession, error) {
	const operation = "Failed to close cash register"

	if informed.IsNegative() {
		err := apperrors.NewValidationError("closing balance cannot be negative", apperrors.ValidationDetail{
			Field:   "closingBalanceInformed",
			Message: "must be zero or greater",
		})
		s.notifier.Notify(notice.ForError(operation, err))
		return nil, err
	}

	var closed domain.CashRegisterSession
	err := s.withRetry(ctx, "close", func() error {
		return s.inTx(ctx, func(txCtx context.Context, tx *sql.Tx) error {
			session, err := s.sessionRepo.FindByIDForUpdate(txCtx, tx, sessionID)
			if err != nil {
				return err
			}
			if !session.IsOpen() {
				return apperrors.NewValidationError("cash register session " + sessionID + " is already closed")
			}

			sales, err := s.salesRepo.FindSettledOrders(txCtx, tx, sessionID)
			if err != nil {
				return err
			}
			adjustments, err := s.adjustmentRepo.FindBySession(txCtx, tx, sessionID)
			if err != nil {
				return err
			}

			result := reconciliation.Reconcile(sessionID, session.OpeningBalance, sales, adjustments, informed)

			closedAt := s.clock.Now()
			closed = session.Clone()
			closed.Status = domain.CashSessionClosed
			closed.ClosedAt = &closedAt
			closed.ClosingBalanceInformed = decimal.NewNullDecimal(informed)
			closed.CalculatedSales = decimal.NewNullDecimal(result.CalculatedSales)
			closed.ExpectedInCash = decimal.NewNullDecimal(result.ExpectedInCash)
			closed.DifferenceCash = decimal.NewNullDecimal(result.Difference)
			closed.NotesClosing = trimmed(notes)

			return s.sessionRepo.Close(txCtx, tx, closed)
		})
	})
	if err != nil {
		err = s.wrap("closing cash register", err)
		s.logger.Warn("cash register not closed", zap.String("sessionId", sessionID), zap.Error(err))
		s.notifier.Notify(notice.ForError(operation, err))
		return nil, err
	}

	s.store.Dispatch(state.SessionUpserted{Session: closed})

	difference := closed.DifferenceCash.Decimal
	if difference.IsZero() {
		s.notifier.Notify(notice.Success("Cash register closed. Balance matches the expected amount"))
	} else {
		s.notifier.Notify(notice.Info("Cash register closed with a difference of " + money(difference)))
	}
	if s.metrics != nil {
		s.metrics.CashSessionClosed(difference.InexactFloat64())
	}

	s.logger.Info("cash register closed",
		zap.String("sessionId", sessionID),
		zap.String("expectedInCash", closed.ExpectedInCash.Decimal.StringFixed(2)),
		zap.String("difference", difference.StringFixed(2)),
	)

	return &closed, nil
}

// AddAdjustment appends a manual movement to an OPEN session.
func (s *CashService) AddAdjustment(ctx context.Context, sessionID string, adjustmentType domain.AdjustmentType, amount decimal.Decimal, reason string) (*domain.CashAdjustment, error) {
	const operation = "Failed to register cash adjustment"

	var details []apperrors.ValidationDetail
	if !adjustmentType.IsValid() {
		details = append(details, apperrors.ValidationDetail{Field: "adjustmentType", Message: "must be ADD or REMOVE"})
	}
	if !amount.IsPositive() {
		details = append(details, apperrors.ValidationDetail{Field: "amount", Message: "must be greater than zero"})
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		details = append(details, apperrors.ValidationDetail{Field: "reason", Message: "is required"})
	}
	if len(details) > 0 {
		err := apperrors.NewValidationError("invalid cash adjustment", details...)
		s.notifier.Notify(notice.ForError(operation, err))
		return nil, err
	}

	active := s.store.ActiveSession()
	if active == nil || active.ID != sessionID {
		err := apperrors.NewConflictError("cash register session " + sessionID + " is not open")
		s.notifier.Notify(notice.ForError(operation, err))
		return nil, err
	}

	adjustment := domain.CashAdjustment{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		Type:       adjustmentType,
		Amount:     amount,
		Reason:     reason,
		AdjustedAt: s.clock.Now(),
	}

	if err := s.adjustmentRepo.Insert(ctx, adjustment); err != nil {
		err = apperrors.NewInternalError("registering cash adjustment", err)
		s.logger.Error("failed to insert cash adjustment", zap.String("sessionId", sessionID), zap.Error(err))
		s.notifier.Notify(notice.ForError(operation, err))
		return nil, err
	}

	s.store.Dispatch(state.AdjustmentAdded{Adjustment: adjustment})
	verb := "added to"
	if adjustmentType == domain.AdjustmentRemove {
		verb = "removed from"
	}
	s.notifier.Notify(notice.Success(money(amount) + " " + verb + " the cash register"))
	s.logger.Info("cash adjustment registered",
		zap.String("sessionId", sessionID),
		zap.String("type", string(adjustmentType)),
		zap.String("amount", amount.StringFixed(2)),
	)

	return &adjustment, nil
}

func (s *CashService) inTx(ctx context.Context, fn func(txCtx context.Context, tx *sql.Tx) error) error {
	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		s.logger.Error("failed to begin transaction", zap.Error(err))
		return err
	}
	// MySQL ignores rollback if already committed.
	defer tx.Rollback()

	if err := fn(txCtx, tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *CashService) withRetry(ctx context.Context, action string, fn func() error) error {
	// Backoff intervals: attempt 1 (0ms), attempt 2 (100ms), attempt 3 (200ms).
	backoffs := []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}

	for attempt := 1; attempt <= s.maxRetryAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !isDeadlockError(err) {
			return err
		}
		if attempt == s.maxRetryAttempts {
			break
		}

		base := backoffs[min(attempt, len(backoffs)-1)]
		// ±20% jitter
		wait := time.Duration(float64(base) * (0.8 + rand.Float64()*0.4))
		s.logger.Warn("deadlock detected, retrying", zap.String("action", action), zap.Int("attempt", attempt), zap.Int("maxAttempts", s.maxRetryAttempts))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return apperrors.NewDeadlockError("max retries exceeded")
}

// wrap keeps domain refusals as they are and turns anything else into an InternalError.
func (s *CashService) wrap(message string, err error) error {
	if _, ok := apperrors.IsValidationError(err); ok {
		return err
	}
	if _, ok := apperrors.IsConflictError(err); ok {
		return err
	}
	if _, ok := apperrors.IsNotFoundError(err); ok {
		return err
	}
	if _, ok := apperrors.IsDeadlockError(err); ok {
		return err
	}
	return apperrors.NewInternalError(message, err)
}

func isDeadlockError(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func money(d decimal.Decimal) string {
	return "R$ " + d.StringFixed(2)
}
