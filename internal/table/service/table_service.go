package service

import (
	"context"

	"go.uber.org/zap"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/state"
)

type TableRepository interface {
	FindAll(ctx context.Context) ([]domain.Table, error)
	UpdateStatus(ctx context.Context, id string, status domain.TableStatus, currentOrderID *string) error
}

type StateStore interface {
	Dispatch(a state.Action)
	Table(id string) (domain.Table, bool)
	Order(id string) (domain.Order, bool)
}

type TableService struct {
	repo   TableRepository
	store  StateStore
	logger *zap.Logger
}

func NewTableService(repo TableRepository, store StateStore, logger *zap.Logger) *TableService {
	return &TableService{
		repo:   repo,
		store:  store,
		logger: logger,
	}
}

func (s *TableService) Preload(ctx context.Context) error {
	tables, err := s.repo.FindAll(ctx)
	if err != nil {
		return apperrors.NewInternalError("loading tables", err)
	}
	s.store.Dispatch(state.TablesLoaded{Tables: tables})
	s.logger.Info("tables loaded", zap.Int("count", len(tables)))
	return nil
}

// UpdateStatus sets status and the current order back-reference of a table.
// A table whose order is still open cannot be sent to cleaning.
func (s *TableService) UpdateStatus(ctx context.Context, id string, status domain.TableStatus, currentOrderID *string) (*domain.Table, error) {
	if !status.IsValid() {
		return nil, apperrors.NewValidationError("invalid table status", apperrors.ValidationDetail{
			Field:   "status",
			Message: "unknown status " + string(status),
		})
	}

	table, ok := s.store.Table(id)
	if !ok {
		return nil, apperrors.NewNotFoundError("table " + id + " not found")
	}

	if status == domain.TableStatusNeedsCleaning && table.CurrentOrderID != nil {
		if order, found := s.store.Order(*table.CurrentOrderID); found && !order.Status.IsTerminal() {
			return nil, apperrors.NewConflictError("table " + table.Name + " still has an open order and cannot be marked for cleaning")
		}
	}

	if err := s.repo.UpdateStatus(ctx, id, status, currentOrderID); err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return nil, err
		}
		s.logger.Error("failed to update table", zap.String("tableId", id), zap.Error(err))
		return nil, apperrors.NewInternalError("updating table "+table.Name, err)
	}

	table.Status = status
	table.CurrentOrderID = currentOrderID
	s.store.Dispatch(state.TableUpserted{Table: table})

	s.logger.Info("table updated", zap.String("tableId", id), zap.String("status", string(status)))
	return &table, nil
}

// SetStatus is the manual status change from the floor. Freeing a table drops its order
// reference, other statuses keep it.
func (s *TableService) SetStatus(ctx context.Context, id string, status domain.TableStatus) (*domain.Table, error) {
	table, ok := s.store.Table(id)
	if !ok {
		return nil, apperrors.NewNotFoundError("table " + id + " not found")
	}

	currentOrderID := table.CurrentOrderID
	if status == domain.TableStatusAvailable {
		currentOrderID = nil
	}
	return s.UpdateStatus(ctx, id, status, currentOrderID)
}
