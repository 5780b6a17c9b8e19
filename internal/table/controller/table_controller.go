package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"comanda/internal/commons"
	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
)

type TableService interface {
	SetStatus(ctx context.Context, id string, status domain.TableStatus) (*domain.Table, error)
}

type TableLister interface {
	Tables() []domain.Table
}

type TableController struct {
	service TableService
	tables  TableLister
	logger  *zap.Logger
}

func NewTableController(service TableService, tables TableLister, logger *zap.Logger) *TableController {
	return &TableController{
		service: service,
		tables:  tables,
		logger:  logger,
	}
}

func (c *TableController) List(w http.ResponseWriter, r *http.Request) {
	commons.WriteJSON(w, c.logger, http.StatusOK, c.tables.Tables())
}

type updateTableRequest struct {
	Status domain.TableStatus `json:"status"`
}

func (c *TableController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req updateTableRequest
	if !commons.DecodeJSON(w, r, logger, traceID, &req) {
		return
	}
	if !req.Status.IsValid() {
		commons.WriteValidationError(w, logger, traceID, "validation failed", apperrors.ValidationDetail{
			Field:   "status",
			Message: "status must be one of AVAILABLE, OCCUPIED, NEEDS_CLEANING",
		})
		return
	}

	table, err := c.service.SetStatus(r.Context(), chi.URLParam(r, "tableId"), req.Status)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	commons.WriteJSON(w, logger, http.StatusOK, table)
}
