package controller

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"comanda/internal/commons"
	"comanda/internal/settings/service"
)

type SettingsService interface {
	Fetch(ctx context.Context) (map[string]map[string]int64, error)
	UpdateOrderFlow(ctx context.Context, raw map[string]map[string]int64) (map[string]map[string]int64, error)
	StoreHours() service.StoreHours
	UpdateStoreHours(ctx context.Context, timezone string, openingHours map[string]string) (service.StoreHours, error)
}

type SettingsController struct {
	service SettingsService
	logger  *zap.Logger
}

func NewSettingsController(service SettingsService, logger *zap.Logger) *SettingsController {
	return &SettingsController{
		service: service,
		logger:  logger,
	}
}

// orderFlowBody carries durations in milliseconds keyed by order type and status.
type orderFlowBody struct {
	OrderFlow map[string]map[string]int64 `json:"orderFlow"`
}

func (c *SettingsController) GetOrderFlow(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	effective, err := c.service.Fetch(r.Context())
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	commons.WriteJSON(w, logger, http.StatusOK, orderFlowBody{OrderFlow: effective})
}

func (c *SettingsController) UpdateOrderFlow(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req orderFlowBody
	if !commons.DecodeJSON(w, r, logger, traceID, &req) {
		return
	}

	effective, err := c.service.UpdateOrderFlow(r.Context(), req.OrderFlow)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	commons.WriteJSON(w, logger, http.StatusOK, orderFlowBody{OrderFlow: effective})
}

func (c *SettingsController) GetStoreHours(w http.ResponseWriter, r *http.Request) {
	commons.WriteJSON(w, c.logger, http.StatusOK, c.service.StoreHours())
}

type storeHoursRequest struct {
	Timezone     string            `json:"timezone"`
	OpeningHours map[string]string `json:"openingHours"`
}

func (c *SettingsController) UpdateStoreHours(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req storeHoursRequest
	if !commons.DecodeJSON(w, r, logger, traceID, &req) {
		return
	}

	hours, err := c.service.UpdateStoreHours(r.Context(), req.Timezone, req.OpeningHours)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	commons.WriteJSON(w, logger, http.StatusOK, hours)
}
