package controller

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"comanda/internal/commons"
	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/order/service"
)

const maxItemsPerRequest = 100

type OrderService interface {
	FetchOrderWithItems(ctx context.Context, id string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status domain.OrderStatus, manual bool) (*domain.Order, error)
	ToggleAutoProgress(ctx context.Context, id string) (*domain.Order, error)
	CreateManualOrder(ctx context.Context, in service.ManualOrderInput) (*domain.Order, error)
	PlaceOnlineOrder(ctx context.Context, in service.CheckoutInput) (*domain.Order, error)
	AddItemsToOrder(ctx context.Context, id string, items []service.ItemInput) (*domain.Order, error)
	CloseTableAccount(ctx context.Context, id string, payment service.PaymentInput) (*domain.Order, error)
}

type OrderLister interface {
	Orders() []domain.Order
}

// TransitionChecker runs one scheduler pass on demand.
type TransitionChecker interface {
	RunPass(ctx context.Context)
}

type OrderController struct {
	service   OrderService
	orders    OrderLister
	scheduler TransitionChecker
	logger    *zap.Logger
}

func NewOrderController(service OrderService, orders OrderLister, scheduler TransitionChecker, logger *zap.Logger) *OrderController {
	return &OrderController{
		service:   service,
		orders:    orders,
		scheduler: scheduler,
		logger:    logger,
	}
}

func (c *OrderController) List(w http.ResponseWriter, r *http.Request) {
	orders := c.orders.Orders()
	if status := r.URL.Query().Get("status"); status != "" {
		filtered := make([]domain.Order, 0, len(orders))
		for _, o := range orders {
			if string(o.Status) == status {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}
	commons.WriteJSON(w, c.logger, http.StatusOK, orders)
}

func (c *OrderController) Get(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	order, err := c.service.FetchOrderWithItems(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	commons.WriteJSON(w, logger, http.StatusOK, order)
}

func (c *OrderController) Create(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req service.ManualOrderInput
	if !commons.DecodeJSON(w, r, logger, traceID, &req) {
		return
	}
	if details := validateItemCount(req.Items); len(details) > 0 {
		commons.WriteValidationError(w, logger, traceID, "validation failed", details...)
		return
	}

	order, err := c.service.CreateManualOrder(r.Context(), req)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	commons.WriteJSON(w, logger, http.StatusCreated, order)
}

func (c *OrderController) Checkout(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req service.CheckoutInput
	if !commons.DecodeJSON(w, r, logger, traceID, &req) {
		return
	}
	if details := validateItemCount(req.Items); len(details) > 0 {
		commons.WriteValidationError(w, logger, traceID, "validation failed", details...)
		return
	}

	order, err := c.service.PlaceOnlineOrder(r.Context(), req)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	commons.WriteJSON(w, logger, http.StatusCreated, order)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (c *OrderController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req updateStatusRequest
	if !commons.DecodeJSON(w, r, logger, traceID, &req) {
		return
	}
	if !req.Status.IsValid() {
		commons.WriteValidationError(w, logger, traceID, "validation failed", apperrors.ValidationDetail{
			Field:   "status",
			Message: "status must be one of PENDING, PREPARING, READY_FOR_PICKUP, OUT_FOR_DELIVERY, DELIVERED, CANCELLED",
		})
		return
	}

	order, err := c.service.UpdateOrderStatus(r.Context(), chi.URLParam(r, "orderId"), req.Status, true)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	commons.WriteJSON(w, logger, http.StatusOK, order)
}

func (c *OrderController) ToggleAutoProgress(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	order, err := c.service.ToggleAutoProgress(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	commons.WriteJSON(w, logger, http.StatusOK, order)
}

type addItemsRequest struct {
	Items []service.ItemInput `json:"items"`
}

func (c *OrderController) AddItems(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req addItemsRequest
	if !commons.DecodeJSON(w, r, logger, traceID, &req) {
		return
	}
	if details := validateItemCount(req.Items); len(details) > 0 {
		commons.WriteValidationError(w, logger, traceID, "validation failed", details...)
		return
	}

	order, err := c.service.AddItemsToOrder(r.Context(), chi.URLParam(r, "orderId"), req.Items)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	commons.WriteJSON(w, logger, http.StatusOK, order)
}

func (c *OrderController) CloseAccount(w http.ResponseWriter, r *http.Request) {
	traceID := commons.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req service.PaymentInput
	if !commons.DecodeJSON(w, r, logger, traceID, &req) {
		return
	}
	if !req.PaymentMethod.IsValid() {
		commons.WriteValidationError(w, logger, traceID, "validation failed", apperrors.ValidationDetail{
			Field:   "paymentMethod",
			Message: "paymentMethod must be one of CASH, INSTANT_TRANSFER, CARD",
		})
		return
	}

	order, err := c.service.CloseTableAccount(r.Context(), chi.URLParam(r, "orderId"), req)
	if err != nil {
		commons.WriteError(w, logger, traceID, err)
		return
	}

	commons.WriteJSON(w, logger, http.StatusOK, order)
}

// CheckTransitions runs a scheduler pass immediately instead of waiting for the next tick.
func (c *OrderController) CheckTransitions(w http.ResponseWriter, r *http.Request) {
	c.scheduler.RunPass(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func validateItemCount(items []service.ItemInput) []apperrors.ValidationDetail {
	if len(items) == 0 {
		return []apperrors.ValidationDetail{{Field: "items", Message: "items must not be empty"}}
	}
	if len(items) > maxItemsPerRequest {
		return []apperrors.ValidationDetail{{
			Field:   "items",
			Message: "items exceeds maximum of " + strconv.Itoa(maxItemsPerRequest),
		}}
	}
	return nil
}
