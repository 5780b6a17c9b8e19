package order

import (
	"database/sql"

	"go.uber.org/zap"

	"comanda/internal/commons"
	"comanda/internal/notice"
	"comanda/internal/order/controller"
	"comanda/internal/order/flow"
	"comanda/internal/order/repository"
	"comanda/internal/order/scheduler"
	"comanda/internal/order/service"
	"comanda/internal/state"
)

// Metrics is what the order service and the scheduler report to.
type Metrics interface {
	service.Metrics
	scheduler.Metrics
}

type Module struct {
	Service    *service.OrderService
	Scheduler  *scheduler.Scheduler
	Controller *controller.OrderController
}

func NewModule(
	db *sql.DB,
	tables service.TableUpdater,
	resolver *flow.Resolver,
	store *state.Store,
	hours service.StoreHours,
	notifier notice.Notifier,
	printer service.Printer,
	metrics Metrics,
	clock commons.Clock,
	logger *zap.Logger,
	opts scheduler.Options,
) *Module {
	svc := service.NewOrderService(
		repository.NewMySQLOrderRepository(db),
		repository.NewMySQLOrderItemRepository(db),
		tables,
		resolver,
		store,
		hours,
		notifier,
		printer,
		metrics,
		clock,
		logger,
	)
	sched := scheduler.NewScheduler(store, resolver, svc, metrics, clock, logger.Named("scheduler"), opts)

	return &Module{
		Service:    svc,
		Scheduler:  sched,
		Controller: controller.NewOrderController(svc, store, sched, logger),
	}
}
