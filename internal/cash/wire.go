package cash

import (
	"database/sql"

	"go.uber.org/zap"

	"comanda/internal/cash/controller"
	"comanda/internal/cash/repository"
	"comanda/internal/cash/service"
	"comanda/internal/commons"
	"comanda/internal/notice"
	"comanda/internal/state"
)

type Module struct {
	Service    *service.CashService
	Controller *controller.CashController
}

func NewModule(
	db *sql.DB,
	store *state.Store,
	notifier notice.Notifier,
	metrics service.Metrics,
	clock commons.Clock,
	logger *zap.Logger,
	opts service.Options,
) *Module {
	svc := service.NewCashService(
		db,
		repository.NewMySQLSessionRepository(db),
		repository.NewMySQLAdjustmentRepository(db),
		repository.NewMySQLSalesRepository(db),
		store,
		notifier,
		metrics,
		clock,
		logger,
		opts,
	)

	return &Module{
		Service:    svc,
		Controller: controller.NewCashController(svc, store, logger),
	}
}
