package settings

import (
	"database/sql"

	"go.uber.org/zap"

	"comanda/internal/commons"
	"comanda/internal/notice"
	"comanda/internal/order/flow"
	"comanda/internal/settings/controller"
	"comanda/internal/settings/repository"
	"comanda/internal/settings/service"
	"comanda/internal/storehours"
)

type Module struct {
	Service    *service.SettingsService
	Controller *controller.SettingsController
}

func NewModule(
	db *sql.DB,
	resolver *flow.Resolver,
	calendar *storehours.Calendar,
	defaults service.Defaults,
	notifier notice.Notifier,
	clock commons.Clock,
	logger *zap.Logger,
) *Module {
	repo := repository.NewMySQLSettingsRepository(db)
	svc := service.NewSettingsService(repo, resolver, calendar, defaults, notifier, clock, logger)

	return &Module{
		Service:    svc,
		Controller: controller.NewSettingsController(svc, logger),
	}
}
