package table

import (
	"database/sql"

	"go.uber.org/zap"

	"comanda/internal/state"
	"comanda/internal/table/controller"
	"comanda/internal/table/repository"
	"comanda/internal/table/service"
)

type Module struct {
	Service    *service.TableService
	Controller *controller.TableController
}

func NewModule(db *sql.DB, store *state.Store, logger *zap.Logger) *Module {
	repo := repository.NewMySQLTableRepository(db)
	svc := service.NewTableService(repo, store, logger)

	return &Module{
		Service:    svc,
		Controller: controller.NewTableController(svc, store, logger),
	}
}
