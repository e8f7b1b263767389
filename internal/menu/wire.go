package menu

import (
	"database/sql"

	"go.uber.org/zap"

	"comanda/internal/menu/controller"
	"comanda/internal/menu/repository"
	"comanda/internal/menu/service"
	"comanda/internal/menu/usecase"
)

type Module struct {
	Controller *controller.FoodController
	Foods      *service.FoodService
}

func NewModule(db *sql.DB, logger *zap.Logger) *Module {
	repo := repository.NewMySQLFoodRepository(db)
	uc := usecase.NewManageFoodsUseCase(repo, logger)

	return &Module{
		Controller: controller.NewFoodController(uc, logger),
		Foods:      service.NewFoodService(repo),
	}
}
