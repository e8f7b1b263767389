package user

import (
	"database/sql"

	"go.uber.org/zap"

	"comanda/internal/config"
	"comanda/internal/user/controller"
	"comanda/internal/user/repository"
	"comanda/internal/user/service"
	"comanda/internal/user/usecase"
)

type Module struct {
	Controller *controller.UserController
	Auth       *usecase.AuthUseCase
}

func NewModule(db *sql.DB, sessions usecase.SessionStore, cfg *config.Config, logger *zap.Logger) *Module {
	repo := repository.NewMySQLUserRepository(db)
	hasher := service.NewPasswordService(cfg.Session.PasswordCost)

	authUC := usecase.NewAuthUseCase(repo, hasher, sessions, logger)
	usersUC := usecase.NewManageUsersUseCase(repo, hasher, sessions, logger)

	return &Module{
		Controller: controller.NewUserController(authUC, usersUC, logger),
		Auth:       authUC,
	}
}
