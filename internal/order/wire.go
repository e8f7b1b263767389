package order

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"comanda/internal/clock"
	"comanda/internal/config"
	"comanda/internal/order/controller"
	orderrepo "comanda/internal/order/repository"
	"comanda/internal/order/service"
	"comanda/internal/order/usecase"
)

func NewModule(
	foods service.FoodLookup,
	redisClient *redis.Client,
	broadcaster usecase.Broadcaster,
	cfg *config.Config,
	logger *zap.Logger,
) *controller.SubmitOrderController {
	idempotencyRepo := orderrepo.NewRedisIdempotencyRepository(redisClient, cfg.Order.IdempotencyTTL)
	orderSvc := service.NewOrderService(foods, clock.NewSystem(), logger)

	uc := usecase.NewSubmitOrderUseCase(
		orderSvc,
		idempotencyRepo,
		broadcaster,
		cfg.Realtime.Group,
		logger,
		cfg.Order.PublishAttempts,
	)

	return controller.NewSubmitOrderController(uc, cfg.Order.MaxItems, logger)
}
