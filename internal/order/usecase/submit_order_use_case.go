package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
)

type OrderBuilder interface {
	BuildOrder(ctx context.Context, req dto.SubmitOrderRequest) (domain.Order, error)
}

type IdempotencyRepository interface {
	Reserve(ctx context.Context, key string) (*domain.Order, error)
	Complete(ctx context.Context, key string, order domain.Order) error
	Release(ctx context.Context, key string) error
}

type Broadcaster interface {
	Publish(ctx context.Context, group string, order domain.Order) error
}

type SubmitOrderUseCase struct {
	builder          OrderBuilder
	idempotency      IdempotencyRepository
	broadcaster      Broadcaster
	group            string
	logger           *zap.Logger
	maxRetryAttempts int
	sleep            func(time.Duration)
}

func NewSubmitOrderUseCase(
	builder OrderBuilder,
	idempotency IdempotencyRepository,
	broadcaster Broadcaster,
	group string,
	logger *zap.Logger,
	maxRetryAttempts int,
) *SubmitOrderUseCase {
	if maxRetryAttempts < 1 {
		maxRetryAttempts = 1
	}
	return &SubmitOrderUseCase{
		builder:          builder,
		idempotency:      idempotency,
		broadcaster:      broadcaster,
		group:            group,
		logger:           logger,
		maxRetryAttempts: maxRetryAttempts,
		sleep:            time.Sleep,
	}
}

// SubmitOrder builds the order and broadcasts it to the admin group. With an
// idempotency key, a repeated call returns the first order and replayed=true
// without broadcasting again.
func (uc *SubmitOrderUseCase) SubmitOrder(ctx context.Context, req dto.SubmitOrderRequest, idempotencyKey string) (domain.Order, bool, error) {
	uc.logger.Info("submit-order started", zap.String("waiterName", req.WaiterName), zap.Int("itemCount", len(req.Items)))

	// Claim the key, or return the order it already produced
	if idempotencyKey != "" {
		stored, err := uc.idempotency.Reserve(ctx, idempotencyKey)
		if err != nil {
			return domain.Order{}, false, err
		}
		if stored != nil {
			uc.logger.Info("idempotent replay", zap.String("orderNumber", stored.OrderNumber))
			return *stored, true, nil
		}
	}

	// Resolve menu items and assign the order number
	order, err := uc.builder.BuildOrder(ctx, req)
	if err != nil {
		uc.release(ctx, idempotencyKey)
		return domain.Order{}, false, err
	}

	// Broadcast to the admin group
	if err := uc.publishWithRetry(ctx, order); err != nil {
		uc.release(ctx, idempotencyKey)
		return domain.Order{}, false, apperrors.NewInternalError("broadcasting order", err)
	}

	// Remember the result for retries with the same key
	if idempotencyKey != "" {
		if err := uc.idempotency.Complete(ctx, idempotencyKey, order); err != nil {
			uc.logger.Warn("storing idempotent result failed", zap.String("orderNumber", order.OrderNumber), zap.Error(err))
		}
	}

	uc.logger.Info("order submitted",
		zap.String("orderNumber", order.OrderNumber),
		zap.String("destination", string(order.Destination)),
		zap.Int("totalItems", order.TotalItems()),
	)
	return order, false, nil
}

func (uc *SubmitOrderUseCase) publishWithRetry(ctx context.Context, order domain.Order) error {
	// 100ms, 200ms, then 400ms between attempts
	backoff := 100 * time.Millisecond

	var err error
	for attempt := 1; attempt <= uc.maxRetryAttempts; attempt++ {
		err = uc.broadcaster.Publish(ctx, uc.group, order)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}

		if attempt < uc.maxRetryAttempts {
			uc.logger.Warn("broadcast failed, retrying",
				zap.Int("attempt", attempt),
				zap.Int("maxAttempts", uc.maxRetryAttempts),
				zap.String("orderNumber", order.OrderNumber),
				zap.Error(err),
			)
			uc.sleep(backoff)
			if backoff < 400*time.Millisecond {
				backoff *= 2
			}
		}
	}

	uc.logger.Error("broadcast failed", zap.String("orderNumber", order.OrderNumber), zap.Error(err))
	return err
}

func (uc *SubmitOrderUseCase) release(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := uc.idempotency.Release(ctx, key); err != nil {
		uc.logger.Warn("releasing idempotency key failed", zap.Error(err))
	}
}
