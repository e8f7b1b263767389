package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"comanda/internal/clock"
	"comanda/internal/domain"
	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
)

type FoodLookup interface {
	FoodsByIDs(ctx context.Context, ids []int64) (map[int64]domain.Food, []int64, error)
}

// OrderService turns a validated submission into an order: menu name and
// price are copied onto each line, and the order number and timestamp are
// assigned here rather than trusted from the client.
type OrderService struct {
	foods  FoodLookup
	clock  clock.Clock
	logger *zap.Logger
	newID  func() string
}

func NewOrderService(foods FoodLookup, clk clock.Clock, logger *zap.Logger) *OrderService {
	return &OrderService{
		foods:  foods,
		clock:  clk,
		logger: logger,
		newID:  uuid.NewString,
	}
}

func (s *OrderService) BuildOrder(ctx context.Context, req dto.SubmitOrderRequest) (domain.Order, error) {
	ids := make([]int64, len(req.Items))
	for i, item := range req.Items {
		ids[i] = item.FoodID
	}

	foods, missing, err := s.foods.FoodsByIDs(ctx, ids)
	if err != nil {
		s.logger.Error("menu lookup failed", zap.Int("itemCount", len(ids)), zap.Error(err))
		return domain.Order{}, err
	}

	if len(missing) > 0 {
		missingSet := make(map[int64]struct{}, len(missing))
		for _, id := range missing {
			missingSet[id] = struct{}{}
		}

		var details []apperrors.ValidationDetail
		for idx, item := range req.Items {
			if _, ok := missingSet[item.FoodID]; ok {
				details = append(details, apperrors.ValidationDetail{
					Field:   fmt.Sprintf("items[%d].foodId", idx),
					Message: fmt.Sprintf("food %d is not on the menu", item.FoodID),
				})
			}
		}
		s.logger.Warn("order references unknown foods", zap.Int64s("foodIds", missing))
		return domain.Order{}, apperrors.NewValidationError("unknown foods", details...)
	}

	destination := domain.Destination(req.Destination)
	if destination == "" {
		destination = domain.DestinationKitchen
	}

	lines := make([]domain.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		food := foods[item.FoodID]

		orderType := domain.OrderType(item.OrderType)
		if orderType == "" {
			orderType = domain.OrderTypeDineIn
		}

		lines = append(lines, domain.OrderLine{
			FoodID:    food.ID,
			Name:      food.Name,
			Price:     food.Price,
			Quantity:  item.Quantity,
			PrepNote:  strings.TrimSpace(item.PrepNote),
			OrderType: orderType,
		})
	}

	order := domain.Order{
		OrderNumber: s.newID(),
		Timestamp:   s.clock.Now(),
		WaiterName:  req.WaiterName,
		Destination: destination,
		Items:       lines,
	}

	s.logger.Debug("order built",
		zap.String("orderNumber", order.OrderNumber),
		zap.Int("totalItems", order.TotalItems()),
		zap.String("totalAmount", domain.FormatAmount(order.TotalAmount())),
	)
	return order, nil
}
