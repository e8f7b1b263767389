package controller

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"comanda/internal/auth"
	"comanda/internal/domain"
	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
	"comanda/internal/httpx"
)

const (
	IdempotencyHeader    = "Idempotency-Key"
	maxIdempotencyKeyLen = 128
	maxQuantity          = 10000
)

type SubmitOrderUseCase interface {
	SubmitOrder(ctx context.Context, req dto.SubmitOrderRequest, idempotencyKey string) (domain.Order, bool, error)
}

type SubmitOrderController struct {
	useCase  SubmitOrderUseCase
	maxItems int
	logger   *zap.Logger
}

func NewSubmitOrderController(useCase SubmitOrderUseCase, maxItems int, logger *zap.Logger) *SubmitOrderController {
	return &SubmitOrderController{
		useCase:  useCase,
		maxItems: maxItems,
		logger:   logger,
	}
}

func (c *SubmitOrderController) Submit(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	// Decode request body
	var req dto.SubmitOrderRequest
	if !httpx.DecodeJSON(w, r, traceID, &req, logger) {
		return
	}

	// Default the waiter to the caller
	req.WaiterName = strings.TrimSpace(req.WaiterName)
	if req.WaiterName == "" {
		if sess, ok := auth.SessionFrom(r.Context()); ok {
			req.WaiterName = sess.Username
		}
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))

	// Validate request
	if validationErr := c.validateSubmitOrderRequest(req, key); validationErr != nil {
		ve, _ := apperrors.IsValidationError(validationErr)
		httpx.WriteValidationError(w, traceID, ve.Message, logger, ve.Details...)
		return
	}

	// Call use case
	order, replayed, err := c.useCase.SubmitOrder(r.Context(), req, key)
	if err != nil {
		httpx.WriteError(w, traceID, err, logger)
		return
	}

	// A replayed key answers 200 with the original order
	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	httpx.WriteJSON(w, status, toSubmitOrderResponse(traceID, order, replayed), logger)
}

func (c *SubmitOrderController) validateSubmitOrderRequest(req dto.SubmitOrderRequest, key string) error {
	var details []apperrors.ValidationDetail

	if len(key) > maxIdempotencyKeyLen {
		details = append(details, apperrors.ValidationDetail{
			Field:   IdempotencyHeader,
			Message: "idempotency key must be at most 128 characters",
		})
	}

	if req.WaiterName == "" {
		details = append(details, apperrors.ValidationDetail{
			Field:   "waiterName",
			Message: "waiterName is required",
		})
	}

	if req.Destination != "" && !domain.Destination(req.Destination).Valid() {
		details = append(details, apperrors.ValidationDetail{
			Field:   "destination",
			Message: "destination must be kitchen or butcher",
		})
	}

	if len(req.Items) == 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "items",
			Message: "items must not be empty",
		})
	}

	// Validate items length <= maxItems
	if len(req.Items) > c.maxItems {
		details = append(details, apperrors.ValidationDetail{
			Field:   "items",
			Message: "items exceeds maximum of " + strconv.Itoa(c.maxItems),
		})
	}

	// Validate each item
	foodIDs := make(map[int64]bool)

	for idx, item := range req.Items {
		prefix := "items[" + strconv.Itoa(idx) + "]"

		if item.FoodID <= 0 {
			details = append(details, apperrors.ValidationDetail{
				Field:   prefix + ".foodId",
				Message: "each foodId must be a positive integer",
			})
		}

		if foodIDs[item.FoodID] {
			details = append(details, apperrors.ValidationDetail{
				Field:   prefix + ".foodId",
				Message: "foodId must not be duplicated",
			})
		}
		foodIDs[item.FoodID] = true

		if item.Quantity < 1 || item.Quantity > maxQuantity {
			details = append(details, apperrors.ValidationDetail{
				Field:   prefix + ".quantity",
				Message: "quantity must be between 1 and 10000",
			})
		}

		if item.OrderType != "" && !domain.OrderType(item.OrderType).Valid() {
			details = append(details, apperrors.ValidationDetail{
				Field:   prefix + ".orderType",
				Message: "orderType must be dine-in or takeaway",
			})
		}
	}

	if len(details) > 0 {
		return apperrors.NewValidationError("validation failed", details...)
	}

	return nil
}

func toSubmitOrderResponse(traceID string, order domain.Order, replayed bool) dto.SubmitOrderResponse {
	items := make([]dto.OrderLineDTO, len(order.Items))
	for i, line := range order.Items {
		items[i] = dto.OrderLineDTO{
			FoodID:    line.FoodID,
			Name:      line.Name,
			Price:     line.Price,
			Quantity:  line.Quantity,
			PrepNote:  line.PrepNote,
			OrderType: string(line.OrderType),
		}
	}

	return dto.SubmitOrderResponse{
		TraceID:     traceID,
		OrderNumber: order.OrderNumber,
		Timestamp:   order.Timestamp,
		WaiterName:  order.WaiterName,
		Destination: string(order.Destination),
		Items:       items,
		TotalItems:  order.TotalItems(),
		TotalAmount: domain.FormatAmount(order.TotalAmount()),
		Replayed:    replayed,
	}
}
