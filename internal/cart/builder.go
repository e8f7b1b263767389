package cart

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
)

// Submitter sends a composed order to the backend. The idempotency key lets
// the backend collapse a retried submission.
type Submitter interface {
	SubmitOrder(ctx context.Context, req dto.SubmitOrderRequest, idempotencyKey string) (domain.Order, error)
}

// Builder owns the cart of one order-entry view.
type Builder struct {
	cart       *Cart
	submitter  Submitter
	waiterName string
	logger     *zap.Logger

	mu          sync.Mutex
	destination domain.Destination
	submitting  bool
	closed      bool

	// The idempotency key of the last unconfirmed submission, valid while
	// the cart version and destination it was made for are unchanged.
	pendingKey     string
	pendingVersion uint64
	pendingDest    domain.Destination
}

func NewBuilder(submitter Submitter, waiterName string, logger *zap.Logger) *Builder {
	return &Builder{
		cart:        New(),
		submitter:   submitter,
		waiterName:  waiterName,
		logger:      logger,
		destination: domain.DestinationKitchen,
	}
}

func (b *Builder) Cart() *Cart {
	return b.cart
}

func (b *Builder) Destination() domain.Destination {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destination
}

func (b *Builder) SetDestination(dest domain.Destination) error {
	if !dest.Valid() {
		return apperrors.NewValidationError("invalid destination", apperrors.ValidationDetail{
			Field:   "destination",
			Message: "destination must be kitchen or butcher",
		})
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.destination = dest
	return nil
}

// Submit sends the cart as a new order. Retrying an unchanged cart after a
// failure reuses the previous idempotency key. On success the submitted lines
// leave the cart; on failure it is left as it was.
func (b *Builder) Submit(ctx context.Context) (domain.Order, error) {
	lines, version := b.cart.Snapshot()
	if len(lines) == 0 {
		return domain.Order{}, apperrors.NewValidationError("cart is empty", apperrors.ValidationDetail{
			Field:   "items",
			Message: "items must not be empty",
		})
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return domain.Order{}, apperrors.NewConflictError("order builder closed")
	}
	if b.submitting {
		b.mu.Unlock()
		return domain.Order{}, apperrors.NewConflictError("order submission already in progress")
	}
	b.submitting = true
	dest := b.destination
	if b.pendingKey == "" || b.pendingVersion != version || b.pendingDest != dest {
		b.pendingKey = uuid.NewString()
		b.pendingVersion = version
		b.pendingDest = dest
	}
	key := b.pendingKey
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.submitting = false
		b.mu.Unlock()
	}()

	req := dto.SubmitOrderRequest{
		WaiterName:  b.waiterName,
		Destination: string(dest),
		Items:       make([]dto.SubmitOrderItem, len(lines)),
	}
	for i, l := range lines {
		req.Items[i] = dto.SubmitOrderItem{
			FoodID:    l.FoodID,
			Quantity:  l.Quantity,
			PrepNote:  l.PrepNote,
			OrderType: string(l.OrderType),
		}
	}

	order, err := b.submitter.SubmitOrder(ctx, req, key)
	if err != nil {
		b.logger.Warn("order submission failed", zap.String("idempotencyKey", key), zap.Error(err))
		return domain.Order{}, err
	}

	b.mu.Lock()
	closed := b.closed
	b.pendingKey = ""
	b.mu.Unlock()
	if closed {
		b.logger.Debug("order accepted after builder closed", zap.String("orderNumber", order.OrderNumber))
		return order, nil
	}

	b.cart.RemoveUnchanged(lines)
	b.logger.Info("order submitted", zap.String("orderNumber", order.OrderNumber), zap.Int("lines", len(lines)))
	return order, nil
}

// Close discards the cart. A submission completing afterwards leaves the
// discarded cart untouched.
func (b *Builder) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}
