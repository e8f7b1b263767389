package cart

import (
	"fmt"
	"sync"

	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
)

// Cart collects the lines of one order while a waiter composes it. Lines
// never hold a zero quantity.
type Cart struct {
	mu    sync.Mutex
	lines map[int64]*domain.OrderLine
	order []int64
	// version counts mutations.
	version uint64
}

func New() *Cart {
	return &Cart{lines: make(map[int64]*domain.OrderLine)}
}

// SetQuantity removes the line for n == 0 and otherwise upserts it, keeping
// any note and type already set. New lines start as dine-in with no note.
func (c *Cart) SetQuantity(food domain.Food, n int) error {
	if n < 0 {
		return apperrors.NewValidationError("invalid quantity", apperrors.ValidationDetail{
			Field:   "quantity",
			Message: "quantity must not be negative",
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if n == 0 {
		c.removeLocked(food.ID)
		return nil
	}

	if line, ok := c.lines[food.ID]; ok {
		if line.Quantity != n {
			line.Quantity = n
			c.version++
		}
		return nil
	}

	c.lines[food.ID] = &domain.OrderLine{
		FoodID:    food.ID,
		Name:      food.Name,
		Price:     food.Price,
		Quantity:  n,
		PrepNote:  "",
		OrderType: domain.OrderTypeDineIn,
	}
	c.order = append(c.order, food.ID)
	c.version++
	return nil
}

// SetPrepNote does nothing for items not in the cart.
func (c *Cart) SetPrepNote(foodID int64, note string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if line, ok := c.lines[foodID]; ok && line.PrepNote != note {
		line.PrepNote = note
		c.version++
	}
}

// SetOrderType does nothing for items not in the cart.
func (c *Cart) SetOrderType(foodID int64, t domain.OrderType) error {
	if !t.Valid() {
		return apperrors.NewValidationError("invalid order type", apperrors.ValidationDetail{
			Field:   "orderType",
			Message: fmt.Sprintf("orderType must be %s or %s", domain.OrderTypeDineIn, domain.OrderTypeTakeaway),
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if line, ok := c.lines[foodID]; ok && line.OrderType != t {
		line.OrderType = t
		c.version++
	}
	return nil
}

func (c *Cart) Quantity(foodID int64) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if line, ok := c.lines[foodID]; ok {
		return line.Quantity
	}
	return 0
}

func (c *Cart) Contains(foodID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.lines[foodID]
	return ok
}

// Lines returns copies of the lines in the order they were first added.
func (c *Cart) Lines() []domain.OrderLine {
	lines, _ := c.Snapshot()
	return lines
}

// Snapshot returns the lines together with the version they were read at.
func (c *Cart) Snapshot() ([]domain.OrderLine, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.OrderLine, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, *c.lines[id])
	}
	return out, c.version
}

func (c *Cart) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// RemoveUnchanged drops each of lines still held exactly as given. Lines
// added or edited since keep their current content.
func (c *Cart) RemoveUnchanged(lines []domain.OrderLine) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, l := range lines {
		if cur, ok := c.lines[l.FoodID]; ok && *cur == l {
			c.removeLocked(l.FoodID)
		}
	}
}

func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.order)
}

func (c *Cart) TotalItems() int {
	return domain.Order{Items: c.Lines()}.TotalItems()
}

func (c *Cart) Total() float64 {
	return domain.Order{Items: c.Lines()}.TotalAmount()
}

func (c *Cart) FormattedTotal() string {
	return domain.FormatAmount(c.Total())
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = make(map[int64]*domain.OrderLine)
	c.order = nil
	c.version++
}

func (c *Cart) removeLocked(foodID int64) {
	if _, ok := c.lines[foodID]; !ok {
		return
	}
	delete(c.lines, foodID)
	c.version++
	for i, id := range c.order {
		if id == foodID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
