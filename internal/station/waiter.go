package station

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"comanda/internal/cart"
	"comanda/internal/domain"
	apperrors "comanda/internal/errors"
	"comanda/internal/httpx"
)

type MenuItem struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
}

type CartView struct {
	Destination    domain.Destination `json:"destination"`
	Items          []domain.OrderLine `json:"items"`
	TotalItems     int                `json:"totalItems"`
	Total          float64            `json:"total"`
	FormattedTotal string             `json:"formattedTotal"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type noteRequest struct {
	PrepNote string `json:"prepNote"`
}

type orderTypeRequest struct {
	OrderType string `json:"orderType"`
}

// WaiterView lets a waiter compose an order from the menu and submit it.
type WaiterView struct {
	backend Backend
	builder *cart.Builder
	logger  *zap.Logger

	mu   sync.Mutex
	menu []domain.Food
}

func NewWaiterView(sess domain.Session, backend Backend, logger *zap.Logger) *WaiterView {
	return &WaiterView{
		backend: backend,
		builder: cart.NewBuilder(backend, sess.Username, logger),
		logger:  logger,
	}
}

func (v *WaiterView) Capability() domain.Capability {
	return domain.CapabilityWaiterView
}

func (v *WaiterView) Routes(r chi.Router) {
	r.Get("/menu", v.getMenu)
	r.Get("/cart", v.getCart)
	r.Put("/cart/items/{foodId}", v.setQuantity)
	r.Put("/cart/items/{foodId}/note", v.setNote)
	r.Put("/cart/items/{foodId}/type", v.setOrderType)
	r.Put("/cart/destination", v.setDestination)
	r.Post("/cart/submit", v.submit)
}

func (v *WaiterView) Close() {
	v.builder.Close()
}

// Menu reloads the menu from the backend and pairs each food with the
// quantity already in the cart.
func (v *WaiterView) Menu(ctx context.Context) ([]MenuItem, error) {
	foods, err := v.backend.ListFoods(ctx)
	if err != nil {
		return nil, err
	}

	v.mu.Lock()
	v.menu = foods
	v.mu.Unlock()

	c := v.builder.Cart()
	items := make([]MenuItem, len(foods))
	for i, f := range foods {
		items[i] = MenuItem{
			ID:          f.ID,
			Name:        f.Name,
			Price:       f.Price,
			Description: f.Description,
			Quantity:    c.Quantity(f.ID),
		}
	}
	return items, nil
}

func (v *WaiterView) CartView() CartView {
	c := v.builder.Cart()
	return CartView{
		Destination:    v.builder.Destination(),
		Items:          c.Lines(),
		TotalItems:     c.TotalItems(),
		Total:          c.Total(),
		FormattedTotal: c.FormattedTotal(),
	}
}

func (v *WaiterView) food(ctx context.Context, id int64) (domain.Food, error) {
	if f, ok := v.cachedFood(id); ok {
		return f, nil
	}
	if _, err := v.Menu(ctx); err != nil {
		return domain.Food{}, err
	}
	if f, ok := v.cachedFood(id); ok {
		return f, nil
	}
	return domain.Food{}, apperrors.NewNotFoundError(fmt.Sprintf("food %d is not on the menu", id))
}

func (v *WaiterView) cachedFood(id int64) (domain.Food, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, f := range v.menu {
		if f.ID == id {
			return f, true
		}
	}
	return domain.Food{}, false
}

func (v *WaiterView) getMenu(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	items, err := v.Menu(r.Context())
	if err != nil {
		writeError(w, traceID, err, v.logger)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, items, v.logger)
}

func (v *WaiterView) getCart(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, v.CartView(), v.logger)
}

func (v *WaiterView) setQuantity(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	id, ok := v.parseFoodID(w, r, traceID)
	if !ok {
		return
	}
	var req quantityRequest
	if !httpx.DecodeJSON(w, r, traceID, &req, v.logger) {
		return
	}

	c := v.builder.Cart()
	var err error
	if req.Quantity == 0 {
		err = c.SetQuantity(domain.Food{ID: id}, 0)
	} else {
		var food domain.Food
		food, err = v.food(r.Context(), id)
		if err == nil {
			err = c.SetQuantity(food, req.Quantity)
		}
	}
	if err != nil {
		writeError(w, traceID, err, v.logger)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, v.CartView(), v.logger)
}

func (v *WaiterView) setNote(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	id, ok := v.parseFoodID(w, r, traceID)
	if !ok {
		return
	}
	var req noteRequest
	if !httpx.DecodeJSON(w, r, traceID, &req, v.logger) {
		return
	}

	v.builder.Cart().SetPrepNote(id, req.PrepNote)
	httpx.WriteJSON(w, http.StatusOK, v.CartView(), v.logger)
}

func (v *WaiterView) setOrderType(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	id, ok := v.parseFoodID(w, r, traceID)
	if !ok {
		return
	}
	var req orderTypeRequest
	if !httpx.DecodeJSON(w, r, traceID, &req, v.logger) {
		return
	}

	if err := v.builder.Cart().SetOrderType(id, domain.OrderType(req.OrderType)); err != nil {
		writeError(w, traceID, err, v.logger)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, v.CartView(), v.logger)
}

func (v *WaiterView) setDestination(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	var req destinationRequest
	if !httpx.DecodeJSON(w, r, traceID, &req, v.logger) {
		return
	}

	if err := v.builder.SetDestination(domain.Destination(req.Destination)); err != nil {
		writeError(w, traceID, err, v.logger)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, v.CartView(), v.logger)
}

func (v *WaiterView) submit(w http.ResponseWriter, r *http.Request) {
	traceID := httpx.NewTraceID()

	order, err := v.builder.Submit(r.Context())
	if err != nil {
		writeError(w, traceID, err, v.logger)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, order, v.logger)
}

func (v *WaiterView) parseFoodID(w http.ResponseWriter, r *http.Request, traceID string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "foodId"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteValidationError(w, traceID, "invalid food id", v.logger, apperrors.ValidationDetail{
			Field:   "foodId",
			Message: "foodId must be a positive integer",
		})
		return 0, false
	}
	return id, true
}
