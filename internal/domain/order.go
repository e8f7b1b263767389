package domain

import (
	"fmt"
	"time"
)

type Destination string

const (
	DestinationKitchen Destination = "kitchen"
	DestinationButcher Destination = "butcher"
)

func (d Destination) Valid() bool {
	return d == DestinationKitchen || d == DestinationButcher
}

type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine-in"
	OrderTypeTakeaway OrderType = "takeaway"
)

func (t OrderType) Valid() bool {
	return t == OrderTypeDineIn || t == OrderTypeTakeaway
}

// Order is the payload broadcast to the admin group once a waiter submits a
// cart. OrderNumber is assigned by the backend and unique per feed.
type Order struct {
	OrderNumber string      `json:"orderNumber"`
	Timestamp   time.Time   `json:"timestamp"`
	WaiterName  string      `json:"waiterName"`
	Destination Destination `json:"destination"`
	Items       []OrderLine `json:"items"`
}

// OrderLine holds a copy of the menu item's name and price taken when the
// line was added, not a live reference.
type OrderLine struct {
	FoodID    int64     `json:"foodId"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	PrepNote  string    `json:"prepNote"`
	OrderType OrderType `json:"orderType"`
}

func (l OrderLine) Subtotal() float64 {
	return l.Price * float64(l.Quantity)
}

func (o Order) TotalItems() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

func (o Order) TotalAmount() float64 {
	total := 0.0
	for _, item := range o.Items {
		total += item.Subtotal()
	}
	return total
}

// FormatAmount renders a currency amount with exactly two decimals.
func FormatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

// Clone returns a deep copy so feed consumers cannot mutate stored lines.
func (o Order) Clone() Order {
	c := o
	c.Items = make([]OrderLine, len(o.Items))
	copy(c.Items, o.Items)
	return c
}
