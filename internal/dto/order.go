package dto

import "time"

type SubmitOrderRequest struct {
	WaiterName  string            `json:"waiterName"`
	Destination string            `json:"destination"`
	Items       []SubmitOrderItem `json:"items"`
}

type SubmitOrderItem struct {
	FoodID    int64  `json:"foodId"`
	Quantity  int    `json:"quantity"`
	PrepNote  string `json:"prepNote"`
	OrderType string `json:"orderType"`
}

type OrderLineDTO struct {
	FoodID    int64   `json:"foodId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	PrepNote  string  `json:"prepNote"`
	OrderType string  `json:"orderType"`
}

type SubmitOrderResponse struct {
	TraceID     string         `json:"traceId"`
	OrderNumber string         `json:"orderNumber"`
	Timestamp   time.Time      `json:"timestamp"`
	WaiterName  string         `json:"waiterName"`
	Destination string         `json:"destination"`
	Items       []OrderLineDTO `json:"items"`
	TotalItems  int            `json:"totalItems"`
	TotalAmount string         `json:"totalAmount"`
	Replayed    bool           `json:"replayed"`
}
