package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemRequest is one ordered line.
type ItemRequest struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// CreateOrderRequest is the payload of POST /api/orders.
type CreateOrderRequest struct {
	Number  string        `json:"number"`
	TableID *int64        `json:"tableId"`
	Items   []ItemRequest `json:"items"`
}

// AddItemsRequest is the payload of POST /api/orders/:id/items.
type AddItemsRequest struct {
	Items []ItemRequest `json:"items"`
}

// UpdateItemRequest is the payload of PATCH /api/orders/:id/items/:itemId.
type UpdateItemRequest struct {
	Quantity *int `json:"quantity"`
}

// ItemResponse describes an order line.
type ItemResponse struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// PaymentInfoResponse describes how an order was paid.
type PaymentInfoResponse struct {
	Method        string    `json:"method"`
	TransactionID string    `json:"transactionId,omitempty"`
	PaidAt        time.Time `json:"paidAt"`
}

// OrderResponse describes an order.
type OrderResponse struct {
	ID          string               `json:"id"`
	Number      string               `json:"number"`
	TableID     *int64               `json:"tableId,omitempty"`
	Status      string               `json:"status"`
	Served      bool                 `json:"served"`
	IsPaid      bool                 `json:"isPaid"`
	TotalAmount decimal.Decimal      `json:"totalAmount"`
	Items       []ItemResponse       `json:"items"`
	Payment     *PaymentInfoResponse `json:"payment,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
	ServedAt    *time.Time           `json:"servedAt,omitempty"`
	CompletedAt *time.Time           `json:"completedAt,omitempty"`
}
