package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemRow is an order_items row as delivered by the change feed.
type ItemRow struct {
	ID        int64           `json:"id"`
	OrderID   string          `json:"order_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Initial   *bool           `json:"is_initial"`
	CreatedAt time.Time       `json:"created_at"`
}

// Line converts the row into an ItemLine.
func (r ItemRow) Line() ItemLine {
	line := ItemLine{ID: r.ID, Name: r.Name, Quantity: r.Quantity, UnitPrice: r.UnitPrice, CreatedAt: r.CreatedAt}
	if r.Initial != nil {
		line.Initial = *r.Initial
	}
	return line
}

// OrderRow is an orders row as delivered by the change feed.
type OrderRow struct {
	ID        string      `json:"id"`
	Number    string      `json:"number"`
	Status    OrderStatus `json:"status"`
	IsPaid    bool        `json:"is_paid"`
	CreatedAt time.Time   `json:"created_at"`
}

// OrderEvent is a lifecycle fact published to downstream consumers.
type OrderEvent struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OrderID    string          `json:"orderId"`
	Number     string          `json:"number"`
	Status     OrderStatus     `json:"status"`
	IsPaid     bool            `json:"isPaid"`
	Total      decimal.Decimal `json:"total"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// Order event types.
const (
	EventOrderPlaced     = "order.placed"
	EventOrderServed     = "order.served"
	EventOrderPaid       = "order.paid"
	EventOrderCompleted  = "order.completed"
	EventOrderItemsAdded = "order.items_added"
	EventOrderItemUpdate = "order.item_updated"
	EventOrderDeleted    = "order.deleted"
)
