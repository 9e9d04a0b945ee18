package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus describes where an order is in the kitchen/front-of-house flow.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusServed    OrderStatus = "served"
	OrderStatusCompleted OrderStatus = "completed"
)

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusReady, OrderStatusServed, OrderStatusCompleted:
		return true
	}
	return false
}

// ItemLine is a single ordered menu item. Name is the join key to the menu
// and inventory.
type ItemLine struct {
	ID        int64           `json:"id,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Initial   bool            `json:"-"`
	CreatedAt time.Time       `json:"createdAt,omitempty"`
}

// Subtotal returns unit price times quantity.
func (l ItemLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Valid reports whether the line can be persisted.
func (l ItemLine) Valid() bool {
	return l.Name != "" && l.Quantity > 0 && !l.UnitPrice.IsNegative()
}

// Total sums line subtotals.
func Total(lines []ItemLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// PaymentInfo is the payment metadata stamped on a paid order.
type PaymentInfo struct {
	Method        PaymentMethod `json:"method"`
	TransactionID string        `json:"transactionId,omitempty"`
	PaidAt        time.Time     `json:"paidAt"`
}

// Order is the store-owned order aggregate. In-memory copies are snapshots and
// are replaced by the next read after a write.
type Order struct {
	ID          string          `json:"id"`
	Number      string          `json:"number"`
	TableID     *int64          `json:"tableId,omitempty"`
	Items       []ItemLine      `json:"items"`
	Status      OrderStatus     `json:"status"`
	Served      bool            `json:"served"`
	IsPaid      bool            `json:"isPaid"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CreatedAt   time.Time       `json:"createdAt"`
	ServedAt    *time.Time      `json:"servedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Payment     *PaymentInfo    `json:"payment,omitempty"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// IsServed is true once staff actioned the order.
func (o Order) IsServed() bool {
	if o.Served {
		return true
	}
	switch o.Status {
	case OrderStatusReady, OrderStatusServed, OrderStatusCompleted:
		return true
	}
	return false
}

// IsCompleted reports the terminal state.
func (o Order) IsCompleted() bool {
	return o.Status == OrderStatusCompleted
}

// IsTakeaway reports whether the order has no table.
func (o Order) IsTakeaway() bool {
	return o.TableID == nil
}

// NewOrder is the input for placing an order.
type NewOrder struct {
	Number  string
	TableID *int64
	Items   []ItemLine
}

// TableStatus describes restaurant table occupancy.
type TableStatus string

const (
	TableStatusAvailable TableStatus = "available"
	TableStatusOccupied  TableStatus = "occupied"
)
