package notify

import (
	"context"
	"time"

	"github.com/polkiloo/orderboard/internal/clock"
	"github.com/polkiloo/orderboard/internal/domain/model"
)

// DefaultNewOrderWindow is the order age up to which an inserted item is
// treated as part of the initial placement. It is a heuristic: a slow first
// item insert can be misread as an addition.
const DefaultNewOrderWindow = time.Second

// Kind is the classification of an inserted item.
type Kind int

const (
	// KindNewOrder items belong to the order's initial placement.
	KindNewOrder Kind = iota
	// KindAddition items were added to an existing order.
	KindAddition
)

func (k Kind) String() string {
	if k == KindNewOrder {
		return string(model.NotificationNewOrder)
	}
	return string(model.NotificationOrderUpdate)
}

// OrderAges looks up an order's creation time.
type OrderAges interface {
	CreatedAt(ctx context.Context, id string) (time.Time, error)
}

// Classifier decides whether an item insert is part of a new order.
type Classifier struct {
	clock    clock.Clock
	window   time.Duration
	orders   OrderAges
	byMarker bool
}

// NewClassifier builds an age-based classifier. With byMarker set, items
// carrying an explicit initial-batch marker are classified by it and the age
// check is only a fallback for rows without one.
func NewClassifier(clk clock.Clock, orders OrderAges, window time.Duration, byMarker bool) *Classifier {
	if window <= 0 {
		window = DefaultNewOrderWindow
	}
	return &Classifier{clock: clk, window: window, orders: orders, byMarker: byMarker}
}

// Classify fetches the parent order's creation time on every call.
func (c *Classifier) Classify(ctx context.Context, item model.ItemRow) (Kind, error) {
	if c.byMarker && item.Initial != nil {
		if *item.Initial {
			return KindNewOrder, nil
		}
		return KindAddition, nil
	}

	createdAt, err := c.orders.CreatedAt(ctx, item.OrderID)
	if err != nil {
		return KindAddition, err
	}
	if c.clock.Now().Sub(createdAt) <= c.window {
		return KindNewOrder, nil
	}
	return KindAddition, nil
}
