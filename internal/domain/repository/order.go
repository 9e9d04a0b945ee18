package repository

import (
	"context"
	"time"

	"github.com/polkiloo/orderboard/internal/domain/model"
)

// OrderRepository describes persistence operations with orders and their items.
// Mutating calls return the order as re-read after the write.
type OrderRepository interface {
	Create(ctx context.Context, order model.NewOrder) (*model.Order, error)
	Get(ctx context.Context, id string) (*model.Order, error)
	ListActive(ctx context.Context) ([]model.Order, error)
	CreatedAt(ctx context.Context, id string) (time.Time, error)
	AddItems(ctx context.Context, id string, items []model.ItemLine) (*model.Order, error)
	SetItemQuantity(ctx context.Context, orderID string, itemID int64, quantity int) (*model.Order, error)
	// MarkServed reports whether the row changed.
	MarkServed(ctx context.Context, id string) (*model.Order, bool, error)
	// Complete marks the order completed and releases its table. It reports
	// whether the row changed.
	Complete(ctx context.Context, id string, at time.Time) (*model.Order, bool, error)
	Delete(ctx context.Context, id string) error
}
