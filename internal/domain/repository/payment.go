package repository

import (
	"context"

	"github.com/polkiloo/orderboard/internal/domain/model"
)

// PaymentRepository persists payments and QR payment intents.
type PaymentRepository interface {
	// RecordPayment stores the payment and flips is_paid in one transaction.
	// applied is false when the order was already paid.
	RecordPayment(ctx context.Context, payment model.Payment) (order *model.Order, applied bool, err error)
	CreateIntent(ctx context.Context, intent model.PaymentIntent) (*model.PaymentIntent, error)
	PendingIntents(ctx context.Context, limit int) ([]model.PaymentIntent, error)
	ResolveIntent(ctx context.Context, id string, status model.PaymentIntentStatus) error
}

// InventoryRepository adjusts stock levels keyed by item name.
type InventoryRepository interface {
	Deduct(ctx context.Context, itemName string, quantity int) error
}
