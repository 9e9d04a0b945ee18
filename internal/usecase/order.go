package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"

	"github.com/polkiloo/orderboard/internal/clock"
	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/domain/repository"
	"github.com/polkiloo/orderboard/internal/metrics"
)

// EventPublisher forwards lifecycle facts to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.OrderEvent) error
}

// PaymentGateway registers QR payment requests.
type PaymentGateway interface {
	CreateRequest(ctx context.Context, orderID string, amount decimal.Decimal) (*model.GatewayPayment, error)
}

// OrderOptions toggles optional lifecycle behavior.
type OrderOptions struct {
	// CompleteOnPayment completes a served order as soon as it is paid.
	CompleteOnPayment bool
}

// OrderDeps are the collaborators of OrderUseCase.
type OrderDeps struct {
	fx.In

	Orders    repository.OrderRepository
	Payments  repository.PaymentRepository
	Inventory repository.InventoryRepository
	Events    EventPublisher
	Gateway   PaymentGateway
	Clock     clock.Clock
	Logger    *slog.Logger
	Options   OrderOptions
}

// OrderUseCase encapsulates order lifecycle logic. Transitions are checked
// against a fresh snapshot and applied through guarded store writes, so a
// repeated call is a no-op that returns the current order.
type OrderUseCase struct {
	orders    repository.OrderRepository
	payments  repository.PaymentRepository
	inventory repository.InventoryRepository
	events    EventPublisher
	gateway   PaymentGateway
	clock     clock.Clock
	logger    *slog.Logger
	opts      OrderOptions
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(d OrderDeps) *OrderUseCase {
	return &OrderUseCase{
		orders:    d.Orders,
		payments:  d.Payments,
		inventory: d.Inventory,
		events:    d.Events,
		gateway:   d.Gateway,
		clock:     d.Clock,
		logger:    d.Logger,
		opts:      d.Options,
	}
}

// Place creates an order with its initial items.
func (u *OrderUseCase) Place(ctx context.Context, in model.NewOrder) (*model.Order, error) {
	in.Number = strings.TrimSpace(in.Number)
	if len(in.Items) == 0 {
		u.record(model.TransitionPlace, domainErrors.ErrInvalidItem)
		return nil, domainErrors.ErrInvalidItem
	}
	if err := validateItems(in.Items); err != nil {
		u.record(model.TransitionPlace, err)
		return nil, err
	}

	order, err := u.orders.Create(ctx, in)
	if err != nil {
		u.record(model.TransitionPlace, err)
		return nil, err
	}
	u.record(model.TransitionPlace, nil)
	u.publish(ctx, model.EventOrderPlaced, order)
	return order, nil
}

// Get returns a single order.
func (u *OrderUseCase) Get(ctx context.Context, id string) (*model.Order, error) {
	return u.orders.Get(ctx, id)
}

// ListActive returns orders that are not completed, newest first.
func (u *OrderUseCase) ListActive(ctx context.Context) ([]model.Order, error) {
	return u.orders.ListActive(ctx)
}

// MarkServed moves a pending order to served.
func (u *OrderUseCase) MarkServed(ctx context.Context, id string) (*model.Order, error) {
	current, err := u.checked(ctx, id, model.TransitionServe)
	if err != nil {
		return nil, err
	}
	if current.IsServed() {
		u.noop(model.TransitionServe)
		return current, nil
	}

	order, applied, err := u.orders.MarkServed(ctx, id)
	if err != nil {
		u.record(model.TransitionServe, err)
		return nil, err
	}
	if !applied {
		u.noop(model.TransitionServe)
		return order, nil
	}
	u.record(model.TransitionServe, nil)
	u.publish(ctx, model.EventOrderServed, order)
	return order, nil
}

// ProcessPayment records the payment, deducts stock for every line and
// optionally completes the order. A second payment for a paid order changes
// nothing. Stock deduction failures are logged and never undo the payment.
func (u *OrderUseCase) ProcessPayment(ctx context.Context, id string, req model.PaymentRequest) (*model.Order, error) {
	if !req.Method.Valid() || req.Amount.IsNegative() {
		u.record(model.TransitionPay, domainErrors.ErrInvalidPayment)
		return nil, domainErrors.ErrInvalidPayment
	}
	current, err := u.checked(ctx, id, model.TransitionPay)
	if err != nil {
		return nil, err
	}
	if current.IsPaid {
		u.noop(model.TransitionPay)
		return current, nil
	}

	order, applied, err := u.payments.RecordPayment(ctx, model.Payment{
		OrderID:       id,
		Method:        req.Method,
		TransactionID: strings.TrimSpace(req.TransactionID),
		Amount:        req.Amount,
		PaidAt:        u.clock.Now(),
	})
	if err != nil {
		u.record(model.TransitionPay, err)
		return nil, err
	}
	if !applied {
		u.noop(model.TransitionPay)
		return order, nil
	}
	u.record(model.TransitionPay, nil)

	u.deductInventory(ctx, order.ID, order.Items)
	u.publish(ctx, model.EventOrderPaid, order)

	if u.opts.CompleteOnPayment && order.IsServed() && !order.IsCompleted() {
		completed, err := u.complete(ctx, order.ID)
		if err != nil {
			u.logger.Warn("complete after payment failed",
				slog.String("order_id", order.ID), slog.Any("error", err))
			return order, nil
		}
		return completed, nil
	}
	return order, nil
}

func (u *OrderUseCase) deductInventory(ctx context.Context, orderID string, lines []model.ItemLine) {
	for _, line := range lines {
		if err := u.inventory.Deduct(ctx, line.Name, line.Quantity); err != nil {
			u.logger.Warn("inventory deduction failed",
				slog.String("order_id", orderID),
				slog.String("item", line.Name),
				slog.Int("quantity", line.Quantity),
				slog.Any("error", err))
		}
	}
}

// Complete closes a served and paid order and releases its table.
// Completing a completed order returns it unchanged.
func (u *OrderUseCase) Complete(ctx context.Context, id string) (*model.Order, error) {
	current, err := u.checked(ctx, id, model.TransitionComplete)
	if err != nil {
		return nil, err
	}
	if current.IsCompleted() {
		u.noop(model.TransitionComplete)
		return current, nil
	}
	return u.complete(ctx, id)
}

func (u *OrderUseCase) complete(ctx context.Context, id string) (*model.Order, error) {
	order, applied, err := u.orders.Complete(ctx, id, u.clock.Now())
	if err != nil {
		u.record(model.TransitionComplete, err)
		return nil, err
	}
	if !applied {
		// The order may have gone back to the kitchen since it was read.
		if err := order.Check(model.TransitionComplete); err != nil {
			u.record(model.TransitionComplete, err)
			return nil, err
		}
		u.noop(model.TransitionComplete)
		return order, nil
	}
	u.record(model.TransitionComplete, nil)
	u.publish(ctx, model.EventOrderCompleted, order)
	return order, nil
}

// AddItems appends items to an order. Actioned orders go back to pending so
// the new items re-enter the kitchen queue. Lines added after payment are
// deducted from stock right away.
func (u *OrderUseCase) AddItems(ctx context.Context, id string, items []model.ItemLine) (*model.Order, error) {
	if len(items) == 0 {
		u.record(model.TransitionAddItems, domainErrors.ErrInvalidItem)
		return nil, domainErrors.ErrInvalidItem
	}
	if err := validateItems(items); err != nil {
		u.record(model.TransitionAddItems, err)
		return nil, err
	}
	current, err := u.checked(ctx, id, model.TransitionAddItems)
	if err != nil {
		return nil, err
	}

	order, err := u.orders.AddItems(ctx, id, items)
	if err != nil {
		u.record(model.TransitionAddItems, err)
		return nil, err
	}
	if current.RevertsOnAdd() {
		u.logger.Info("order returned to kitchen",
			slog.String("order_id", id), slog.String("from", string(current.Status)))
	}
	if current.IsPaid {
		// Payment is recorded once per order, so late lines are settled
		// outside the board. Stock still has to follow the kitchen.
		u.deductInventory(ctx, id, items)
		u.logger.Warn("items added to a paid order",
			slog.String("order_id", id),
			slog.String("unpaid_amount", model.Total(items).StringFixed(2)))
	}
	u.record(model.TransitionAddItems, nil)
	u.publish(ctx, model.EventOrderItemsAdded, order)
	return order, nil
}

// UpdateItemQuantity changes a line's quantity. A quantity of zero or less
// removes the line.
func (u *OrderUseCase) UpdateItemQuantity(ctx context.Context, id string, itemID int64, quantity int) (*model.Order, error) {
	if _, err := u.checked(ctx, id, model.TransitionUpdateItem); err != nil {
		return nil, err
	}
	order, err := u.orders.SetItemQuantity(ctx, id, itemID, quantity)
	if err != nil {
		u.record(model.TransitionUpdateItem, err)
		return nil, err
	}
	u.record(model.TransitionUpdateItem, nil)
	u.publish(ctx, model.EventOrderItemUpdate, order)
	return order, nil
}

// Delete removes a non-completed order and frees its table. Stock already
// deducted is not restored.
func (u *OrderUseCase) Delete(ctx context.Context, id string) error {
	current, err := u.checked(ctx, id, model.TransitionDelete)
	if err != nil {
		return err
	}
	if err := u.orders.Delete(ctx, id); err != nil {
		u.record(model.TransitionDelete, err)
		return err
	}
	u.record(model.TransitionDelete, nil)
	u.publish(ctx, model.EventOrderDeleted, current)
	return nil
}

// CreateUPIIntent registers a QR payment for the order total with the
// gateway. The payment poller settles it.
func (u *OrderUseCase) CreateUPIIntent(ctx context.Context, id string) (*model.PaymentIntent, error) {
	order, err := u.orders.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.IsPaid || order.IsCompleted() {
		return nil, domainErrors.ErrInvalidTransition
	}
	if !order.TotalAmount.IsPositive() {
		return nil, domainErrors.ErrInvalidPayment
	}

	gw, err := u.gateway.CreateRequest(ctx, order.ID, order.TotalAmount)
	if err != nil {
		return nil, err
	}
	return u.payments.CreateIntent(ctx, model.PaymentIntent{
		ID:         uuid.NewString(),
		OrderID:    order.ID,
		GatewayRef: gw.Reference,
		QRPayload:  gw.QRPayload,
		Amount:     order.TotalAmount,
		Status:     model.PaymentIntentPending,
	})
}

// PendingIntents claims a batch of unsettled payment intents.
func (u *OrderUseCase) PendingIntents(ctx context.Context, limit int) ([]model.PaymentIntent, error) {
	return u.payments.PendingIntents(ctx, limit)
}

// ResolveIntent stores the final gateway status of an intent.
func (u *OrderUseCase) ResolveIntent(ctx context.Context, id string, status model.PaymentIntentStatus) error {
	return u.payments.ResolveIntent(ctx, id, status)
}

func (u *OrderUseCase) checked(ctx context.Context, id string, t model.Transition) (*model.Order, error) {
	order, err := u.orders.Get(ctx, id)
	if err != nil {
		u.record(t, err)
		return nil, err
	}
	if err := order.Check(t); err != nil {
		u.record(t, err)
		return nil, err
	}
	return order, nil
}

func (u *OrderUseCase) record(t model.Transition, err error) {
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeFailed
	}
	metrics.Transition(string(t), outcome)
}

func (u *OrderUseCase) noop(t model.Transition) {
	metrics.Transition(string(t), metrics.OutcomeNoop)
}

func (u *OrderUseCase) publish(ctx context.Context, eventType string, order *model.Order) {
	if u.events == nil || order == nil {
		return
	}
	ev := model.OrderEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		OrderID:    order.ID,
		Number:     order.Number,
		Status:     order.Status,
		IsPaid:     order.IsPaid,
		Total:      order.TotalAmount,
		OccurredAt: u.clock.Now(),
	}
	if err := u.events.Publish(ctx, ev); err != nil {
		u.logger.Warn("order event publish failed",
			slog.String("type", eventType),
			slog.String("order_id", order.ID),
			slog.Any("error", err))
	}
}

func validateItems(items []model.ItemLine) error {
	for _, item := range items {
		if !item.Valid() {
			return domainErrors.ErrInvalidItem
		}
	}
	return nil
}
