package app

import (
	"context"

	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/notify"
	pkgAuth "github.com/polkiloo/orderboard/internal/pkg/auth"
	"github.com/polkiloo/orderboard/internal/usecase"
)

// PaymentStatusSource reports the gateway-side state of a QR payment.
type PaymentStatusSource interface {
	Status(ctx context.Context, ref string) (*model.GatewayPayment, error)
}

// BoardFacade is the single entry point for HTTP handlers and the payment
// poller.
type BoardFacade struct {
	auth     *usecase.AuthUseCase
	orders   *usecase.OrderUseCase
	idem     *usecase.Idempotency
	payments PaymentStatusSource
	alerts   *notify.AlertBoard
}

func NewBoardFacade(auth *usecase.AuthUseCase, orders *usecase.OrderUseCase, idem *usecase.Idempotency, payments PaymentStatusSource, alerts *notify.AlertBoard) *BoardFacade {
	return &BoardFacade{auth: auth, orders: orders, idem: idem, payments: payments, alerts: alerts}
}

func (f *BoardFacade) Register(ctx context.Context, login, password string) (string, error) {
	_, token, err := f.auth.Register(ctx, login, password)
	return token, err
}

func (f *BoardFacade) Authenticate(ctx context.Context, login, password string) (string, error) {
	_, token, err := f.auth.Authenticate(ctx, login, password)
	return token, err
}

func (f *BoardFacade) AddStaff(ctx context.Context, actorID int64, login, password string, role model.Role) (*model.User, error) {
	return f.auth.AddStaff(ctx, actorID, login, password, role)
}

func (f *BoardFacade) ParseToken(token string) (pkgAuth.Claims, error) {
	return f.auth.ParseToken(token)
}

func (f *BoardFacade) PlaceOrder(ctx context.Context, in model.NewOrder) (*model.Order, error) {
	return f.orders.Place(ctx, in)
}

func (f *BoardFacade) Order(ctx context.Context, id string) (*model.Order, error) {
	return f.orders.Get(ctx, id)
}

func (f *BoardFacade) ActiveOrders(ctx context.Context) ([]model.Order, error) {
	return f.orders.ListActive(ctx)
}

func (f *BoardFacade) AddItems(ctx context.Context, id string, items []model.ItemLine) (*model.Order, error) {
	return f.orders.AddItems(ctx, id, items)
}

func (f *BoardFacade) UpdateItem(ctx context.Context, id string, itemID int64, quantity int) (*model.Order, error) {
	return f.orders.UpdateItemQuantity(ctx, id, itemID, quantity)
}

func (f *BoardFacade) MarkServed(ctx context.Context, id string) (*model.Order, error) {
	return f.orders.MarkServed(ctx, id)
}

// Pay settles an order from the counter. Orders that were never served are
// rejected with ErrNotServed; paying a paid order returns it unchanged.
func (f *BoardFacade) Pay(ctx context.Context, id, key string, req model.PaymentRequest) (*model.Order, error) {
	return f.idem.Do(ctx, "pay:"+id, key, func(ctx context.Context) (*model.Order, error) {
		current, err := f.orders.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if !current.IsPaid && !current.IsServed() {
			return nil, domainErrors.ErrNotServed
		}
		return f.orders.ProcessPayment(ctx, id, req)
	})
}

func (f *BoardFacade) Complete(ctx context.Context, id, key string) (*model.Order, error) {
	return f.idem.Do(ctx, "complete:"+id, key, func(ctx context.Context) (*model.Order, error) {
		return f.orders.Complete(ctx, id)
	})
}

func (f *BoardFacade) DeleteOrder(ctx context.Context, id string) error {
	return f.orders.Delete(ctx, id)
}

func (f *BoardFacade) CreateUPIIntent(ctx context.Context, id string) (*model.PaymentIntent, error) {
	return f.orders.CreateUPIIntent(ctx, id)
}

func (f *BoardFacade) PendingIntents(ctx context.Context, limit int) ([]model.PaymentIntent, error) {
	return f.orders.PendingIntents(ctx, limit)
}

func (f *BoardFacade) GatewayStatus(ctx context.Context, ref string) (*model.GatewayPayment, error) {
	return f.payments.Status(ctx, ref)
}

// ConfirmPayment applies a gateway-confirmed UPI payment.
func (f *BoardFacade) ConfirmPayment(ctx context.Context, orderID, transactionID string) error {
	_, err := f.orders.ProcessPayment(ctx, orderID, model.PaymentRequest{
		Method:        model.PaymentMethodUPI,
		TransactionID: transactionID,
	})
	return err
}

func (f *BoardFacade) ResolveIntent(ctx context.Context, id string, status model.PaymentIntentStatus) error {
	return f.orders.ResolveIntent(ctx, id, status)
}

func (f *BoardFacade) Alerts() []model.Alert {
	return f.alerts.List()
}

func (f *BoardFacade) AckAlert(id string) (model.Alert, error) {
	return f.alerts.Ack(id)
}

func (f *BoardFacade) OpenAlert(ctx context.Context, data model.PushData) (*model.Order, []model.Alert, error) {
	return f.alerts.Open(ctx, data)
}

func (f *BoardFacade) WatchAlerts() (<-chan notify.StreamEvent, func()) {
	return f.alerts.Watch()
}
