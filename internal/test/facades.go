package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/notify"
	pkgAuth "github.com/polkiloo/orderboard/internal/pkg/auth"
)

// AuthFacadeStub simulates authentication facade interactions.
type AuthFacadeStub struct {
	RegisterFn     func(context.Context, string, string) (string, error)
	AuthenticateFn func(context.Context, string, string) (string, error)
	ParseFn        func(string) (pkgAuth.Claims, error)
	AddStaffFn     func(context.Context, int64, string, string, model.Role) (*model.User, error)
}

// Register returns token for successful registration scenarios.
func (s AuthFacadeStub) Register(ctx context.Context, login, password string) (string, error) {
	if s.RegisterFn != nil {
		return s.RegisterFn(ctx, login, password)
	}
	return "token", nil
}

// Authenticate returns token for successful authentication scenarios.
func (s AuthFacadeStub) Authenticate(ctx context.Context, login, password string) (string, error) {
	if s.AuthenticateFn != nil {
		return s.AuthenticateFn(ctx, login, password)
	}
	return "token", nil
}

// ParseToken returns manager claims unless overridden.
func (s AuthFacadeStub) ParseToken(token string) (pkgAuth.Claims, error) {
	if s.ParseFn != nil {
		return s.ParseFn(token)
	}
	return pkgAuth.Claims{UserID: 1, Role: model.RoleManager}, nil
}

// AddStaff echoes the requested account unless overridden.
func (s AuthFacadeStub) AddStaff(ctx context.Context, actorID int64, login, password string, role model.Role) (*model.User, error) {
	if s.AddStaffFn != nil {
		return s.AddStaffFn(ctx, actorID, login, password, role)
	}
	return &model.User{ID: 2, Login: login, Role: role}, nil
}

// SampleOrder returns a pending order with two lines.
func SampleOrder(id string) *model.Order {
	items := []model.ItemLine{
		{ID: 1, Name: "Dal", Quantity: 2, UnitPrice: decimal.RequireFromString("90")},
		{ID: 2, Name: "Naan", Quantity: 1, UnitPrice: decimal.RequireFromString("40")},
	}
	return &model.Order{
		ID:          id,
		Number:      "1001",
		Items:       items,
		Status:      model.OrderStatusPending,
		TotalAmount: model.Total(items),
		CreatedAt:   time.Unix(0, 0).UTC(),
	}
}

// OrderFacadeStub provides controllable behaviour for order endpoints.
type OrderFacadeStub struct {
	PlaceFn    func(context.Context, model.NewOrder) (*model.Order, error)
	OrderFn    func(context.Context, string) (*model.Order, error)
	ActiveFn   func(context.Context) ([]model.Order, error)
	AddItemsFn func(context.Context, string, []model.ItemLine) (*model.Order, error)
	UpdateFn   func(context.Context, string, int64, int) (*model.Order, error)
	ServeFn    func(context.Context, string) (*model.Order, error)
	CompleteFn func(context.Context, string, string) (*model.Order, error)
	DeleteFn   func(context.Context, string) error
}

// PlaceOrder echoes the placed items back as a pending order.
func (s OrderFacadeStub) PlaceOrder(ctx context.Context, in model.NewOrder) (*model.Order, error) {
	if s.PlaceFn != nil {
		return s.PlaceFn(ctx, in)
	}
	order := SampleOrder("o1")
	order.Items = in.Items
	order.TableID = in.TableID
	order.TotalAmount = model.Total(in.Items)
	return order, nil
}

// Order returns the sample order under the requested id.
func (s OrderFacadeStub) Order(ctx context.Context, id string) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, id)
	}
	return SampleOrder(id), nil
}

// ActiveOrders returns a single sample order.
func (s OrderFacadeStub) ActiveOrders(ctx context.Context) ([]model.Order, error) {
	if s.ActiveFn != nil {
		return s.ActiveFn(ctx)
	}
	return []model.Order{*SampleOrder("o1")}, nil
}

// AddItems appends items to the sample order.
func (s OrderFacadeStub) AddItems(ctx context.Context, id string, items []model.ItemLine) (*model.Order, error) {
	if s.AddItemsFn != nil {
		return s.AddItemsFn(ctx, id, items)
	}
	order := SampleOrder(id)
	order.Items = append(order.Items, items...)
	order.TotalAmount = model.Total(order.Items)
	return order, nil
}

// UpdateItem delegates to the override or returns the sample order.
func (s OrderFacadeStub) UpdateItem(ctx context.Context, id string, itemID int64, quantity int) (*model.Order, error) {
	if s.UpdateFn != nil {
		return s.UpdateFn(ctx, id, itemID, quantity)
	}
	return SampleOrder(id), nil
}

// MarkServed returns the sample order as served.
func (s OrderFacadeStub) MarkServed(ctx context.Context, id string) (*model.Order, error) {
	if s.ServeFn != nil {
		return s.ServeFn(ctx, id)
	}
	order := SampleOrder(id)
	order.Status = model.OrderStatusServed
	order.Served = true
	return order, nil
}

// Complete returns the sample order as completed.
func (s OrderFacadeStub) Complete(ctx context.Context, id, key string) (*model.Order, error) {
	if s.CompleteFn != nil {
		return s.CompleteFn(ctx, id, key)
	}
	order := SampleOrder(id)
	order.Status = model.OrderStatusCompleted
	order.IsPaid = true
	return order, nil
}

// DeleteOrder delegates to the override.
func (s OrderFacadeStub) DeleteOrder(ctx context.Context, id string) error {
	if s.DeleteFn != nil {
		return s.DeleteFn(ctx, id)
	}
	return nil
}

// CheckoutFacadeStub simulates payment endpoints.
type CheckoutFacadeStub struct {
	PayFn    func(context.Context, string, string, model.PaymentRequest) (*model.Order, error)
	IntentFn func(context.Context, string) (*model.PaymentIntent, error)
}

// Pay returns the sample order as paid.
func (s CheckoutFacadeStub) Pay(ctx context.Context, id, key string, req model.PaymentRequest) (*model.Order, error) {
	if s.PayFn != nil {
		return s.PayFn(ctx, id, key, req)
	}
	order := SampleOrder(id)
	order.IsPaid = true
	order.Payment = &model.PaymentInfo{Method: req.Method, TransactionID: req.TransactionID, PaidAt: time.Unix(0, 0).UTC()}
	return order, nil
}

// CreateUPIIntent returns a pending intent for the sample order total.
func (s CheckoutFacadeStub) CreateUPIIntent(ctx context.Context, id string) (*model.PaymentIntent, error) {
	if s.IntentFn != nil {
		return s.IntentFn(ctx, id)
	}
	return &model.PaymentIntent{
		ID:        "intent-1",
		OrderID:   id,
		QRPayload: "upi://pay?tr=" + id,
		Amount:    SampleOrder(id).TotalAmount,
		Status:    model.PaymentIntentPending,
	}, nil
}

// AlertFacadeStub simulates the alert surface.
type AlertFacadeStub struct {
	AlertsFn func() []model.Alert
	AckFn    func(string) (model.Alert, error)
	OpenFn   func(context.Context, model.PushData) (*model.Order, []model.Alert, error)
	WatchFn  func() (<-chan notify.StreamEvent, func())
}

// Alerts returns configured alerts or none.
func (s AlertFacadeStub) Alerts() []model.Alert {
	if s.AlertsFn != nil {
		return s.AlertsFn()
	}
	return []model.Alert{}
}

// AckAlert returns an acknowledged alert with the given id.
func (s AlertFacadeStub) AckAlert(id string) (model.Alert, error) {
	if s.AckFn != nil {
		return s.AckFn(id)
	}
	now := time.Unix(0, 0).UTC()
	return model.Alert{ID: id, AcknowledgedAt: &now}, nil
}

// OpenAlert returns the sample order and no acknowledged alerts.
func (s AlertFacadeStub) OpenAlert(ctx context.Context, data model.PushData) (*model.Order, []model.Alert, error) {
	if s.OpenFn != nil {
		return s.OpenFn(ctx, data)
	}
	return SampleOrder(data.OrderID), nil, nil
}

// WatchAlerts returns a stream that never delivers unless overridden.
func (s AlertFacadeStub) WatchAlerts() (<-chan notify.StreamEvent, func()) {
	if s.WatchFn != nil {
		return s.WatchFn()
	}
	return make(chan notify.StreamEvent), func() {}
}

// BoardFacadeStub aggregates facade dependencies for HTTP layer tests.
type BoardFacadeStub struct {
	AuthFacadeStub
	OrderFacadeStub
	CheckoutFacadeStub
	AlertFacadeStub
}

// IntentResolution records a ResolveIntent call.
type IntentResolution struct {
	ID     string
	Status model.PaymentIntentStatus
}

// PaymentConfirmation records a ConfirmPayment call.
type PaymentConfirmation struct {
	OrderID       string
	TransactionID string
}

// PollerFacadeStub mimics payment poller interactions with the board facade.
type PollerFacadeStub struct {
	Batches       [][]model.PaymentIntent
	PendingFn     func(context.Context, int) ([]model.PaymentIntent, error)
	StatusFn      func(context.Context, string) (*model.GatewayPayment, error)
	ConfirmFn     func(context.Context, string, string) error
	ResolveFn     func(context.Context, string, model.PaymentIntentStatus) error
	Confirmations []PaymentConfirmation
	Resolutions   []IntentResolution
	StatusCalls   int32
	mu            sync.Mutex
	pendingCalls  int32
}

// Lock exposes internal mutex for external synchronization.
func (s *PollerFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *PollerFacadeStub) Unlock() { s.mu.Unlock() }

// PendingIntents returns batches from the configured queue.
func (s *PollerFacadeStub) PendingIntents(ctx context.Context, limit int) ([]model.PaymentIntent, error) {
	if s.PendingFn != nil {
		return s.PendingFn(ctx, limit)
	}
	call := atomic.AddInt32(&s.pendingCalls, 1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	return nil, nil
}

// GatewayStatus reports every payment as paid unless overridden.
func (s *PollerFacadeStub) GatewayStatus(ctx context.Context, ref string) (*model.GatewayPayment, error) {
	atomic.AddInt32(&s.StatusCalls, 1)
	if s.StatusFn != nil {
		return s.StatusFn(ctx, ref)
	}
	return &model.GatewayPayment{Reference: ref, Status: model.PaymentIntentPaid, TransactionID: "txn-" + ref}, nil
}

// ConfirmPayment records confirmed payments.
func (s *PollerFacadeStub) ConfirmPayment(ctx context.Context, orderID, transactionID string) error {
	if s.ConfirmFn != nil {
		if err := s.ConfirmFn(ctx, orderID, transactionID); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Confirmations = append(s.Confirmations, PaymentConfirmation{OrderID: orderID, TransactionID: transactionID})
	return nil
}

// ResolveIntent records resolved intents.
func (s *PollerFacadeStub) ResolveIntent(ctx context.Context, id string, status model.PaymentIntentStatus) error {
	if s.ResolveFn != nil {
		if err := s.ResolveFn(ctx, id, status); err != nil {
			return err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Resolutions = append(s.Resolutions, IntentResolution{ID: id, Status: status})
	return nil
}

// ListenerStub is a change-feed listener fed through Payloads.
type ListenerStub struct {
	Payloads chan []byte
	ListenFn func(context.Context) error
	closed   atomic.Bool
}

// NewListenerStub creates a listener with a buffered payload channel.
func NewListenerStub() *ListenerStub {
	return &ListenerStub{Payloads: make(chan []byte, 16)}
}

// Listen succeeds unless overridden.
func (l *ListenerStub) Listen(ctx context.Context) error {
	if l.ListenFn != nil {
		return l.ListenFn(ctx)
	}
	return nil
}

// WaitForNotification blocks until a payload arrives or ctx is done.
func (l *ListenerStub) WaitForNotification(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case p := <-l.Payloads:
		return p, nil
	}
}

// Close marks the listener closed.
func (l *ListenerStub) Close(context.Context) error {
	l.closed.Store(true)
	return nil
}

// Closed reports whether Close was called.
func (l *ListenerStub) Closed() bool {
	return l.closed.Load()
}
