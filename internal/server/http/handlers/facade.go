package handlers

import (
	"context"

	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/notify"
	pkgAuth "github.com/polkiloo/orderboard/internal/pkg/auth"
)

// AuthFacade describes authentication capabilities required by handlers.
type AuthFacade interface {
	Register(ctx context.Context, login, password string) (string, error)
	Authenticate(ctx context.Context, login, password string) (string, error)
	ParseToken(token string) (pkgAuth.Claims, error)
	AddStaff(ctx context.Context, actorID int64, login, password string, role model.Role) (*model.User, error)
}

// OrderFacade encapsulates order operations exposed via HTTP.
type OrderFacade interface {
	PlaceOrder(ctx context.Context, in model.NewOrder) (*model.Order, error)
	Order(ctx context.Context, id string) (*model.Order, error)
	ActiveOrders(ctx context.Context) ([]model.Order, error)
	AddItems(ctx context.Context, id string, items []model.ItemLine) (*model.Order, error)
	UpdateItem(ctx context.Context, id string, itemID int64, quantity int) (*model.Order, error)
	MarkServed(ctx context.Context, id string) (*model.Order, error)
	Complete(ctx context.Context, id, idempotencyKey string) (*model.Order, error)
	DeleteOrder(ctx context.Context, id string) error
}

// PaymentFacade provides payment operations.
type PaymentFacade interface {
	Pay(ctx context.Context, id, idempotencyKey string, req model.PaymentRequest) (*model.Order, error)
	CreateUPIIntent(ctx context.Context, id string) (*model.PaymentIntent, error)
}

// AlertFacade exposes the in-app alert surface.
type AlertFacade interface {
	Alerts() []model.Alert
	AckAlert(id string) (model.Alert, error)
	OpenAlert(ctx context.Context, data model.PushData) (*model.Order, []model.Alert, error)
	WatchAlerts() (<-chan notify.StreamEvent, func())
}

// BoardFacade aggregates the full set of operations used across handlers.
type BoardFacade interface {
	AuthFacade
	OrderFacade
	PaymentFacade
	AlertFacade
}
