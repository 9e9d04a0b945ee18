package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/orderboard/internal/config"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	NewAuthUseCase,
	NewOrderUseCase,
	newOrderOptions,
	newIdempotency,
)

func newOrderOptions(cfg *config.Config) OrderOptions {
	return OrderOptions{CompleteOnPayment: cfg.CompleteOnPayment}
}

type idempotencyParams struct {
	fx.In

	Store  IdempotencyStore `optional:"true"`
	Logger *slog.Logger
}

func newIdempotency(p idempotencyParams) *Idempotency {
	return NewIdempotency(p.Store, p.Logger)
}
