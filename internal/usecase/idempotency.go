package usecase

import (
	"context"
	"encoding/json"
	"log/slog"

	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
	"github.com/polkiloo/orderboard/internal/domain/model"
)

// IdempotencyStore claims request keys and remembers their results.
type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

// Idempotency replays the stored result of a retried order request. When the
// store is unreachable requests run unguarded and rely on the guarded store
// writes alone.
type Idempotency struct {
	store  IdempotencyStore
	logger *slog.Logger
}

// NewIdempotency constructs Idempotency.
func NewIdempotency(store IdempotencyStore, logger *slog.Logger) *Idempotency {
	return &Idempotency{store: store, logger: logger}
}

// Do runs fn once per (scope, key). A concurrent request with the same key
// fails with ErrDuplicateRequest. An empty key disables the guard.
func (i *Idempotency) Do(ctx context.Context, scope, key string, fn func(context.Context) (*model.Order, error)) (*model.Order, error) {
	if key == "" || i == nil || i.store == nil {
		return fn(ctx)
	}

	raw, found, err := i.store.Recall(ctx, scope, key)
	if err != nil {
		i.logger.Warn("idempotency store unavailable", slog.String("scope", scope), slog.Any("error", err))
		return fn(ctx)
	}
	if found {
		var order model.Order
		if err := json.Unmarshal([]byte(raw), &order); err == nil {
			return &order, nil
		}
		i.logger.Warn("discarding unreadable idempotent result", slog.String("scope", scope), slog.String("key", key))
	}

	locked, err := i.store.TryLock(ctx, scope, key)
	if err != nil {
		i.logger.Warn("idempotency store unavailable", slog.String("scope", scope), slog.Any("error", err))
		return fn(ctx)
	}
	if !locked {
		return nil, domainErrors.ErrDuplicateRequest
	}

	order, err := fn(ctx)
	if err != nil {
		if releaseErr := i.store.Release(ctx, scope, key); releaseErr != nil {
			i.logger.Warn("idempotency release failed", slog.String("scope", scope), slog.Any("error", releaseErr))
		}
		return nil, err
	}

	encoded, err := json.Marshal(order)
	if err == nil {
		err = i.store.Remember(ctx, scope, key, string(encoded))
	}
	if err != nil {
		i.logger.Warn("idempotent result not stored", slog.String("scope", scope), slog.Any("error", err))
	}
	return order, nil
}
