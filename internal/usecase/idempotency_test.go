package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/polkiloo/orderboard/internal/adapter/idempotency"
	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
	"github.com/polkiloo/orderboard/internal/domain/model"
)

func newRedisIdempotency(t *testing.T) (*Idempotency, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := idempotency.NewRedisStore(rdb, time.Hour)
	return NewIdempotency(store, slog.New(slog.NewJSONHandler(io.Discard, nil))), mr
}

func TestIdempotencyReplaysStoredResult(t *testing.T) {
	idem, _ := newRedisIdempotency(t)
	ctx := context.Background()
	calls := 0
	fn := func(context.Context) (*model.Order, error) {
		calls++
		return &model.Order{ID: "o1", Number: "1001", IsPaid: true}, nil
	}

	first, err := idem.Do(ctx, "pay", "key-1", fn)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := idem.Do(ctx, "pay", "key-1", fn)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected fn to run once, got %d", calls)
	}
	if second.ID != first.ID || !second.IsPaid {
		t.Fatalf("unexpected replay %+v", second)
	}

	if _, err := idem.Do(ctx, "complete", "key-1", fn); err != nil || calls != 2 {
		t.Fatalf("scopes must not share keys, calls=%d err=%v", calls, err)
	}
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	idem, _ := newRedisIdempotency(t)
	ctx := context.Background()

	_, err := idem.Do(ctx, "pay", "key-1", func(ctx context.Context) (*model.Order, error) {
		_, innerErr := idem.Do(ctx, "pay", "key-1", func(context.Context) (*model.Order, error) {
			t.Fatal("duplicate must not run")
			return nil, nil
		})
		if !errors.Is(innerErr, domainErrors.ErrDuplicateRequest) {
			t.Fatalf("expected ErrDuplicateRequest, got %v", innerErr)
		}
		return &model.Order{ID: "o1"}, nil
	})
	if err != nil {
		t.Fatalf("outer call: %v", err)
	}
}

func TestIdempotencyReleasesOnFailure(t *testing.T) {
	idem, _ := newRedisIdempotency(t)
	ctx := context.Background()
	boom := errors.New("boom")

	if _, err := idem.Do(ctx, "pay", "key-1", func(context.Context) (*model.Order, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	order, err := idem.Do(ctx, "pay", "key-1", func(context.Context) (*model.Order, error) {
		return &model.Order{ID: "o1"}, nil
	})
	if err != nil || order.ID != "o1" {
		t.Fatalf("retry after failure must run, got %+v %v", order, err)
	}
}

func TestIdempotencyWithoutKeyOrStore(t *testing.T) {
	ctx := context.Background()
	calls := 0
	fn := func(context.Context) (*model.Order, error) {
		calls++
		return &model.Order{ID: "o1"}, nil
	}

	idem, _ := newRedisIdempotency(t)
	_, _ = idem.Do(ctx, "pay", "", fn)
	_, _ = idem.Do(ctx, "pay", "", fn)

	var unguarded *Idempotency
	_, _ = unguarded.Do(ctx, "pay", "key", fn)
	_, _ = NewIdempotency(nil, nil).Do(ctx, "pay", "key", fn)

	if calls != 4 {
		t.Fatalf("unguarded calls must always run, got %d", calls)
	}
}

func TestIdempotencyDegradesWhenStoreIsDown(t *testing.T) {
	idem, mr := newRedisIdempotency(t)
	mr.Close()

	calls := 0
	for i := 0; i < 2; i++ {
		if _, err := idem.Do(context.Background(), "pay", "key-1", func(context.Context) (*model.Order, error) {
			calls++
			return &model.Order{ID: "o1"}, nil
		}); err != nil {
			t.Fatalf("store outage must not fail the request: %v", err)
		}
	}
	if calls != 2 {
		t.Fatalf("expected unguarded runs, got %d", calls)
	}
}
