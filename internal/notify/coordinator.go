package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/orderboard/internal/changefeed"
	"github.com/polkiloo/orderboard/internal/clock"
	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/metrics"
)

// Feed hands out change subscriptions.
type Feed interface {
	Subscribe(table string) (*changefeed.Subscription, error)
}

// Notifier is the dispatcher surface the coordinator drives.
type Notifier interface {
	NotifyNewOrder(ctx context.Context, order model.Order, items []model.ItemLine)
	NotifyOrderUpdated(ctx context.Context, order model.Order, added []model.ItemLine)
}

// CoordinatorConfig tunes the two debounce windows.
type CoordinatorConfig struct {
	NewOrderWindow time.Duration
	QuietPeriod    time.Duration
}

// Coordinator turns row changes into notifications. Order inserts and items
// classified as initial are collapsed into one new-order notification per
// order; later additions are debounced into one update notification per
// burst.
type Coordinator struct {
	feed       Feed
	orders     OrderReader
	classifier *Classifier
	notifier   Notifier
	logger     *slog.Logger

	newOrders *Batcher
	updates   *Batcher

	mu     sync.Mutex
	subs   []*changefeed.Subscription
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewCoordinator wires the coordinator.
func NewCoordinator(feed Feed, orders OrderReader, classifier *Classifier, notifier Notifier, clk clock.Clock, cfg CoordinatorConfig, logger *slog.Logger) *Coordinator {
	if cfg.NewOrderWindow <= 0 {
		cfg.NewOrderWindow = DefaultNewOrderWindow
	}
	c := &Coordinator{
		feed:       feed,
		orders:     orders,
		classifier: classifier,
		notifier:   notifier,
		logger:     logger,
		ctx:        context.Background(),
	}
	c.newOrders = NewBatcher(clk, cfg.NewOrderWindow, c.flushNewOrder)
	c.updates = NewBatcher(clk, cfg.QuietPeriod, c.flushUpdate)
	return c
}

// Start subscribes to orders and order items and begins consuming events.
// Subscribing twice without Stop fails with changefeed.ErrAlreadySubscribed.
func (c *Coordinator) Start(ctx context.Context) error {
	orders, err := c.feed.Subscribe(changefeed.TableOrders)
	if err != nil {
		return err
	}
	items, err := c.feed.Subscribe(changefeed.TableOrderItems)
	if err != nil {
		orders.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.subs = []*changefeed.Subscription{orders, items}
	c.ctx = runCtx
	c.cancel = cancel
	c.mu.Unlock()

	c.wg.Add(1)
	go c.consume(runCtx, orders, items)
	return nil
}

func (c *Coordinator) consume(ctx context.Context, orders, items *changefeed.Subscription) {
	defer c.wg.Done()
	for {
		var ev changefeed.Event
		select {
		case <-ctx.Done():
			return
		case <-orders.Done():
			return
		case <-items.Done():
			return
		case ev = <-orders.Events():
		case ev = <-items.Events():
		}

		c.wg.Add(1)
		go func(ev changefeed.Event) {
			defer c.wg.Done()
			c.handle(ctx, ev)
		}(ev)
	}
}

func (c *Coordinator) handle(ctx context.Context, ev changefeed.Event) {
	if ev.Type != changefeed.Insert {
		return
	}

	switch ev.Table {
	case changefeed.TableOrders:
		order, err := ev.DecodeOrder()
		if err != nil {
			c.logger.Warn("undecodable order row", slog.Any("error", err))
			return
		}
		c.newOrders.Enqueue(order.ID)

	case changefeed.TableOrderItems:
		item, err := ev.DecodeItem()
		if err != nil {
			c.logger.Warn("undecodable item row", slog.Any("error", err))
			return
		}
		kind, err := c.classifier.Classify(ctx, item)
		if err != nil {
			if errors.Is(err, domainErrors.ErrNotFound) {
				c.logger.Debug("item for vanished order", slog.String("order_id", item.OrderID))
				return
			}
			c.logger.Error("classify item failed", slog.String("order_id", item.OrderID), slog.Any("error", err))
			return
		}
		if kind == KindNewOrder {
			c.newOrders.Enqueue(item.OrderID, item.Line())
			return
		}
		c.updates.Enqueue(item.OrderID, item.Line())
	}
}

func (c *Coordinator) runContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

func (c *Coordinator) flushNewOrder(orderID string, items []model.ItemLine) {
	metrics.BatchFlushed(KindNewOrder.String())
	ctx := c.runContext()
	order, err := c.orders.Get(ctx, orderID)
	if err != nil {
		c.logger.Warn("new order vanished before notification", slog.String("order_id", orderID), slog.Any("error", err))
		return
	}
	lines := order.Items
	if len(lines) == 0 {
		lines = items
	}
	c.notifier.NotifyNewOrder(ctx, *order, lines)
}

func (c *Coordinator) flushUpdate(orderID string, items []model.ItemLine) {
	metrics.BatchFlushed(KindAddition.String())
	ctx := c.runContext()
	order, err := c.orders.Get(ctx, orderID)
	if err != nil {
		c.logger.Warn("updated order vanished before notification", slog.String("order_id", orderID), slog.Any("error", err))
		return
	}
	c.notifier.NotifyOrderUpdated(ctx, *order, items)
}

// Pending reports open new-order and update batches.
func (c *Coordinator) Pending() (newOrders, updates int) {
	return c.newOrders.Pending(), c.updates.Pending()
}

// Stop clears every debounce timer, unsubscribes and waits for in-flight
// event handling. A stopped coordinator cannot be restarted.
func (c *Coordinator) Stop() {
	c.newOrders.Stop()
	c.updates.Stop()

	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, s := range subs {
		s.Close()
	}
	c.wg.Wait()
}
