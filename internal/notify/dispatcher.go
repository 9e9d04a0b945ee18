package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/polkiloo/orderboard/internal/clock"
	"github.com/polkiloo/orderboard/internal/domain/model"
	"github.com/polkiloo/orderboard/internal/metrics"
)

// Channel names used in logs and metrics.
const (
	ChannelSound = "sound"
	ChannelPopup = "popup"
	ChannelPush  = "push"
)

const defaultDeliveryTimeout = 10 * time.Second

// SoundPlayer plays the notification cue.
type SoundPlayer interface {
	Play(ctx context.Context) error
}

// PopupSurface shows an in-app alert until it is acknowledged.
type PopupSurface interface {
	Show(ctx context.Context, alert model.Alert) error
}

// PushScheduler hands a system-level notification to the push transport.
type PushScheduler interface {
	Schedule(ctx context.Context, msg model.PushMessage) error
}

// Dispatcher fans a notification out to the enabled channels. Channels run
// concurrently and a failing channel never affects the others.
type Dispatcher struct {
	prefs   PreferenceSource
	sound   SoundPlayer
	popup   PopupSurface
	push    PushScheduler
	clock   clock.Clock
	logger  *slog.Logger
	timeout time.Duration

	wg sync.WaitGroup
}

// NewDispatcher wires the channels. Any channel may be nil, in which case it
// is skipped even when enabled.
func NewDispatcher(prefs PreferenceSource, sound SoundPlayer, popup PopupSurface, push PushScheduler, clk clock.Clock, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		prefs:   prefs,
		sound:   sound,
		popup:   popup,
		push:    push,
		clock:   clk,
		logger:  logger,
		timeout: defaultDeliveryTimeout,
	}
}

// NotifyNewOrder announces a freshly placed order.
func (d *Dispatcher) NotifyNewOrder(ctx context.Context, order model.Order, items []model.ItemLine) {
	d.dispatch(ctx, model.NotificationNewOrder, order, items)
}

// NotifyOrderUpdated announces items added to an existing order. Only the
// added items are listed.
func (d *Dispatcher) NotifyOrderUpdated(ctx context.Context, order model.Order, added []model.ItemLine) {
	d.dispatch(ctx, model.NotificationOrderUpdate, order, added)
}

// Wait blocks until every in-flight channel delivery returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) dispatch(ctx context.Context, kind model.NotificationType, order model.Order, items []model.ItemLine) {
	prefs, err := d.prefs.Preferences(ctx)
	if err != nil {
		d.logger.Warn("notification preferences unavailable, using defaults",
			slog.String("order_id", order.ID), slog.Any("error", err))
		prefs = ResolvePreferences(model.RoleOwner, model.DefaultNotificationSettings())
	}

	if prefs.Sound {
		d.deliver(ctx, ChannelSound, kind, order.ID, d.sound != nil, func(ctx context.Context) error {
			return d.sound.Play(ctx)
		})
	}
	if prefs.Popup {
		alert := model.Alert{Type: kind, Order: order, Items: items, CreatedAt: d.clock.Now()}
		d.deliver(ctx, ChannelPopup, kind, order.ID, d.popup != nil, func(ctx context.Context) error {
			return d.popup.Show(ctx, alert)
		})
	}
	if prefs.System {
		msg := PushMessage(kind, order, items)
		d.deliver(ctx, ChannelPush, kind, order.ID, d.push != nil, func(ctx context.Context) error {
			return d.push.Schedule(ctx, msg)
		})
	}
}

func (d *Dispatcher) deliver(ctx context.Context, channel string, kind model.NotificationType, orderID string, available bool, fn func(context.Context) error) {
	if !available {
		d.logger.Debug("notification channel unavailable",
			slog.String("channel", channel), slog.String("order_id", orderID))
		metrics.Notification(channel, string(kind), metrics.OutcomeSkipped)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		deliveryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()

		if err := fn(deliveryCtx); err != nil {
			d.logger.Warn("notification delivery failed",
				slog.String("channel", channel),
				slog.String("type", string(kind)),
				slog.String("order_id", orderID),
				slog.Any("error", err))
			metrics.Notification(channel, string(kind), metrics.OutcomeFailed)
			return
		}
		metrics.Notification(channel, string(kind), metrics.OutcomeOK)
	}()
}

// Summarize renders items as "2x Dal, 1x Naan".
func Summarize(items []model.ItemLine) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%dx %s", item.Quantity, item.Name))
	}
	return strings.Join(parts, ", ")
}

// PushMessage builds the system notification for an order event. Data
// carries what a tap needs to reopen the order.
func PushMessage(kind model.NotificationType, order model.Order, items []model.ItemLine) model.PushMessage {
	title := fmt.Sprintf("New order #%s", order.Number)
	if kind == model.NotificationOrderUpdate {
		title = fmt.Sprintf("Order #%s updated", order.Number)
	}
	return model.PushMessage{
		Title: title,
		Body:  Summarize(items),
		Data:  model.PushData{OrderID: order.ID, Type: kind},
		Options: map[string]string{
			"priority": "high",
			"tag":      order.ID,
		},
	}
}
