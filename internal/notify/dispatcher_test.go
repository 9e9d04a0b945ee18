package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/polkiloo/orderboard/internal/clock"
	"github.com/polkiloo/orderboard/internal/domain/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

type channelRecorder struct {
	mu     sync.Mutex
	sounds int
	alerts []model.Alert
	pushes []model.PushMessage
	err    error
}

func (r *channelRecorder) Play(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sounds++
	return r.err
}

func (r *channelRecorder) Show(_ context.Context, alert model.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, alert)
	return r.err
}

func (r *channelRecorder) Schedule(_ context.Context, msg model.PushMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pushes = append(r.pushes, msg)
	return r.err
}

type failingSound struct{}

func (failingSound) Play(context.Context) error { return errors.New("no audio device") }

type prefsError struct{}

func (prefsError) Preferences(context.Context) (model.Preferences, error) {
	return model.Preferences{}, errors.New("settings unavailable")
}

var sampleOrder = model.Order{ID: "o1", Number: "1001", Status: model.OrderStatusPending}

var sampleItems = []model.ItemLine{item("Dal", 2), item("Naan", 1)}

func TestDispatcherHonorsPreferences(t *testing.T) {
	for mask := 0; mask < 8; mask++ {
		prefs := model.Preferences{Sound: mask&1 != 0, Popup: mask&2 != 0, System: mask&4 != 0}
		for _, kind := range []model.NotificationType{model.NotificationNewOrder, model.NotificationOrderUpdate} {
			t.Run(fmt.Sprintf("%s/%+v", kind, prefs), func(t *testing.T) {
				rec := &channelRecorder{}
				d := NewDispatcher(StaticPreferences(prefs), rec, rec, rec, clock.Fake(epoch), discardLogger())
				if kind == model.NotificationNewOrder {
					d.NotifyNewOrder(context.Background(), sampleOrder, sampleItems)
				} else {
					d.NotifyOrderUpdated(context.Background(), sampleOrder, sampleItems)
				}
				d.Wait()

				if (rec.sounds == 1) != prefs.Sound || rec.sounds > 1 {
					t.Fatalf("sound played %d times", rec.sounds)
				}
				if (len(rec.alerts) == 1) != prefs.Popup || len(rec.alerts) > 1 {
					t.Fatalf("popup shown %d times", len(rec.alerts))
				}
				if (len(rec.pushes) == 1) != prefs.System || len(rec.pushes) > 1 {
					t.Fatalf("push scheduled %d times", len(rec.pushes))
				}
				if prefs.Popup && rec.alerts[0].Type != kind {
					t.Fatalf("unexpected alert type %q", rec.alerts[0].Type)
				}
				if prefs.System && rec.pushes[0].Data.Type != kind {
					t.Fatalf("unexpected push type %q", rec.pushes[0].Data.Type)
				}
			})
		}
	}
}

func TestDispatcherPopupOnly(t *testing.T) {
	rec := &channelRecorder{}
	d := NewDispatcher(StaticPreferences{Popup: true}, rec, rec, rec, clock.Fake(epoch), discardLogger())

	d.NotifyNewOrder(context.Background(), sampleOrder, sampleItems)
	d.Wait()

	if rec.sounds != 0 || len(rec.pushes) != 0 {
		t.Fatalf("only the popup may fire, got sounds=%d pushes=%d", rec.sounds, len(rec.pushes))
	}
	if len(rec.alerts) != 1 {
		t.Fatalf("expected one popup, got %d", len(rec.alerts))
	}
	alert := rec.alerts[0]
	if alert.Order.ID != "o1" || len(alert.Items) != 2 || !alert.CreatedAt.Equal(epoch) {
		t.Fatalf("unexpected alert %+v", alert)
	}
}

func TestDispatcherChannelFailureIsIsolated(t *testing.T) {
	rec := &channelRecorder{}
	d := NewDispatcher(StaticPreferences{Sound: true, Popup: true, System: true}, failingSound{}, rec, rec, clock.Fake(epoch), discardLogger())
	d.NotifyNewOrder(context.Background(), sampleOrder, sampleItems)
	d.Wait()

	if len(rec.alerts) != 1 || len(rec.pushes) != 1 {
		t.Fatalf("other channels must still deliver, got alerts=%d pushes=%d", len(rec.alerts), len(rec.pushes))
	}
}

func TestDispatcherSkipsMissingChannels(t *testing.T) {
	rec := &channelRecorder{}
	d := NewDispatcher(StaticPreferences{Sound: true, Popup: true, System: true}, nil, rec, nil, clock.Fake(epoch), discardLogger())

	d.NotifyOrderUpdated(context.Background(), sampleOrder, sampleItems[:1])
	d.Wait()

	if len(rec.alerts) != 1 {
		t.Fatalf("expected popup, got %d", len(rec.alerts))
	}
	if len(rec.alerts[0].Items) != 1 {
		t.Fatalf("update must list only the added items, got %+v", rec.alerts[0].Items)
	}
}

func TestDispatcherFallsBackToDefaults(t *testing.T) {
	rec := &channelRecorder{}
	d := NewDispatcher(prefsError{}, rec, rec, rec, clock.Fake(epoch), discardLogger())

	d.NotifyNewOrder(context.Background(), sampleOrder, sampleItems)
	d.Wait()

	if rec.sounds != 1 || len(rec.alerts) != 1 || len(rec.pushes) != 1 {
		t.Fatalf("all channels must fire on default prefs, got %d/%d/%d", rec.sounds, len(rec.alerts), len(rec.pushes))
	}
}

func TestDispatcherDeliveryOutlivesCallerContext(t *testing.T) {
	seen := make(chan error, 1)
	push := pushFunc(func(ctx context.Context, _ model.PushMessage) error {
		seen <- ctx.Err()
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(StaticPreferences{System: true}, nil, nil, push, clock.Fake(epoch), discardLogger())

	d.NotifyNewOrder(ctx, sampleOrder, sampleItems)
	cancel()
	d.Wait()

	if err := <-seen; err != nil {
		t.Fatalf("delivery context must not inherit cancellation, got %v", err)
	}
}

type pushFunc func(context.Context, model.PushMessage) error

func (f pushFunc) Schedule(ctx context.Context, msg model.PushMessage) error { return f(ctx, msg) }

func TestSummarize(t *testing.T) {
	if got := Summarize(sampleItems); got != "2x Dal, 1x Naan" {
		t.Fatalf("unexpected summary %q", got)
	}
	if got := Summarize(nil); got != "" {
		t.Fatalf("empty summary expected, got %q", got)
	}
}

func TestPushMessage(t *testing.T) {
	msg := PushMessage(model.NotificationNewOrder, sampleOrder, sampleItems)
	if msg.Title != "New order #1001" || msg.Body != "2x Dal, 1x Naan" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if msg.Data.OrderID != "o1" || msg.Data.Type != model.NotificationNewOrder {
		t.Fatalf("unexpected data %+v", msg.Data)
	}
	if msg.Options["priority"] != "high" || msg.Options["tag"] != "o1" {
		t.Fatalf("unexpected options %+v", msg.Options)
	}

	update := PushMessage(model.NotificationOrderUpdate, sampleOrder, sampleItems[1:])
	if update.Title != "Order #1001 updated" || update.Body != "1x Naan" {
		t.Fatalf("unexpected update message %+v", update)
	}
}
