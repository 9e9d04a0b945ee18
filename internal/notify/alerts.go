package notify

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/polkiloo/orderboard/internal/clock"
	domainErrors "github.com/polkiloo/orderboard/internal/domain/errors"
	"github.com/polkiloo/orderboard/internal/domain/model"
)

// Stream event kinds.
const (
	StreamAlert = "alert"
	StreamSound = "sound"
	StreamAck   = "ack"
)

const watcherBuffer = 16

// StreamEvent is pushed to connected terminals.
type StreamEvent struct {
	Kind  string       `json:"kind"`
	Alert *model.Alert `json:"alert,omitempty"`
}

// OrderReader loads an order snapshot.
type OrderReader interface {
	Get(ctx context.Context, id string) (*model.Order, error)
}

// AlertBoard is the in-app popup surface. Alerts stay open until
// acknowledged. It also relays sound cues to connected terminals.
type AlertBoard struct {
	orders OrderReader
	clock  clock.Clock
	logger *slog.Logger

	mu       sync.Mutex
	open     []*model.Alert
	watchers map[uint64]chan StreamEvent
	nextID   uint64
	closed   bool
}

// NewAlertBoard creates an empty board.
func NewAlertBoard(orders OrderReader, clk clock.Clock, logger *slog.Logger) *AlertBoard {
	return &AlertBoard{
		orders:   orders,
		clock:    clk,
		logger:   logger,
		watchers: make(map[uint64]chan StreamEvent),
	}
}

// Show opens an alert and pushes it to every terminal.
func (b *AlertBoard) Show(_ context.Context, alert model.Alert) error {
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = b.clock.Now()
	}
	alert.AcknowledgedAt = nil

	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = append(b.open, &alert)
	snapshot := alert
	b.broadcast(StreamEvent{Kind: StreamAlert, Alert: &snapshot})
	return nil
}

// Play relays the sound cue. Terminals that are not connected miss it.
func (b *AlertBoard) Play(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcast(StreamEvent{Kind: StreamSound})
	return nil
}

// List returns open alerts, oldest first.
func (b *AlertBoard) List() []model.Alert {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]model.Alert, 0, len(b.open))
	for _, a := range b.open {
		out = append(out, *a)
	}
	return out
}

// Ack closes an open alert.
func (b *AlertBoard) Ack(id string) (model.Alert, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, a := range b.open {
		if a.ID == id {
			return b.ackAt(i), nil
		}
	}
	return model.Alert{}, domainErrors.ErrNotFound
}

// Open resolves a push tap back to its order and acknowledges the alerts it
// refers to.
func (b *AlertBoard) Open(ctx context.Context, data model.PushData) (*model.Order, []model.Alert, error) {
	order, err := b.orders.Get(ctx, data.OrderID)
	if err != nil {
		return nil, nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	var acked []model.Alert
	for i := 0; i < len(b.open); {
		a := b.open[i]
		if a.Order.ID == data.OrderID && (data.Type == "" || a.Type == data.Type) {
			acked = append(acked, b.ackAt(i))
			continue
		}
		i++
	}
	return order, acked, nil
}

func (b *AlertBoard) ackAt(i int) model.Alert {
	a := b.open[i]
	now := b.clock.Now()
	a.AcknowledgedAt = &now
	b.open = append(b.open[:i], b.open[i+1:]...)
	snapshot := *a
	b.broadcast(StreamEvent{Kind: StreamAck, Alert: &snapshot})
	return snapshot
}

// Watch registers a terminal. The returned cancel func must be called when
// the terminal disconnects. The channel is closed by Close.
func (b *AlertBoard) Watch() (<-chan StreamEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		ch := make(chan StreamEvent)
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	ch := make(chan StreamEvent, watcherBuffer)
	b.watchers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.watchers, id)
		})
	}
}

// Close disconnects every terminal so open streams end before the HTTP
// server drains its connections. Later watchers get a closed channel.
func (b *AlertBoard) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.watchers {
		close(ch)
		delete(b.watchers, id)
	}
}

// Watchers returns the number of connected terminals.
func (b *AlertBoard) Watchers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.watchers)
}

// broadcast must be called with mu held. Slow terminals miss events rather
// than stall notification delivery.
func (b *AlertBoard) broadcast(ev StreamEvent) {
	for id, ch := range b.watchers {
		select {
		case ch <- ev:
		default:
			b.logger.Warn("alert stream lagging, event dropped", slog.Uint64("watcher", id), slog.String("kind", ev.Kind))
		}
	}
}
