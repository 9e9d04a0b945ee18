package changefeed

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrAlreadySubscribed is returned when a table already has a live subscription.
var ErrAlreadySubscribed = errors.New("table already subscribed")

// ErrHubClosed is returned by Subscribe after Close.
var ErrHubClosed = errors.New("change feed closed")

const (
	defaultBuffer     = 256
	defaultRetryDelay = time.Second
)

// Listener is the store's row-change primitive.
type Listener interface {
	Listen(ctx context.Context) error
	WaitForNotification(ctx context.Context) ([]byte, error)
	Close(ctx context.Context) error
}

// Hub reads raw notifications from the listener and fans typed events out to
// per-table subscriptions. Delivery is at-least-once with no cross-row
// ordering guarantee.
type Hub struct {
	listener   Listener
	logger     *slog.Logger
	retryDelay time.Duration

	mu     sync.Mutex
	subs   map[string]*Subscription
	closed bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHub constructs a hub over listener.
func NewHub(listener Listener, logger *slog.Logger) *Hub {
	return &Hub{
		listener:   listener,
		logger:     logger,
		retryDelay: defaultRetryDelay,
		subs:       make(map[string]*Subscription),
	}
}

// Subscription is a live stream of events for one table. Events is never
// closed; consumers stop on Done.
type Subscription struct {
	table  string
	events chan Event
	done   chan struct{}
	once   sync.Once
	hub    *Hub
}

// Table returns the subscribed table.
func (s *Subscription) Table() string { return s.table }

// Events returns the event stream.
func (s *Subscription) Events() <-chan Event { return s.events }

// Done is closed once the subscription is torn down.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Close unsubscribes. It is safe to call any number of times.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.done)
	})
}

// Subscribe registers interest in table.
func (h *Hub) Subscribe(table string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	if _, ok := h.subs[table]; ok {
		return nil, ErrAlreadySubscribed
	}
	sub := &Subscription{
		table:  table,
		events: make(chan Event, defaultBuffer),
		done:   make(chan struct{}),
		hub:    h,
	}
	h.subs[table] = sub
	return sub, nil
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[s.table] == s {
		delete(h.subs, s.table)
	}
}

func (h *Hub) subscription(table string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.subs[table]
}

// Start launches Run in the background.
func (h *Hub) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.Run(runCtx)
	}()
}

// Run listens until ctx is cancelled, reconnecting after transport errors.
func (h *Hub) Run(ctx context.Context) {
	for ctx.Err() == nil {
		if err := h.listener.Listen(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			h.logger.Warn("change feed listen failed", slog.Any("error", err))
			if !h.wait(ctx) {
				return
			}
			continue
		}

		for {
			payload, err := h.listener.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				h.logger.Warn("change feed interrupted", slog.Any("error", err))
				break
			}
			h.dispatch(ctx, payload)
		}

		if !h.wait(ctx) {
			return
		}
	}
}

func (h *Hub) wait(ctx context.Context) bool {
	timer := time.NewTimer(h.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (h *Hub) dispatch(ctx context.Context, payload []byte) {
	ev, err := ParseEvent(payload)
	if err != nil {
		h.logger.Warn("dropping malformed change event", slog.Any("error", err))
		return
	}

	sub := h.subscription(ev.Table)
	if sub == nil {
		return
	}
	select {
	case sub.events <- ev:
	case <-sub.done:
	case <-ctx.Done():
	}
}

// Close stops Run, closes every subscription and the listener.
func (h *Hub) Close(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	cancel := h.cancel
	subs := make([]*Subscription, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	h.wg.Wait()

	for _, s := range subs {
		s.Close()
	}
	return h.listener.Close(ctx)
}
