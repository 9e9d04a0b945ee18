package notify

import (
	"sync"
	"time"

	"github.com/polkiloo/orderboard/internal/clock"
	"github.com/polkiloo/orderboard/internal/domain/model"
)

// DefaultQuietPeriod is how long an order must see no new items before its
// batch is flushed.
const DefaultQuietPeriod = 2 * time.Second

// BatchFunc receives a flushed batch.
type BatchFunc func(orderID string, items []model.ItemLine)

// Batcher debounces items per order. Every Enqueue restarts that order's
// quiet period, so a burst collapses into one callback. An order that keeps
// receiving items faster than the quiet period never flushes.
type Batcher struct {
	clock   clock.Clock
	quiet   time.Duration
	onReady BatchFunc

	mu      sync.Mutex
	pending map[string]*pendingBatch
	seq     uint64
	stopped bool
}

type pendingBatch struct {
	items []model.ItemLine
	timer clock.Timer
	seq   uint64
}

// NewBatcher creates a batcher. A non-positive quiet period falls back to
// DefaultQuietPeriod.
func NewBatcher(clk clock.Clock, quiet time.Duration, onReady BatchFunc) *Batcher {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Batcher{
		clock:   clk,
		quiet:   quiet,
		onReady: onReady,
		pending: make(map[string]*pendingBatch),
	}
}

// Enqueue appends items to the order's pending batch and restarts its timer.
// Duplicates are kept.
func (b *Batcher) Enqueue(orderID string, items ...model.ItemLine) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.stopped {
		return
	}
	p, ok := b.pending[orderID]
	if !ok {
		p = &pendingBatch{}
		b.pending[orderID] = p
	}
	p.items = append(p.items, items...)
	if p.timer != nil {
		p.timer.Stop()
	}
	b.seq++
	seq := b.seq
	p.seq = seq
	p.timer = b.clock.AfterFunc(b.quiet, func() { b.fire(orderID, seq) })
}

func (b *Batcher) fire(orderID string, seq uint64) {
	b.mu.Lock()
	p, ok := b.pending[orderID]
	if b.stopped || !ok || p.seq != seq {
		b.mu.Unlock()
		return
	}
	delete(b.pending, orderID)
	items := p.items
	b.mu.Unlock()

	b.onReady(orderID, items)
}

// Pending returns the number of orders with an open batch.
func (b *Batcher) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Stop cancels every outstanding timer and drops pending batches. Later
// Enqueue calls are ignored.
func (b *Batcher) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stopped = true
	for id, p := range b.pending {
		if p.timer != nil {
			p.timer.Stop()
		}
		delete(b.pending, id)
	}
}
