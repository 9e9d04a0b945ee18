package notify

import (
	"math/rand"
	"testing"
	"time"

	"github.com/polkiloo/orderboard/internal/clock"
	"github.com/polkiloo/orderboard/internal/domain/model"
)

type batchRecorder struct {
	batches []recordedBatch
}

type recordedBatch struct {
	orderID string
	items   []model.ItemLine
	at      time.Time
}

func newRecordingBatcher(clk *clock.FakeClock, quiet time.Duration) (*Batcher, *batchRecorder) {
	rec := &batchRecorder{}
	b := NewBatcher(clk, quiet, func(orderID string, items []model.ItemLine) {
		rec.batches = append(rec.batches, recordedBatch{orderID: orderID, items: items, at: clk.Now()})
	})
	return b, rec
}

func item(name string, qty int) model.ItemLine {
	return model.ItemLine{Name: name, Quantity: qty}
}

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestBatcherCollapsesBurst(t *testing.T) {
	clk := clock.Fake(epoch)
	b, rec := newRecordingBatcher(clk, 2*time.Second)

	b.Enqueue("o1", item("Dal", 1))
	for _, name := range []string{"Naan", "Rice", "Lassi"} {
		clk.Advance(1500 * time.Millisecond)
		b.Enqueue("o1", item(name, 1))
	}
	clk.Advance(1999 * time.Millisecond)
	if len(rec.batches) != 0 {
		t.Fatalf("flushed while the quiet period was still open: %+v", rec.batches)
	}

	clk.Advance(time.Millisecond)
	if len(rec.batches) != 1 {
		t.Fatalf("expected exactly one batch, got %d", len(rec.batches))
	}
	got := rec.batches[0]
	if got.orderID != "o1" || len(got.items) != 4 || got.items[3].Name != "Lassi" {
		t.Fatalf("unexpected batch %+v", got)
	}
	if b.Pending() != 0 {
		t.Fatalf("expected entry to be removed, pending=%d", b.Pending())
	}

	clk.Advance(10 * time.Second)
	if len(rec.batches) != 1 {
		t.Fatal("batch must fire exactly once")
	}
}

func TestBatcherRandomBurstsFlushOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 50; run++ {
		clk := clock.Fake(epoch)
		b, rec := newRecordingBatcher(clk, DefaultQuietPeriod)

		n := 1 + rng.Intn(20)
		var last time.Time
		for i := 0; i < n; i++ {
			if i > 0 {
				clk.Advance(time.Duration(rng.Int63n(int64(DefaultQuietPeriod))))
			}
			b.Enqueue("o1", item("x", i+1))
			last = clk.Now()
			if len(rec.batches) != 0 {
				t.Fatalf("run %d: flushed mid-burst", run)
			}
		}

		clk.Advance(DefaultQuietPeriod)
		if len(rec.batches) != 1 || len(rec.batches[0].items) != n {
			t.Fatalf("run %d: expected one batch of %d items, got %+v", run, n, rec.batches)
		}
		if !rec.batches[0].at.Equal(last.Add(DefaultQuietPeriod)) {
			t.Fatalf("run %d: flushed at %v, want %v", run, rec.batches[0].at, last.Add(DefaultQuietPeriod))
		}
	}
}

func TestBatcherOrdersAreIndependent(t *testing.T) {
	clk := clock.Fake(epoch)
	b, rec := newRecordingBatcher(clk, 2*time.Second)

	b.Enqueue("o1", item("Dal", 1))
	clk.Advance(time.Second)
	b.Enqueue("o2", item("Tea", 2))
	if b.Pending() != 2 {
		t.Fatalf("expected two open batches, got %d", b.Pending())
	}

	clk.Advance(time.Second)
	if len(rec.batches) != 1 || rec.batches[0].orderID != "o1" {
		t.Fatalf("expected o1 to flush first, got %+v", rec.batches)
	}
	clk.Advance(time.Second)
	if len(rec.batches) != 2 || rec.batches[1].orderID != "o2" {
		t.Fatalf("expected o2 to flush second, got %+v", rec.batches)
	}
}

func TestBatcherSteadyTrickleNeverFlushes(t *testing.T) {
	clk := clock.Fake(epoch)
	b, rec := newRecordingBatcher(clk, 2*time.Second)

	for i := 0; i < 100; i++ {
		b.Enqueue("o1", item("Water", 1))
		clk.Advance(1900 * time.Millisecond)
	}
	if len(rec.batches) != 0 {
		t.Fatalf("reset-on-activity must starve a steady trickle, got %d batches", len(rec.batches))
	}

	clk.Advance(100 * time.Millisecond)
	if len(rec.batches) != 1 || len(rec.batches[0].items) != 100 {
		t.Fatalf("expected the whole trickle in one batch, got %+v", rec.batches)
	}
}

func TestBatcherKeepsDuplicates(t *testing.T) {
	clk := clock.Fake(epoch)
	b, rec := newRecordingBatcher(clk, time.Second)

	dup := model.ItemLine{ID: 9, Name: "Dal", Quantity: 1}
	b.Enqueue("o1", dup)
	b.Enqueue("o1", dup)
	clk.Advance(time.Second)
	if len(rec.batches) != 1 || len(rec.batches[0].items) != 2 {
		t.Fatalf("expected duplicate delivery to be counted twice, got %+v", rec.batches)
	}
}

func TestBatcherStopClearsTimers(t *testing.T) {
	clk := clock.Fake(epoch)
	b, rec := newRecordingBatcher(clk, 2*time.Second)

	b.Enqueue("o1", item("Dal", 1))
	b.Enqueue("o2", item("Tea", 1))
	b.Stop()

	if b.Pending() != 0 || clk.Pending() != 0 {
		t.Fatalf("expected no outstanding timers, batcher=%d clock=%d", b.Pending(), clk.Pending())
	}
	clk.Advance(time.Minute)
	if len(rec.batches) != 0 {
		t.Fatalf("no batch may fire after Stop, got %+v", rec.batches)
	}

	b.Enqueue("o3", item("Rice", 1))
	if b.Pending() != 0 {
		t.Fatal("enqueue after Stop must be ignored")
	}
}

func TestBatcherDefaultQuietPeriod(t *testing.T) {
	clk := clock.Fake(epoch)
	b, rec := newRecordingBatcher(clk, 0)

	b.Enqueue("o1", item("Dal", 1))
	clk.Advance(DefaultQuietPeriod - time.Millisecond)
	if len(rec.batches) != 0 {
		t.Fatal("flushed before the default quiet period")
	}
	clk.Advance(time.Millisecond)
	if len(rec.batches) != 1 {
		t.Fatal("expected flush after the default quiet period")
	}
}
