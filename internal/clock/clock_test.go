package clock

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestFakeClockAfterFuncFiresOnAdvance(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	fake := Fake(start)

	var fired []int
	fake.AfterFunc(2*time.Second, func() { fired = append(fired, 2) })
	fake.AfterFunc(time.Second, func() { fired = append(fired, 1) })

	if fake.Pending() != 2 {
		t.Fatalf("expected 2 pending timers, got %d", fake.Pending())
	}

	fake.Advance(1500 * time.Millisecond)
	if len(fired) != 1 || fired[0] != 1 {
		t.Fatalf("expected only first timer to fire, got %v", fired)
	}

	fake.Advance(time.Second)
	if len(fired) != 2 || fired[1] != 2 {
		t.Fatalf("expected both timers in deadline order, got %v", fired)
	}
	if got := fake.Now(); !got.Equal(start.Add(2500 * time.Millisecond)) {
		t.Fatalf("unexpected fake time %v", got)
	}
	if fake.Pending() != 0 {
		t.Fatalf("expected no pending timers, got %d", fake.Pending())
	}
}

func TestFakeClockStop(t *testing.T) {
	fake := Fake(time.Unix(0, 0))
	called := false
	timer := fake.AfterFunc(time.Second, func() { called = true })

	if !timer.Stop() {
		t.Fatal("expected first stop to report true")
	}
	if timer.Stop() {
		t.Fatal("expected second stop to report false")
	}
	fake.Advance(time.Minute)
	if called {
		t.Fatal("stopped timer must not fire")
	}
}

func TestFakeClockNonPositiveDurationRunsImmediately(t *testing.T) {
	fake := Fake(time.Unix(0, 0))
	called := false
	timer := fake.AfterFunc(0, func() { called = true })
	if !called {
		t.Fatal("expected callback to run synchronously")
	}
	if timer.Stop() {
		t.Fatal("expected stop on fired timer to report false")
	}
}

func TestFakeClockCallbackCanScheduleTimer(t *testing.T) {
	fake := Fake(time.Unix(0, 0))
	var count int32
	fake.AfterFunc(time.Second, func() {
		atomic.AddInt32(&count, 1)
		fake.AfterFunc(time.Second, func() { atomic.AddInt32(&count, 1) })
	})

	fake.Advance(time.Second)
	if atomic.LoadInt32(&count) != 1 {
		t.Fatalf("expected one call, got %d", count)
	}
	fake.Advance(time.Second)
	if atomic.LoadInt32(&count) != 2 {
		t.Fatalf("expected nested timer to fire, got %d", count)
	}
}

func TestRealClock(t *testing.T) {
	c := Real()
	before := time.Now()
	if c.Now().Before(before) {
		t.Fatal("real clock went backwards")
	}
	done := make(chan struct{})
	c.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
}
