package workqueue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func TestScheduleRunsOnce(t *testing.T) {
	var runs atomic.Int32
	w := New(func(ctx context.Context) { runs.Add(1) })
	defer w.Stop()

	if !w.Schedule(0) {
		t.Fatal("Expected first Schedule to succeed")
	}
	waitFor(t, func() bool { return runs.Load() == 1 }, "work did not run")

	time.Sleep(20 * time.Millisecond)
	if runs.Load() != 1 {
		t.Errorf("Expected 1 run, got %d", runs.Load())
	}
}

func TestScheduleAtMostOnePending(t *testing.T) {
	var runs atomic.Int32
	w := New(func(ctx context.Context) { runs.Add(1) })
	defer w.Stop()

	if !w.Schedule(50 * time.Millisecond) {
		t.Fatal("Expected Schedule to succeed")
	}
	if w.Schedule(0) {
		t.Error("Expected second Schedule to be refused while pending")
	}
	if !w.Pending() {
		t.Error("Expected work to be pending")
	}

	waitFor(t, func() bool { return runs.Load() == 1 }, "work did not run")
	time.Sleep(80 * time.Millisecond)
	if runs.Load() != 1 {
		t.Errorf("Expected exactly 1 run, got %d", runs.Load())
	}
}

func TestRescheduleFromWork(t *testing.T) {
	var runs atomic.Int32
	var w *Work
	w = New(func(ctx context.Context) {
		if runs.Add(1) < 3 {
			w.Schedule(time.Millisecond)
		}
	})
	defer w.Stop()

	w.Schedule(0)
	waitFor(t, func() bool { return runs.Load() == 3 }, "work did not reschedule itself")
}

func TestNeverConcurrent(t *testing.T) {
	var running, overlaps, runs atomic.Int32
	var w *Work
	w = New(func(ctx context.Context) {
		if running.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(2 * time.Millisecond)
		running.Add(-1)
		if runs.Add(1) < 10 {
			w.Schedule(0)
		}
	})
	defer w.Stop()

	for i := 0; i < 10; i++ {
		w.Schedule(0)
	}
	waitFor(t, func() bool { return runs.Load() >= 10 }, "work did not finish")
	if overlaps.Load() != 0 {
		t.Errorf("Expected no overlapping runs, got %d", overlaps.Load())
	}
}

func TestCancelDropsPending(t *testing.T) {
	var runs atomic.Int32
	w := New(func(ctx context.Context) { runs.Add(1) })
	defer w.Stop()

	w.Schedule(30 * time.Millisecond)
	if !w.Cancel() {
		t.Error("Expected Cancel to report a pending invocation")
	}
	if w.Pending() {
		t.Error("Expected nothing pending after Cancel")
	}

	time.Sleep(60 * time.Millisecond)
	if runs.Load() != 0 {
		t.Errorf("Expected cancelled work not to run, got %d runs", runs.Load())
	}
	if !w.Schedule(0) {
		t.Error("Expected Schedule to succeed after Cancel")
	}
	waitFor(t, func() bool { return runs.Load() == 1 }, "work did not run after Cancel")
}

func TestStopCancelsRunning(t *testing.T) {
	started := make(chan struct{})
	var sawCancel atomic.Bool
	w := New(func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
	})

	w.Schedule(0)
	<-started
	w.Stop()

	if !sawCancel.Load() {
		t.Error("Expected Stop to wait for the running invocation")
	}
	if w.Schedule(0) {
		t.Error("Expected Schedule to fail after Stop")
	}
}

func TestStopDropsPending(t *testing.T) {
	var runs atomic.Int32
	w := New(func(ctx context.Context) { runs.Add(1) })

	w.Schedule(20 * time.Millisecond)
	w.Stop()
	w.Stop()

	time.Sleep(40 * time.Millisecond)
	if runs.Load() != 0 {
		t.Errorf("Expected no run after Stop, got %d", runs.Load())
	}
}
