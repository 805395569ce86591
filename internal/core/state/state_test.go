package state

import (
	"context"
	"testing"
	"time"
)

func TestLatest_GetBeforeSet(t *testing.T) {
	l := NewLatest[string]()

	v, version := l.Get()
	if version != 0 || v != "" {
		t.Errorf("expected empty holder, got %q (version %d)", v, version)
	}
}

func TestLatest_SetAndGet(t *testing.T) {
	l := NewLatest[string]()
	l.Set("a")
	l.Set("b")

	v, version := l.Get()
	if v != "b" {
		t.Errorf("expected b, got %q", v)
	}
	if version != 2 {
		t.Errorf("expected version 2, got %d", version)
	}
}

func TestLatest_WatchReceivesCurrentAndUpdates(t *testing.T) {
	l := NewLatest[int]()
	l.Set(1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := l.Watch(ctx)
	if got := recv(t, ch); got != 1 {
		t.Fatalf("expected current value 1, got %d", got)
	}

	l.Set(2)
	if got := recv(t, ch); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
}

func TestLatest_SlowWatcherSeesLatest(t *testing.T) {
	l := NewLatest[int]()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := l.Watch(ctx)

	for i := 1; i <= 10; i++ {
		l.Set(i)
	}

	if got := recv(t, ch); got != 10 {
		t.Errorf("expected latest value 10, got %d", got)
	}
}

func TestLatest_WatchClosesOnCancel(t *testing.T) {
	l := NewLatest[int]()

	ctx, cancel := context.WithCancel(context.Background())
	ch := l.Watch(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("watch channel not closed after cancel")
	}

	deadline := time.Now().Add(time.Second)
	for l.Watchers() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := l.Watchers(); n != 0 {
		t.Errorf("expected 0 watchers, got %d", n)
	}
}

func TestLatest_Close(t *testing.T) {
	l := NewLatest[int]()
	ch := l.Watch(context.Background())

	l.Close()
	l.Close()

	if _, ok := <-ch; ok {
		t.Fatal("expected closed channel after Close")
	}

	l.Set(5)
	if v, version := l.Get(); v != 0 || version != 0 {
		t.Errorf("Set after Close should be ignored, got %d (version %d)", v, version)
	}

	if _, ok := <-l.Watch(context.Background()); ok {
		t.Error("Watch after Close should return a closed channel")
	}
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}
