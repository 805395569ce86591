// Package state provides a latest-value holder that one goroutine publishes
// into and any number of readers observe.
package state

import (
	"context"
	"sync"
)

// Latest holds the most recently published value of T.
//
// Set is meant to be called from a single goroutine. Readers either poll with
// Get or follow publications with Watch. A slow watcher never blocks Set: its
// one-slot buffer is overwritten, so it always ends up on the latest value.
type Latest[T any] struct {
	mu       sync.RWMutex
	value    T
	version  uint64
	closed   bool
	nextID   uint64
	watchers map[uint64]chan T
	done     chan struct{}
}

// NewLatest creates an empty holder.
func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{
		watchers: make(map[uint64]chan T),
		done:     make(chan struct{}),
	}
}

// Get returns the current value and its version. Version 0 means nothing has
// been published yet.
func (l *Latest[T]) Get() (T, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value, l.version
}

// Set publishes v. It is a no-op after Close.
func (l *Latest[T]) Set(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	l.value = v
	l.version++

	for _, ch := range l.watchers {
		// Drop the stale value if the watcher has not consumed it
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- v:
		default:
		}
	}
}

// Watch returns a channel that yields the current value (if any) and every
// later publication. It closes when ctx is done or the holder is closed.
func (l *Latest[T]) Watch(ctx context.Context) <-chan T {
	ch := make(chan T, 1)

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		close(ch)
		return ch
	}
	if l.version > 0 {
		ch <- l.value
	}
	id := l.nextID
	l.nextID++
	l.watchers[id] = ch
	l.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-l.done:
		}
		l.unwatch(id)
	}()

	return ch
}

// Watchers returns the number of active watchers.
func (l *Latest[T]) Watchers() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.watchers)
}

// Close stops publication and closes every watcher channel. Safe to call
// more than once.
func (l *Latest[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	for id, ch := range l.watchers {
		close(ch)
		delete(l.watchers, id)
	}
	close(l.done)
}

// Closed reports whether Close has been called.
func (l *Latest[T]) Closed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.closed
}

func (l *Latest[T]) unwatch(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ch, ok := l.watchers[id]; ok {
		close(ch)
		delete(l.watchers, id)
	}
}
