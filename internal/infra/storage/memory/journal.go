package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/catfeed/internal/infra/storage"
)

// DefaultCapacity bounds the in-memory journal when none is given.
const DefaultCapacity = 100

// Journal keeps the most recent entries in a ring buffer.
type Journal struct {
	mu      sync.RWMutex
	entries []*storage.Entry
	next    int
	size    int
}

func NewJournal(capacity int) *Journal {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Journal{entries: make([]*storage.Entry, capacity)}
}

func (j *Journal) Append(ctx context.Context, entry *storage.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries[j.next] = entry
	j.next = (j.next + 1) % len(j.entries)
	if j.size < len(j.entries) {
		j.size++
	}
	return nil
}

func (j *Journal) Recent(ctx context.Context, limit int) ([]*storage.Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if limit <= 0 || limit > j.size {
		limit = j.size
	}

	out := make([]*storage.Entry, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (j.next - i + len(j.entries)) % len(j.entries)
		out = append(out, j.entries[idx])
	}
	return out, nil
}

func (j *Journal) Count(ctx context.Context) (int, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.size, nil
}

// DeleteOlderThan drops entries published before t, keeping order.
func (j *Journal) DeleteOlderThan(ctx context.Context, t time.Time) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	// Oldest to newest
	kept := make([]*storage.Entry, 0, j.size)
	for i := j.size; i >= 1; i-- {
		e := j.entries[(j.next-i+len(j.entries))%len(j.entries)]
		if !e.PublishedAt.Before(t) {
			kept = append(kept, e)
		}
	}

	deleted := int64(j.size - len(kept))
	clear(j.entries)
	copy(j.entries, kept)
	j.size = len(kept)
	j.next = len(kept) % len(j.entries)
	return deleted, nil
}
