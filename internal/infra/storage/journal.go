package storage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/catfeed/internal/core/domain"
)

// Entry is one published result as recorded in the journal.
type Entry struct {
	ID           string            `json:"id"                db:"id"`
	Subscription string            `json:"subscription"      db:"subscription"`
	Kind         domain.ResultKind `json:"kind"              db:"kind"`
	Fact         string            `json:"fact,omitempty"    db:"fact"`
	Message      string            `json:"message,omitempty" db:"message"`
	PublishedAt  time.Time         `json:"published_at"      db:"published_at"`
}

// NewEntry builds a journal entry for res.
func NewEntry(subscription string, res domain.Result, at time.Time) *Entry {
	view := domain.ViewOf(res)
	return &Entry{
		ID:           uuid.New().String(),
		Subscription: subscription,
		Kind:         view.Kind,
		Fact:         view.Fact,
		Message:      view.Message,
		PublishedAt:  at.UTC(),
	}
}

// Result rebuilds the published result.
func (e *Entry) Result() domain.Result {
	return domain.ResultFromView(domain.ResultView{Kind: e.Kind, Fact: e.Fact, Message: e.Message})
}

// JournalRepository stores published results
type JournalRepository interface {
	// Append records an entry
	Append(ctx context.Context, entry *Entry) error

	// Recent returns up to limit entries, newest first. A limit <= 0
	// returns every stored entry.
	Recent(ctx context.Context, limit int) ([]*Entry, error)

	// Count returns the number of stored entries
	Count(ctx context.Context) (int, error)
}

// PrunableJournal is a journal that supports retention
type PrunableJournal interface {
	JournalRepository

	// DeleteOlderThan removes entries published before t and returns how many
	DeleteOlderThan(ctx context.Context, t time.Time) (int64, error)
}
