// Package journal records the feed's published results.
package journal

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/catfeed/internal/core/domain"
	"github.com/vietddude/catfeed/internal/core/state"
	"github.com/vietddude/catfeed/internal/feed/metrics"
	"github.com/vietddude/catfeed/internal/infra/storage"
)

const writeTimeout = 5 * time.Second

// Recorder appends every result it observes to a journal. It follows the
// state with latest-value semantics, so a slow backend may skip results that
// were superseded before it caught up.
type Recorder struct {
	repo         storage.JournalRepository
	backend      string
	subscription string
	log          *slog.Logger
}

// NewRecorder creates a recorder writing to repo. backend labels metrics.
func NewRecorder(repo storage.JournalRepository, backend, subscription string) *Recorder {
	return &Recorder{
		repo:         repo,
		backend:      backend,
		subscription: subscription,
		log:          slog.Default().With("component", "journal", "backend", backend),
	}
}

// Run records results until ctx is done or s is closed.
func (r *Recorder) Run(ctx context.Context, s *state.Latest[domain.Result]) error {
	for res := range s.Watch(ctx) {
		r.record(ctx, res)
	}
	return nil
}

func (r *Recorder) record(ctx context.Context, res domain.Result) {
	entry := storage.NewEntry(r.subscription, res, time.Now())

	// Detached from ctx so the last result still lands during shutdown
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := r.repo.Append(writeCtx, entry); err != nil {
		metrics.JournalWrites.WithLabelValues(r.backend, "failure").Inc()
		r.log.Warn("Failed to record result", "kind", entry.Kind, "error", err)
		return
	}
	metrics.JournalWrites.WithLabelValues(r.backend, "success").Inc()
}
