package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/catfeed/internal/infra/storage"
)

// Pruner deletes journal entries older than the retention period.
type Pruner struct {
	retention time.Duration
	repo      storage.PrunableJournal
	log       *slog.Logger
}

// NewPruner creates a new Pruner worker.
func NewPruner(retention time.Duration, repo storage.PrunableJournal) *Pruner {
	return &Pruner{
		retention: retention,
		repo:      repo,
		log:       slog.Default().With("component", "pruner"),
	}
}

// Interval returns how often the pruner runs: a tenth of the retention,
// clamped to [1s, 1h].
func (p *Pruner) Interval() time.Duration {
	interval := min(p.retention/10, time.Hour)
	return max(interval, time.Second)
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	ticker := time.NewTicker(p.Interval())
	defer ticker.Stop()

	p.Prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

// Prune runs one pass and returns the number of deleted entries.
func (p *Pruner) Prune(ctx context.Context) int64 {
	threshold := time.Now().Add(-p.retention)

	n, err := p.repo.DeleteOlderThan(ctx, threshold)
	if err != nil {
		p.log.Error("Failed to prune journal", "error", err)
		return 0
	}
	if n > 0 {
		p.log.Debug("Pruned journal", "deleted", n, "before", threshold)
	}
	return n
}
