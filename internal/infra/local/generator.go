// Package local generates cat facts without network access.
package local

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/vietddude/catfeed/internal/core/domain"
)

// DefaultInterval is the tick period when none is configured.
const DefaultInterval = 2 * time.Second

// Generator serves random facts from a fixed list and owns the tick timer.
type Generator struct {
	facts    []domain.Fact
	interval time.Duration
	log      *slog.Logger

	tickOnce sync.Once
	ticks    chan domain.Tick
	stop     chan struct{}
	stopOnce sync.Once
}

// NewGenerator creates a generator over facts.
func NewGenerator(facts []domain.Fact, interval time.Duration) (*Generator, error) {
	if len(facts) == 0 {
		return nil, domain.ErrNoFacts
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Generator{
		facts:    append([]domain.Fact(nil), facts...),
		interval: interval,
		log:      slog.Default().With("component", "local"),
		ticks:    make(chan domain.Tick),
		stop:     make(chan struct{}),
	}, nil
}

// Interval returns the tick period.
func (g *Generator) Interval() time.Duration {
	return g.interval
}

// Len returns the number of facts.
func (g *Generator) Len() int {
	return len(g.facts)
}

// RandomFact returns a random fact from the list.
func (g *Generator) RandomFact() domain.Fact {
	return g.facts[rand.IntN(len(g.facts))]
}

// FallbackFact returns a random fact. It only fails when ctx is done.
func (g *Generator) FallbackFact(ctx context.Context) (domain.Fact, error) {
	if err := ctx.Err(); err != nil {
		return domain.Fact{}, err
	}
	return g.RandomFact(), nil
}

// Ticks starts the shared timer on first call and returns its stream. Later
// calls return the same stream; once it closes it never restarts. The stream
// closes when the first caller's ctx is done or Stop is called.
func (g *Generator) Ticks(ctx context.Context) <-chan domain.Tick {
	g.tickOnce.Do(func() {
		go g.run(ctx)
	})
	return g.ticks
}

// Stop ends the tick stream.
func (g *Generator) Stop() {
	g.stopOnce.Do(func() {
		close(g.stop)
	})
}

func (g *Generator) run(ctx context.Context) {
	defer close(g.ticks)

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-g.stop:
			return
		case now := <-ticker.C:
			seq++
			select {
			case g.ticks <- domain.Tick{Seq: seq, At: now}:
			case <-ctx.Done():
				return
			case <-g.stop:
				return
			}
			g.log.Debug("Tick", "seq", seq)
		}
	}
}
