// Package feed implements the fact feed controller.
//
// The controller subscribes to the local generator's tick stream, fetches a
// fact from the remote source on every tick, substitutes a local fact when the
// fetch fails, and publishes each outcome as the current domain.Result:
//
//	ticks ──> [fetch remote ─(err)─> fallback local] ──> deliver ──> state
//	          (one goroutine per tick)                 (single writer)
//
// Fetches of different ticks run concurrently, so results are published in
// completion order rather than tick order.
package feed

import (
	"context"
	"time"

	"github.com/vietddude/catfeed/internal/core/domain"
)

// RemoteSource fetches a fact from a remote service.
type RemoteSource interface {
	FetchFact(ctx context.Context) (domain.Fact, error)
}

// LocalSource generates facts locally and owns the tick timer.
type LocalSource interface {
	// Ticks returns the shared tick stream. The stream is not restartable.
	Ticks(ctx context.Context) <-chan domain.Tick

	// FallbackFact returns a locally generated fact.
	FallbackFact(ctx context.Context) (domain.Fact, error)
}

// Observer receives pipeline events, typically for metrics.
type Observer interface {
	TickReceived(tick domain.Tick)
	RemoteFetched(latency time.Duration, err error)
	FallbackUsed(err error)
	ResultPublished(res domain.Result)
}

type nopObserver struct{}

func (nopObserver) TickReceived(domain.Tick)           {}
func (nopObserver) RemoteFetched(time.Duration, error) {}
func (nopObserver) FallbackUsed(error)                 {}
func (nopObserver) ResultPublished(domain.Result)      {}

// Classify maps a failure that survived the fallback to the Result shown to
// consumers.
func Classify(err error, defaultMsg domain.MessageRef) domain.Result {
	if domain.IsConnectivity(err) {
		return domain.ServerError{}
	}
	return domain.ErrorRes{Message: defaultMsg}
}
