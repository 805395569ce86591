// Package health exposes the feed's state over HTTP and the gRPC health
// protocol.
package health

import (
	"github.com/vietddude/catfeed/internal/core/domain"
	"github.com/vietddude/catfeed/internal/infra/remote"
)

// SystemStatus represents the overall health state of the feed.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// ServiceName is the gRPC health service name of the feed.
const ServiceName = "catfeed.Feed"

// Feed is the read-only view of the controller the servers need.
type Feed interface {
	ID() string
	Current() (domain.Result, bool)
	Disposed() bool
}

// Report is the detailed health report.
type Report struct {
	Status       SystemStatus                   `json:"status"`
	Subscription string                         `json:"subscription"`
	Current      *domain.ResultView             `json:"current,omitempty"`
	Sources      map[string]remote.HealthStatus `json:"sources,omitempty"`
}

// Evaluate derives the system status. A disposed feed is critical; a feed
// whose last result is an error, or whose sources are all unavailable, is
// degraded.
func Evaluate(feed Feed, sources []remote.Source) Report {
	report := Report{
		Status:       StatusHealthy,
		Subscription: feed.ID(),
		Sources:      make(map[string]remote.HealthStatus, len(sources)),
	}

	if res, ok := feed.Current(); ok {
		view := domain.ViewOf(res)
		report.Current = &view
		if view.Kind != domain.KindSuccess {
			report.Status = StatusDegraded
		}
	}

	available := 0
	for _, s := range sources {
		h := s.Health()
		report.Sources[s.Name()] = h
		if s.IsAvailable() {
			available++
		}
	}
	if len(sources) > 0 && available == 0 {
		report.Status = StatusDegraded
	}

	if feed.Disposed() {
		report.Status = StatusCritical
	}
	return report
}
