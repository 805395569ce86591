package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vietddude/catfeed/internal/core/domain"
)

var (
	// TicksTotal tracks ticks received from the local generator
	TicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catfeed_ticks_total",
			Help: "Total number of ticks received",
		},
	)

	// RemoteFetchTotal tracks remote fetches per source and outcome
	RemoteFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catfeed_remote_fetch_total",
			Help: "Total number of remote fact fetches",
		},
		[]string{"source", "outcome"},
	)

	// RemoteFetchLatency tracks remote fetch latency
	RemoteFetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catfeed_remote_fetch_latency_seconds",
			Help:    "Remote fact fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// FallbackTotal tracks ticks served by the local generator
	FallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catfeed_fallback_total",
			Help: "Total number of local fallback facts",
		},
		[]string{"reason"},
	)

	// ResultsPublished tracks published results per kind
	ResultsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catfeed_results_published_total",
			Help: "Total number of results published",
		},
		[]string{"kind"},
	)

	// JournalWrites tracks journal appends per backend
	JournalWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catfeed_journal_writes_total",
			Help: "Total number of journal writes",
		},
		[]string{"backend", "outcome"},
	)

	// DBConnectionPoolUsage tracks the percentage of open database connections
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catfeed_db_connection_pool_usage_percent",
			Help: "Database connection pool usage in percent",
		},
	)
)

// Observer records feed pipeline events as prometheus metrics.
type Observer struct {
	source string
}

// NewObserver creates an observer labelling remote metrics with source.
func NewObserver(source string) *Observer {
	return &Observer{source: source}
}

func (o *Observer) TickReceived(domain.Tick) {
	TicksTotal.Inc()
}

func (o *Observer) RemoteFetched(latency time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	RemoteFetchTotal.WithLabelValues(o.source, outcome).Inc()
	RemoteFetchLatency.WithLabelValues(o.source).Observe(latency.Seconds())
}

func (o *Observer) FallbackUsed(err error) {
	reason := "error"
	if domain.IsConnectivity(err) {
		reason = "connectivity"
	}
	FallbackTotal.WithLabelValues(reason).Inc()
}

func (o *Observer) ResultPublished(res domain.Result) {
	ResultsPublished.WithLabelValues(string(domain.KindOf(res))).Inc()
}
