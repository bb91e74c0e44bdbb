package adminapi

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jroosing/dnsforward/internal/dnswire"
)

// Metrics is the set of prometheus collectors exposed on /metrics.
// QueriesTotal and UpstreamLatency are kept current by wrapping the
// query pipeline and the upstream sender with InstrumentPipeline and
// InstrumentSender; CacheHits and CacheMisses are kept current by
// WatchCache polling the cache pool's running counters, mirroring the
// closure-snapshot idiom the /api/v1/stats endpoint already uses for
// the same numbers (§11 DOMAIN STACK, poyrazK-cloudDNS's
// prometheus/client_golang given a concrete home here as an optional
// /metrics endpoint).
type Metrics struct {
	Gatherer        prometheus.Gatherer
	QueriesTotal    *prometheus.CounterVec
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	UpstreamLatency prometheus.Histogram
}

// NewMetrics registers the forwarder's collectors against reg, which
// also serves as the /metrics scrape endpoint's gatherer so multiple
// instances (e.g. in tests) don't collide on the default global
// registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Gatherer: reg,
		QueriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dnsforward_queries_total",
			Help: "Total queries handled, labeled by outcome.",
		}, []string{"outcome"}),
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "dnsforward_cache_hits_total",
			Help: "Total cache hits.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "dnsforward_cache_misses_total",
			Help: "Total cache misses.",
		}),
		UpstreamLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dnsforward_upstream_latency_seconds",
			Help:    "Upstream round-trip latency.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Pipeline is the capability InstrumentPipeline wraps, matching
// internal/server's Pipeline and internal/pipeline's Chain without
// importing either package.
type Pipeline interface {
	Run(ctx context.Context, q dnswire.Query) (dnswire.Answer, error)
}

// InstrumentPipeline wraps next so every completed query increments
// QueriesTotal, labeled by the answer's kind ("error" on failure).
func (m *Metrics) InstrumentPipeline(next Pipeline) Pipeline {
	return instrumentedPipeline{next: next, metrics: m}
}

type instrumentedPipeline struct {
	next    Pipeline
	metrics *Metrics
}

func (p instrumentedPipeline) Run(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
	answer, err := p.next.Run(ctx, q)
	if err != nil {
		p.metrics.QueriesTotal.WithLabelValues("error").Inc()
		return answer, err
	}
	p.metrics.QueriesTotal.WithLabelValues(answer.Kind.String()).Inc()
	return answer, nil
}

// Sender is the capability InstrumentSender wraps, matching
// internal/pipeline.Sender without importing it.
type Sender interface {
	Send(ctx context.Context, q dnswire.Query) (dnswire.Answer, error)
}

// InstrumentSender wraps next so every upstream round trip is
// recorded in UpstreamLatency regardless of outcome.
func (m *Metrics) InstrumentSender(next Sender) Sender {
	return instrumentedSender{next: next, metrics: m}
}

type instrumentedSender struct {
	next    Sender
	metrics *Metrics
}

func (s instrumentedSender) Send(ctx context.Context, q dnswire.Query) (dnswire.Answer, error) {
	start := time.Now()
	answer, err := s.next.Send(ctx, q)
	s.metrics.UpstreamLatency.Observe(time.Since(start).Seconds())
	return answer, err
}

// WatchCache polls stats on interval, adding its deltas to CacheHits
// and CacheMisses, until ctx is done. stats reports the pool's
// running totals since construction, the same values the
// /api/v1/stats endpoint reads, so this needs no changes to the
// cache package itself.
func (m *Metrics) WatchCache(ctx context.Context, interval time.Duration, stats func() (hits, misses int64)) {
	var lastHits, lastMisses int64
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hits, misses := stats()
			if d := hits - lastHits; d > 0 {
				m.CacheHits.Add(float64(d))
			}
			if d := misses - lastMisses; d > 0 {
				m.CacheMisses.Add(float64(d))
			}
			lastHits, lastMisses = hits, misses
		}
	}
}
