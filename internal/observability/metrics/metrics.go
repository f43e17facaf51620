// Package metrics exposes Prometheus instrumentation for the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Strategy label values.
const (
	StrategyNetworkFirst = "network_first"
	StrategyCacheFirst   = "cache_first"
	StrategyNavigation   = "navigation"
	StrategyBypass       = "bypass"
)

// Outcome label values.
const (
	OutcomeNetwork   = "network"
	OutcomeSuccess   = "success"
	OutcomeCacheHit  = "cache_hit"
	OutcomeFallback  = "fallback"
	OutcomeError     = "error"
	OutcomeQueued    = "queued"
	OutcomeDelivered = "delivered"
	OutcomeRequeued  = "requeued"
	OutcomeFailed    = "failed"
)

// Metrics holds the gateway's Prometheus collectors.
type Metrics struct {
	RequestsTotal           *prometheus.CounterVec
	PrecacheInstallsTotal   *prometheus.CounterVec
	PartitionsPurgedTotal   prometheus.Counter
	SyncReplaysTotal        *prometheus.CounterVec
	QueuedWritesTotal       *prometheus.CounterVec
	ConnectivityTransitions *prometheus.CounterVec
	UpstreamDuration        *prometheus.HistogramVec
}

// New registers the gateway collectors on reg and returns them.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vendora_edge_requests_total",
			Help: "Intercepted requests by routing strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		PrecacheInstallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vendora_edge_precache_installs_total",
			Help: "Install attempts of the static shell by outcome.",
		}, []string{"outcome"}),
		PartitionsPurgedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "vendora_edge_partitions_purged_total",
			Help: "Cache partitions deleted during activation.",
		}),
		SyncReplaysTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vendora_edge_sync_replays_total",
			Help: "Pending-write replay results by sync tag and outcome.",
		}, []string{"tag", "outcome"}),
		QueuedWritesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vendora_edge_queued_writes_total",
			Help: "Writes deferred to the pending-write queue by sync tag.",
		}, []string{"tag"}),
		ConnectivityTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vendora_edge_connectivity_transitions_total",
			Help: "Connectivity state transitions by resulting state.",
		}, []string{"state"}),
		UpstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vendora_edge_upstream_duration_seconds",
			Help:    "Upstream fetch latency by routing strategy.",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy"}),
	}
}
