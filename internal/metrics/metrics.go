package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Report pipeline counters and histograms, partitioned by chain.

var (
	// Source
	SourcePagesFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taxindexer",
		Subsystem: "source",
		Name:      "pages_fetched_total",
		Help:      "Total raw transaction pages fetched",
	}, []string{"chain"})

	SourceFetchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "taxindexer",
		Subsystem: "source",
		Name:      "fetch_duration_seconds",
		Help:      "Raw transaction page fetch duration",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"chain"})

	SourceRateLimitWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taxindexer",
		Subsystem: "source",
		Name:      "rate_limit_waits_total",
		Help:      "Total fetches delayed by the rate limiter",
	}, []string{"chain"})

	// Normalizer
	NormalizerTransactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taxindexer",
		Subsystem: "normalizer",
		Name:      "transactions_total",
		Help:      "Total raw transactions normalized",
	}, []string{"chain"})

	NormalizerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taxindexer",
		Subsystem: "normalizer",
		Name:      "messages_total",
		Help:      "Total message contexts produced",
	}, []string{"chain"})

	NormalizerUnparseable = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taxindexer",
		Subsystem: "normalizer",
		Name:      "unparseable_messages_total",
		Help:      "Total messages normalized with an empty transfer set because their structure was unparseable",
	}, []string{"chain"})

	// Dispatcher
	DispatchHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taxindexer",
		Subsystem: "dispatch",
		Name:      "handled_total",
		Help:      "Total messages handled by a registered handler",
	}, []string{"chain", "handler"})

	DispatchFallback = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taxindexer",
		Subsystem: "dispatch",
		Name:      "fallback_total",
		Help:      "Total messages routed to the generic transfer-detecting fallback",
	}, []string{"chain"})

	DispatchHandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taxindexer",
		Subsystem: "dispatch",
		Name:      "handler_errors_total",
		Help:      "Total handler failures substituted by the fallback",
	}, []string{"chain", "handler"})

	// Emitter
	RowsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taxindexer",
		Subsystem: "emit",
		Name:      "rows_total",
		Help:      "Total accounting rows emitted",
	}, []string{"chain", "tx_type"})

	// Currency resolution
	CurrencyCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taxindexer",
		Subsystem: "currency",
		Name:      "cache_hits_total",
		Help:      "Total denom/decimals resolutions served from cache",
	}, []string{"chain"})

	CurrencyCacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taxindexer",
		Subsystem: "currency",
		Name:      "cache_misses_total",
		Help:      "Total denom/decimals resolutions requiring a lookup",
	}, []string{"chain"})

	CurrencyLookupFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "taxindexer",
		Subsystem: "currency",
		Name:      "lookup_failures_total",
		Help:      "Total resolver failures degraded to the raw denom",
	}, []string{"chain"})
)
