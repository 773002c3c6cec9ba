// Package metrics holds the prometheus collectors shared across the process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrdersProcessed counts orders accepted by the book, by side and type.
var OrdersProcessed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "bookfeed_orders_processed_total",
		Help: "Total number of orders processed by the order book",
	},
	[]string{"side", "type"},
)

// MatchesExecuted counts successful matches (limit-against-limit and
// market-against-limit).
var MatchesExecuted = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "bookfeed_matches_executed_total",
		Help: "Total number of matches executed",
	},
)

// MatchLatency records latency distribution for matching operations.
var MatchLatency = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "bookfeed_match_latency_seconds",
		Help:    "Latency in seconds for a single matching operation",
		Buckets: prometheus.DefBuckets,
	},
)

// RetryQueueDepth tracks how many deferred market orders are waiting per side.
var RetryQueueDepth = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "bookfeed_retry_queue_depth",
		Help: "Number of market orders queued for retry",
	},
	[]string{"side"},
)

// Feed metrics
var (
	FeedUpdates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookfeed_feed_updates_total",
			Help: "Price observations received per exchange",
		},
		[]string{"exchange"},
	)

	FeedLastPrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bookfeed_feed_last_price_cents",
			Help: "Last observed price in cents per exchange",
		},
		[]string{"exchange"},
	)

	FeedLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bookfeed_feed_latency_seconds",
			Help:    "Exchange-to-receive latency where the exchange reports a timestamp",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"exchange"},
	)

	FeedDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookfeed_feed_dropped_total",
			Help: "Feed messages rejected before decoding (oversized or unparseable)",
		},
		[]string{"exchange", "reason"},
	)
)

func init() {
	prometheus.MustRegister(OrdersProcessed, MatchesExecuted, MatchLatency, RetryQueueDepth)
	prometheus.MustRegister(FeedUpdates, FeedLastPrice, FeedLatency, FeedDropped)
}
