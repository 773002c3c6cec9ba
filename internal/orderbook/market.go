package orderbook

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cexkit/bookfeed/internal/model"
	"github.com/cexkit/bookfeed/pkg/metrics"
)

// SubmitMarketOrder matches quantity against the best opposing liquidity. A
// market buy takes asks, a market sell takes bids. Any quantity that cannot
// be filled right now is parked on the side's retry queue and re-attempted
// when limit liquidity arrives; it is never swept to worse levels beyond the
// configured sweep depth inside this call.
//
// The returned value is the unfilled remainder; zero signals a complete fill.
func (ob *OrderBook) SubmitMarketOrder(id uuid.UUID, quantity uint64, side model.Side) (uint64, error) {
	if quantity == 0 {
		return 0, ErrInvalidQuantity
	}
	start := time.Now()
	defer func() { metrics.MatchLatency.Observe(time.Since(start).Seconds()) }()

	remaining := ob.matchMarket(id, quantity, side)
	metrics.OrdersProcessed.WithLabelValues(side.String(), "market").Inc()

	// A completed fill freed no liquidity, but the match may have exposed a
	// better level; give deferred orders on both sides a chance.
	ob.retryDeferred()
	return remaining, nil
}

// matchMarket is the internal submission path shared by SubmitMarketOrder
// and the retry loop. It does not trigger retries itself; it re-enqueues its
// own remainder exactly once, which is what lets the retry loop pop entries
// without double-counting them.
func (ob *OrderBook) matchMarket(id uuid.UUID, quantity uint64, side model.Side) uint64 {
	remaining := quantity
	opposing := side.Opposite()

	for i := 0; i < ob.cfg.MaxSweepLevels && remaining > 0; i++ {
		bestPrice, ok := ob.best(opposing)
		if !ok {
			break
		}
		remaining = ob.matchAtLevel(opposing, bestPrice, remaining)
	}

	if remaining > 0 {
		ob.parkForRetry(id, remaining, side)
	}
	return remaining
}

// parkForRetry parks an unfilled market order for retry. Zero-remaining entries
// must never be enqueued.
func (ob *OrderBook) parkForRetry(id uuid.UUID, remaining uint64, side model.Side) {
	q := ob.retryFor(side)
	q.push(retryEntry{id: id, remaining: remaining})
	metrics.RetryQueueDepth.WithLabelValues(side.String()).Set(float64(q.len()))
}

// retryDeferred re-attempts queued market orders on both sides. Each trigger
// pops at most RetryBatchSize entries per side, so one insert never cascades
// into unbounded processing; whatever is still unfilled goes back on the
// queue via matchMarket.
func (ob *OrderBook) retryDeferred() {
	for _, side := range []model.Side{model.Buy, model.Sell} {
		q := ob.retryFor(side)
		for i := 0; i < ob.cfg.RetryBatchSize; i++ {
			entry, ok := q.pop()
			if !ok {
				break
			}
			if entry.remaining == 0 {
				// Must not happen: enqueue guards against zero remainders.
				// Discard rather than retry.
				ob.log.Warn("discarding zero-remaining retry entry",
					zap.String("order_id", entry.id.String()),
					zap.String("side", side.String()))
				continue
			}
			ob.matchMarket(entry.id, entry.remaining, side)
		}
		metrics.RetryQueueDepth.WithLabelValues(side.String()).Set(float64(q.len()))
	}
}

// PendingMarketOrders reports how many deferred market orders are waiting on
// the given side.
func (ob *OrderBook) PendingMarketOrders(side model.Side) int {
	return ob.retryFor(side).len()
}
