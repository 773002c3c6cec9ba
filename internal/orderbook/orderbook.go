// Package orderbook implements the in-memory limit order book: concurrent
// price-level storage, limit and market matching with price-time priority,
// order modification and cancellation, best-price caching, and a retry queue
// for market orders that found no liquidity.
package orderbook

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cexkit/bookfeed/internal/model"
	"github.com/cexkit/bookfeed/pkg/metrics"
)

const (
	// noBestBid / noBestAsk are the cache sentinels for "unknown or empty".
	noBestBid int64 = 0
	noBestAsk int64 = math.MaxInt64

	defaultRetryBatchSize = 4
	defaultMaxSweepLevels = 1
)

// Config carries the tunables injected at construction time.
type Config struct {
	// RetryBatchSize bounds how many deferred market orders are re-attempted
	// per side each time new liquidity arrives.
	RetryBatchSize int

	// MaxSweepLevels bounds how many opposing price levels one market-order
	// submission may walk. 1 preserves single-best-level semantics; the
	// unmatched remainder goes to the retry queue either way.
	MaxSweepLevels int
}

func (c Config) withDefaults() Config {
	if c.RetryBatchSize <= 0 {
		c.RetryBatchSize = defaultRetryBatchSize
	}
	if c.MaxSweepLevels <= 0 {
		c.MaxSweepLevels = defaultMaxSweepLevels
	}
	return c
}

// OrderBook is the aggregate. All operations are synchronous, run to
// completion, and are safe for any number of concurrent callers; there is no
// global lock serializing the book.
type OrderBook struct {
	symbol string
	cfg    Config
	log    *zap.Logger

	bids *sideBook
	asks *sideBook

	// orders maps order id -> (price, side) for O(1) modification lookups.
	orders *orderIndex

	// Best-price hints. These are read-through-verified: a reader confirms
	// the referenced level still holds orders before trusting the value,
	// and falls back to a full side scan otherwise.
	cachedBestBid atomic.Int64
	cachedBestAsk atomic.Int64

	// retryBuys/retrySells hold market orders (by their own side) that ended
	// submission with remaining quantity.
	retryBuys  *retryQueue
	retrySells *retryQueue

	// lastTradedAt is the unix-millisecond timestamp of the most recent
	// successful match, monotonically non-decreasing.
	lastTradedAt atomic.Int64
}

// New creates an empty book for one symbol.
func New(symbol string, cfg Config, log *zap.Logger) *OrderBook {
	if log == nil {
		log = zap.NewNop()
	}
	ob := &OrderBook{
		symbol:     symbol,
		cfg:        cfg.withDefaults(),
		log:        log,
		bids:       newSideBook(),
		asks:       newSideBook(),
		orders:     newOrderIndex(),
		retryBuys:  newRetryQueue(),
		retrySells: newRetryQueue(),
	}
	ob.cachedBestBid.Store(noBestBid)
	ob.cachedBestAsk.Store(noBestAsk)
	return ob
}

// Symbol returns the trading pair this book serves.
func (ob *OrderBook) Symbol() string { return ob.symbol }

// LastTradedAt returns the unix-millisecond timestamp of the last successful
// match, or zero if the book has never traded.
func (ob *OrderBook) LastTradedAt() int64 { return ob.lastTradedAt.Load() }

func (ob *OrderBook) sideFor(s model.Side) *sideBook {
	if s == model.Buy {
		return ob.bids
	}
	return ob.asks
}

func (ob *OrderBook) retryFor(s model.Side) *retryQueue {
	if s == model.Buy {
		return ob.retryBuys
	}
	return ob.retrySells
}

// BestBid returns the highest bid price with resting orders.
func (ob *OrderBook) BestBid() (int64, bool) {
	cached := ob.cachedBestBid.Load()
	if cached != noBestBid {
		// Verify the hinted level still has orders before trusting it.
		if lvl, ok := ob.bids.get(cached); ok && lvl.OrderCount() > 0 {
			return cached, true
		}
	}

	best := noBestBid
	ob.bids.scan(func(price int64, lvl *PriceLevel) bool {
		if lvl.OrderCount() > 0 && price > best {
			best = price
		}
		return true
	})
	ob.cachedBestBid.Store(best)
	if best == noBestBid {
		return 0, false
	}
	return best, true
}

// BestAsk returns the lowest ask price with resting orders.
func (ob *OrderBook) BestAsk() (int64, bool) {
	cached := ob.cachedBestAsk.Load()
	if cached != noBestAsk {
		if lvl, ok := ob.asks.get(cached); ok && lvl.OrderCount() > 0 {
			return cached, true
		}
	}

	best := noBestAsk
	ob.asks.scan(func(price int64, lvl *PriceLevel) bool {
		if lvl.OrderCount() > 0 && price < best {
			best = price
		}
		return true
	})
	ob.cachedBestAsk.Store(best)
	if best == noBestAsk {
		return 0, false
	}
	return best, true
}

func (ob *OrderBook) best(side model.Side) (int64, bool) {
	if side == model.Buy {
		return ob.BestBid()
	}
	return ob.BestAsk()
}

// updateCachedBest records price as a best-price hint if it improves on the
// current one. It never regresses the cache; shrinking is handled by
// invalidateBest plus the verified read path.
func (ob *OrderBook) updateCachedBest(side model.Side, price int64) {
	if side == model.Buy {
		for {
			cur := ob.cachedBestBid.Load()
			if price <= cur || ob.cachedBestBid.CompareAndSwap(cur, price) {
				return
			}
		}
	}
	for {
		cur := ob.cachedBestAsk.Load()
		if price >= cur || ob.cachedBestAsk.CompareAndSwap(cur, price) {
			return
		}
	}
}

// invalidateBest resets one side's hint to its sentinel, forcing the next
// read to rescan.
func (ob *OrderBook) invalidateBest(side model.Side) {
	if side == model.Buy {
		ob.cachedBestBid.Store(noBestBid)
		return
	}
	ob.cachedBestAsk.Store(noBestAsk)
}

// touchLastTrade advances the last-trade timestamp, never backwards.
func (ob *OrderBook) touchLastTrade() {
	now := time.Now().UnixMilli()
	for {
		cur := ob.lastTradedAt.Load()
		if now <= cur || ob.lastTradedAt.CompareAndSwap(cur, now) {
			return
		}
	}
}

// AddLimitOrder submits a limit order. If it crosses the opposing best price
// it matches against that level first; any remainder is inserted as resting
// liquidity and deferred market orders are re-attempted against it.
func (ob *OrderBook) AddLimitOrder(id uuid.UUID, price int64, quantity uint64, side model.Side) (uuid.UUID, error) {
	if quantity == 0 {
		return uuid.Nil, ErrInvalidQuantity
	}
	start := time.Now()
	defer func() { metrics.MatchLatency.Observe(time.Since(start).Seconds()) }()

	remaining := quantity
	opposing := side.Opposite()
	if bestPrice, ok := ob.best(opposing); ok && crosses(side, price, bestPrice) {
		remaining = ob.matchAtLevel(opposing, bestPrice, remaining)
	}

	if remaining > 0 {
		ob.insertResting(model.NewOrder(id, price, remaining, side))
		// New liquidity may satisfy deferred market orders.
		ob.retryDeferred()
	}

	metrics.OrdersProcessed.WithLabelValues(side.String(), "limit").Inc()
	return id, nil
}

// crosses reports whether a limit order at price is marketable against the
// opposing best.
func crosses(side model.Side, price, opposingBest int64) bool {
	if side == model.Buy {
		return price >= opposingBest
	}
	return price <= opposingBest
}

// matchAtLevel matches quantity against the opposing level at price and
// performs the shared post-match bookkeeping: filled opposing orders leave
// the index (entries already removed by a concurrent matcher are tolerated),
// an emptied level is dropped from its side map, and any fill advances the
// last-trade timestamp. It returns the unmatched quantity.
func (ob *OrderBook) matchAtLevel(opposing model.Side, price int64, quantity uint64) uint64 {
	book := ob.sideFor(opposing)
	lvl, ok := book.get(price)
	if !ok {
		// The level vanished between the best-price read and the lookup:
		// treat as no liquidity at that price.
		ob.invalidateBest(opposing)
		return quantity
	}

	filled, remaining := lvl.Match(quantity)
	for _, fid := range filled {
		if !ob.orders.delete(fid) {
			ob.log.Debug("filled order already removed from index",
				zap.String("order_id", fid.String()))
		}
	}
	if lvl.OrderCount() == 0 {
		if book.removeIfEmpty(price) {
			ob.invalidateBest(opposing)
		}
	}
	if remaining < quantity {
		ob.touchLastTrade()
		metrics.MatchesExecuted.Inc()
	}
	return remaining
}

// insertResting places an order into its own side's level, creating the
// level if absent, records it in the index, and refreshes the best hint.
// AddOrder can observe a level retired by a concurrent matcher, in which
// case the level is re-resolved.
func (ob *OrderBook) insertResting(order *model.Order) {
	book := ob.sideFor(order.Side)
	var lvl *PriceLevel
	for {
		lvl = book.getOrCreate(order.Price)
		if lvl.AddOrder(order) {
			break
		}
	}
	ob.orders.put(order.ID, location{price: order.Price, side: order.Side})
	// A match can consume the order between AddOrder and put; that match's
	// index delete precedes the put and would leave a stale entry behind.
	// Re-check and drop the entry when the order is already gone.
	if !lvl.Contains(order.ID) {
		ob.orders.delete(order.ID)
	}
	ob.updateCachedBest(order.Side, order.Price)
}
