// Package aggregator consumes normalized price updates from the exchange
// feeds and maintains a per-exchange, per-side aggregation of observed price
// levels, plus a consolidated cross-exchange view for API consumers.
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/tidwall/btree"
	"go.uber.org/zap"

	"github.com/cexkit/bookfeed/internal/model"
	"github.com/cexkit/bookfeed/pkg/metrics"
)

// maxLevelsPerSide bounds each observation tree; the level farthest from the
// last price is evicted first.
const maxLevelsPerSide = 256

// obsLevel aggregates every observation seen at one exact price.
type obsLevel struct {
	Hits     uint64
	LastSeen time.Time
}

// exchangeBook is one exchange's view: sorted observation levels per side
// plus last-update bookkeeping. Ticker observations sit at the touch, so an
// observation lands in both side trees at its price.
type exchangeBook struct {
	mu       sync.RWMutex
	bids     *btree.Map[int64, *obsLevel]
	asks     *btree.Map[int64, *obsLevel]
	last     int64
	lastAt   time.Time
	latency  time.Duration
	hasLat   bool
	observed uint64
}

func newExchangeBook() *exchangeBook {
	return &exchangeBook{
		bids: &btree.Map[int64, *obsLevel]{},
		asks: &btree.Map[int64, *obsLevel]{},
	}
}

func (eb *exchangeBook) apply(u model.PriceUpdate) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for _, tree := range []*btree.Map[int64, *obsLevel]{eb.bids, eb.asks} {
		lvl, ok := tree.Get(u.PriceCents)
		if !ok {
			lvl = &obsLevel{}
			tree.Set(u.PriceCents, lvl)
		}
		lvl.Hits++
		lvl.LastSeen = u.ReceivedAt

		// Evict the level farthest from the current price once full. Bids
		// drop from the bottom, asks from the top.
		if tree.Len() > maxLevelsPerSide {
			if tree == eb.bids {
				if price, _, ok := tree.Min(); ok {
					tree.Delete(price)
				}
			} else {
				if price, _, ok := tree.Max(); ok {
					tree.Delete(price)
				}
			}
		}
	}

	eb.last = u.PriceCents
	eb.lastAt = u.ReceivedAt
	eb.observed++
	if lat, ok := u.FeedLatency(); ok {
		eb.latency = lat
		eb.hasLat = true
	}
}

// Aggregator is the single consumer of the bounded feed channel.
type Aggregator struct {
	log *zap.Logger

	mu    sync.RWMutex
	books map[model.Exchange]*exchangeBook
}

// New creates an empty aggregator.
func New(log *zap.Logger) *Aggregator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Aggregator{
		log:   log,
		books: make(map[model.Exchange]*exchangeBook),
	}
}

// Run drains the update channel until ctx is cancelled or the channel
// closes.
func (a *Aggregator) Run(ctx context.Context, updates <-chan model.PriceUpdate) {
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			a.Apply(u)
		}
	}
}

// Apply folds one observation into the per-exchange aggregation.
func (a *Aggregator) Apply(u model.PriceUpdate) {
	a.mu.Lock()
	eb, ok := a.books[u.Exchange]
	if !ok {
		eb = newExchangeBook()
		a.books[u.Exchange] = eb
	}
	a.mu.Unlock()

	eb.apply(u)

	metrics.FeedUpdates.WithLabelValues(string(u.Exchange)).Inc()
	metrics.FeedLastPrice.WithLabelValues(string(u.Exchange)).Set(float64(u.PriceCents))
	if lat, ok := u.FeedLatency(); ok {
		metrics.FeedLatency.WithLabelValues(string(u.Exchange)).Observe(lat.Seconds())
	}

	a.log.Debug("price update",
		zap.String("exchange", string(u.Exchange)),
		zap.String("symbol", u.Symbol),
		zap.Int64("price_cents", u.PriceCents))
}

// ExchangeStatus is one exchange's slice of a Snapshot.
type ExchangeStatus struct {
	Exchange      model.Exchange `json:"exchange"`
	LastPrice     int64          `json:"last_price_cents"`
	LastUpdate    time.Time      `json:"last_update"`
	FeedLatencyMs int64          `json:"feed_latency_ms,omitempty"`
	Updates       uint64         `json:"updates"`
	Levels        int            `json:"levels"`
}

// Snapshot is the consolidated cross-exchange view.
type Snapshot struct {
	Exchanges []ExchangeStatus `json:"exchanges"`
	BestBid   int64            `json:"best_bid_cents,omitempty"`
	BestAsk   int64            `json:"best_ask_cents,omitempty"`
}

// Snapshot reports per-exchange status plus the consolidated touch: the
// highest and lowest last-observed prices across exchanges.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	books := make(map[model.Exchange]*exchangeBook, len(a.books))
	for ex, eb := range a.books {
		books[ex] = eb
	}
	a.mu.RUnlock()

	var snap Snapshot
	for ex, eb := range books {
		eb.mu.RLock()
		st := ExchangeStatus{
			Exchange:   ex,
			LastPrice:  eb.last,
			LastUpdate: eb.lastAt,
			Updates:    eb.observed,
			Levels:     eb.bids.Len(),
		}
		if eb.hasLat {
			st.FeedLatencyMs = eb.latency.Milliseconds()
		}
		eb.mu.RUnlock()

		snap.Exchanges = append(snap.Exchanges, st)
		if st.LastPrice > snap.BestBid {
			snap.BestBid = st.LastPrice
		}
		if snap.BestAsk == 0 || (st.LastPrice > 0 && st.LastPrice < snap.BestAsk) {
			snap.BestAsk = st.LastPrice
		}
	}
	return snap
}
