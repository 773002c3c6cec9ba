package orderbook

import "sort"

// LevelSummary is one aggregated price level as seen by snapshot consumers.
type LevelSummary struct {
	Price    int64  `json:"price"`
	Quantity uint64 `json:"quantity"`
	Orders   int    `json:"orders"`
}

// Depth returns up to limit aggregated levels per side: bids highest-first,
// asks lowest-first. Levels that emptied but have not been pruned yet are
// skipped. The snapshot is not a consistent point-in-time view across
// levels; it is assembled without stopping the book.
func (ob *OrderBook) Depth(limit int) (bids, asks []LevelSummary) {
	collect := func(b *sideBook) []LevelSummary {
		out := make([]LevelSummary, 0, b.len())
		b.scan(func(price int64, lvl *PriceLevel) bool {
			if n := lvl.OrderCount(); n > 0 {
				out = append(out, LevelSummary{Price: price, Quantity: lvl.TotalQuantity(), Orders: n})
			}
			return true
		})
		return out
	}

	bids = collect(ob.bids)
	asks = collect(ob.asks)
	sort.Slice(bids, func(i, j int) bool { return bids[i].Price > bids[j].Price })
	sort.Slice(asks, func(i, j int) bool { return asks[i].Price < asks[j].Price })
	if limit > 0 {
		if len(bids) > limit {
			bids = bids[:limit]
		}
		if len(asks) > limit {
			asks = asks[:limit]
		}
	}
	return bids, asks
}

// OpenOrders reports how many orders are tracked by the index.
func (ob *OrderBook) OpenOrders() int {
	return ob.orders.len()
}
