package orderbook

import (
	"sync"

	"github.com/google/uuid"

	"github.com/cexkit/bookfeed/internal/model"
)

// PriceLevel holds every resting order at one exact price on one side.
// Matching within a level honors strict price-time priority: orders are
// consumed in arrival order, never reordered by size or any other key.
//
// A level serializes only at its own mutex; unrelated price levels are never
// blocked. Once retired (removed from its side book while empty) a level
// rejects further adds so that a caller holding a stale handle re-resolves
// the level through the side book instead of writing into a dropped map
// entry.
type PriceLevel struct {
	price int64

	mu       sync.RWMutex
	orders   []*model.Order // FIFO, earliest arrival first
	totalQty uint64
	retired  bool
}

// NewPriceLevel creates an empty level at the given price.
func NewPriceLevel(price int64) *PriceLevel {
	return &PriceLevel{price: price}
}

// Price returns the level's price in cents.
func (pl *PriceLevel) Price() int64 { return pl.price }

// AddOrder appends an order to the level's queue. It returns false if the
// level has been retired, in which case the caller must re-resolve the level
// from the side book and try again.
func (pl *PriceLevel) AddOrder(order *model.Order) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if pl.retired {
		return false
	}
	pl.orders = append(pl.orders, order)
	pl.totalQty += order.Quantity
	return true
}

// OrderCount reports the number of resting orders.
func (pl *PriceLevel) OrderCount() int {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return len(pl.orders)
}

// TotalQuantity reports the aggregate resting quantity.
func (pl *PriceLevel) TotalQuantity() uint64 {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	return pl.totalQty
}

// Match consumes up to quantity from the front of the queue. It returns the
// ids of opposing orders that were fully filled and the portion of the
// incoming quantity that could not be matched at this level.
func (pl *PriceLevel) Match(quantity uint64) (filled []uuid.UUID, remaining uint64) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	remaining = quantity
	for remaining > 0 && len(pl.orders) > 0 {
		front := pl.orders[0]
		if front.Quantity > remaining {
			front.Quantity -= remaining
			pl.totalQty -= remaining
			remaining = 0
			break
		}
		// Front order fully consumed.
		remaining -= front.Quantity
		pl.totalQty -= front.Quantity
		filled = append(filled, front.ID)
		pl.orders[0] = nil
		pl.orders = pl.orders[1:]
	}
	return filled, remaining
}

// RemoveOrder removes the identified order from the queue and returns it.
func (pl *PriceLevel) RemoveOrder(id uuid.UUID) (*model.Order, bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	for i, o := range pl.orders {
		if o.ID == id {
			pl.totalQty -= o.Quantity
			pl.orders = append(pl.orders[:i], pl.orders[i+1:]...)
			return o, true
		}
	}
	return nil, false
}

// UpdateQuantity mutates an order's quantity in place, without losing its
// queue position.
func (pl *PriceLevel) UpdateQuantity(id uuid.UUID, quantity uint64) bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	for _, o := range pl.orders {
		if o.ID == id {
			pl.totalQty = pl.totalQty - o.Quantity + quantity
			o.Quantity = quantity
			return true
		}
	}
	return false
}

// Contains reports whether the identified order is resting in this level.
func (pl *PriceLevel) Contains(id uuid.UUID) bool {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	for _, o := range pl.orders {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Orders returns a copy of the resting queue in priority order.
func (pl *PriceLevel) Orders() []*model.Order {
	pl.mu.RLock()
	defer pl.mu.RUnlock()
	out := make([]*model.Order, len(pl.orders))
	copy(out, pl.orders)
	return out
}

// retireIfEmpty marks the level dead when it holds no orders. Callers must
// hold the owning shard lock so that retirement and map removal are atomic.
func (pl *PriceLevel) retireIfEmpty() bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	if len(pl.orders) > 0 {
		return false
	}
	pl.retired = true
	return true
}
