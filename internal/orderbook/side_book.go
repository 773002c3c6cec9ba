package orderbook

// sideBook maps price -> *PriceLevel for one side of the book. It is a
// sharded hash table: each bucket carries its own lock, so concurrent
// operations on different prices proceed independently and there is no
// whole-map lock on the hot path.
//
// Lock order is always shard mutex before level mutex.

import "sync"

const sideBookShards = 32

type sideBookShard struct {
	mu     sync.RWMutex
	levels map[int64]*PriceLevel
}

type sideBook struct {
	shards [sideBookShards]sideBookShard
}

func newSideBook() *sideBook {
	b := &sideBook{}
	for i := range b.shards {
		b.shards[i].levels = make(map[int64]*PriceLevel)
	}
	return b
}

func (b *sideBook) shard(price int64) *sideBookShard {
	// Prices at neighbouring ticks land in different buckets.
	return &b.shards[uint64(price)%sideBookShards]
}

// get returns the level at the exact price, if present.
func (b *sideBook) get(price int64) (*PriceLevel, bool) {
	s := b.shard(price)
	s.mu.RLock()
	lvl, ok := s.levels[price]
	s.mu.RUnlock()
	return lvl, ok
}

// getOrCreate returns the level at price, inserting a fresh one if absent.
// The returned level may have been retired by a concurrent remove; callers
// adding orders must loop until AddOrder succeeds.
func (b *sideBook) getOrCreate(price int64) *PriceLevel {
	s := b.shard(price)
	s.mu.RLock()
	lvl, ok := s.levels[price]
	s.mu.RUnlock()
	if ok {
		return lvl
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if lvl, ok = s.levels[price]; ok {
		return lvl
	}
	lvl = NewPriceLevel(price)
	s.levels[price] = lvl
	return lvl
}

// removeIfEmpty drops the level at price when it holds no orders. The
// emptiness check and the map delete happen under the shard lock, and the
// level is retired at the same instant, so a racing AddOrder either lands
// before the check (count > 0, no removal) or observes the retired flag and
// re-resolves.
func (b *sideBook) removeIfEmpty(price int64) bool {
	s := b.shard(price)
	s.mu.Lock()
	defer s.mu.Unlock()
	lvl, ok := s.levels[price]
	if !ok {
		return false
	}
	if !lvl.retireIfEmpty() {
		return false
	}
	delete(s.levels, price)
	return true
}

// pruneEmpty sweeps the whole side and drops every empty level. Used after
// order modifications; amortized cost is acceptable off the matching path.
func (b *sideBook) pruneEmpty() (removed int) {
	for i := range b.shards {
		s := &b.shards[i]
		s.mu.Lock()
		for price, lvl := range s.levels {
			if lvl.retireIfEmpty() {
				delete(s.levels, price)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// scan visits every level currently in the map. The callback must not call
// back into the side book. Iteration order is unspecified.
func (b *sideBook) scan(fn func(price int64, lvl *PriceLevel) bool) {
	for i := range b.shards {
		s := &b.shards[i]
		s.mu.RLock()
		for price, lvl := range s.levels {
			if !fn(price, lvl) {
				s.mu.RUnlock()
				return
			}
		}
		s.mu.RUnlock()
	}
}

// len reports the number of price levels currently present.
func (b *sideBook) len() int {
	n := 0
	for i := range b.shards {
		s := &b.shards[i]
		s.mu.RLock()
		n += len(s.levels)
		s.mu.RUnlock()
	}
	return n
}
