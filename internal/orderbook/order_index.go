package orderbook

import (
	"sync"

	"github.com/google/uuid"

	"github.com/cexkit/bookfeed/internal/model"
)

// location records where an order currently rests. The index holds only this
// non-owning lookup; the price level owns the order itself.
type location struct {
	price int64
	side  model.Side
}

const orderIndexShards = 32

type orderIndexShard struct {
	mu sync.RWMutex
	m  map[uuid.UUID]location
}

// orderIndex is a sharded order-id -> location map, so that any caller can
// find and mutate an order's resting level without a linear scan and without
// funnelling through one mutex.
type orderIndex struct {
	shards [orderIndexShards]orderIndexShard
}

func newOrderIndex() *orderIndex {
	idx := &orderIndex{}
	for i := range idx.shards {
		idx.shards[i].m = make(map[uuid.UUID]location)
	}
	return idx
}

func (idx *orderIndex) shard(id uuid.UUID) *orderIndexShard {
	return &idx.shards[uint32(id[0])%orderIndexShards]
}

func (idx *orderIndex) get(id uuid.UUID) (location, bool) {
	s := idx.shard(id)
	s.mu.RLock()
	loc, ok := s.m[id]
	s.mu.RUnlock()
	return loc, ok
}

func (idx *orderIndex) put(id uuid.UUID, loc location) {
	s := idx.shard(id)
	s.mu.Lock()
	s.m[id] = loc
	s.mu.Unlock()
}

// delete removes the entry and reports whether it was present. Concurrent
// matchers may have removed it already; callers treat that as benign.
func (idx *orderIndex) delete(id uuid.UUID) bool {
	s := idx.shard(id)
	s.mu.Lock()
	_, ok := s.m[id]
	delete(s.m, id)
	s.mu.Unlock()
	return ok
}

func (idx *orderIndex) len() int {
	n := 0
	for i := range idx.shards {
		s := &idx.shards[i]
		s.mu.RLock()
		n += len(s.m)
		s.mu.RUnlock()
	}
	return n
}
