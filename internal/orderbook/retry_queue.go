package orderbook

import (
	"sync"

	"github.com/google/uuid"
)

// retryEntry is a market order waiting for liquidity: its id and the
// quantity still unfilled at submission time.
type retryEntry struct {
	id        uuid.UUID
	remaining uint64
}

// retryQueue is an unbounded multi-producer/multi-consumer FIFO. Pop returns
// the oldest enqueued entry first; that ordering is what keeps deferred
// market orders from starving each other.
type retryQueue struct {
	mu      sync.Mutex
	entries []retryEntry
}

func newRetryQueue() *retryQueue {
	return &retryQueue{}
}

func (q *retryQueue) push(e retryEntry) {
	q.mu.Lock()
	q.entries = append(q.entries, e)
	q.mu.Unlock()
}

func (q *retryQueue) pop() (retryEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return retryEntry{}, false
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e, true
}

func (q *retryQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
