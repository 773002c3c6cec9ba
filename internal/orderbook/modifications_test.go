package orderbook

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cexkit/bookfeed/internal/model"
)

func TestUpdateOrderUnknownID(t *testing.T) {
	ob := newTestBook(t)
	err := ob.UpdateOrder(Cancel{ID: uuid.New()})
	assert.ErrorIs(t, err, ErrOrderNotFound)

	err = ob.UpdateOrder(UpdatePrice{ID: uuid.New(), NewPrice: 100})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestModifyDanglingIndexEntryIsSurfaced(t *testing.T) {
	ob := newTestBook(t)
	id := uuid.New()
	// Index entry with no level behind it: a structural inconsistency, not a
	// benign race, so every repositioning modification must fail loudly.
	ob.orders.put(id, location{price: 100, side: model.Buy})

	assert.ErrorIs(t, ob.UpdateOrder(UpdateQuantity{ID: id, NewQuantity: 5}), ErrOrderNotInLevel)
	assert.ErrorIs(t, ob.UpdateOrder(UpdatePrice{ID: id, NewPrice: 200}), ErrOrderNotInLevel)
	assert.ErrorIs(t, ob.UpdateOrder(UpdatePriceAndQuantity{ID: id, NewPrice: 200, NewQuantity: 5}), ErrOrderNotInLevel)
}

func TestModifyOrderMissingFromItsLevelIsSurfaced(t *testing.T) {
	ob := newTestBook(t)
	_, err := ob.AddLimitOrder(uuid.New(), 100, 3, model.Buy)
	require.NoError(t, err)

	// The level exists and holds another order, but not this one.
	id := uuid.New()
	ob.orders.put(id, location{price: 100, side: model.Buy})

	assert.ErrorIs(t, ob.UpdateOrder(UpdateQuantity{ID: id, NewQuantity: 5}), ErrOrderNotInLevel)
	assert.ErrorIs(t, ob.UpdateOrder(UpdatePrice{ID: id, NewPrice: 200}), ErrOrderNotInLevel)
}

func TestCancelRemovesOrderEverywhere(t *testing.T) {
	ob := newTestBook(t)
	id := uuid.New()
	_, err := ob.AddLimitOrder(id, 100, 1, model.Buy)
	require.NoError(t, err)

	require.NoError(t, ob.UpdateOrder(Cancel{ID: id}))

	_, ok := ob.BestBid()
	assert.False(t, ok, "cancelled order's level is pruned")
	assert.Equal(t, 0, ob.OpenOrders())

	// Repeating the cancellation fails with not-found, it does not crash.
	err = ob.UpdateOrder(Cancel{ID: id})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestCancelLeavesOtherLevelsIntact(t *testing.T) {
	ob := newTestBook(t)
	first, second := uuid.New(), uuid.New()
	_, err := ob.AddLimitOrder(first, 100, 1, model.Buy)
	require.NoError(t, err)
	_, err = ob.AddLimitOrder(second, 105, 1, model.Buy)
	require.NoError(t, err)

	require.NoError(t, ob.UpdateOrder(Cancel{ID: first}))

	bid, ok := ob.BestBid()
	require.True(t, ok)
	assert.Equal(t, int64(105), bid)

	require.NoError(t, ob.UpdateOrder(Cancel{ID: second}))
	_, ok = ob.BestBid()
	assert.False(t, ok)
	assert.Equal(t, 0, ob.OpenOrders())
}

func TestUpdatePriceMovesOrderBetweenLevels(t *testing.T) {
	ob := newTestBook(t)
	id := uuid.New()
	_, err := ob.AddLimitOrder(id, 100, 1, model.Buy)
	require.NoError(t, err)

	require.NoError(t, ob.UpdateOrder(UpdatePrice{ID: id, NewPrice: 105}))

	bid, ok := ob.BestBid()
	require.True(t, ok)
	assert.Equal(t, int64(105), bid)

	bids, _ := ob.Depth(0)
	require.Len(t, bids, 1, "old level pruned once empty")
	assert.Equal(t, uint64(1), bids[0].Quantity, "quantity carried over")
}

func TestUpdateQuantityInPlace(t *testing.T) {
	ob := newTestBook(t)
	id := uuid.New()
	_, err := ob.AddLimitOrder(id, 105, 1, model.Buy)
	require.NoError(t, err)

	require.NoError(t, ob.UpdateOrder(UpdateQuantity{ID: id, NewQuantity: 5}))

	bids, _ := ob.Depth(0)
	require.Len(t, bids, 1)
	assert.Equal(t, uint64(5), bids[0].Quantity)

	err = ob.UpdateOrder(UpdateQuantity{ID: id, NewQuantity: 0})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestUpdatePriceAndQuantity(t *testing.T) {
	ob := newTestBook(t)
	id := uuid.New()
	_, err := ob.AddLimitOrder(id, 105, 5, model.Buy)
	require.NoError(t, err)

	require.NoError(t, ob.UpdateOrder(UpdatePriceAndQuantity{ID: id, NewPrice: 200, NewQuantity: 25}))

	bids, _ := ob.Depth(0)
	require.Len(t, bids, 1, "old level disappears once it has zero orders")
	assert.Equal(t, int64(200), bids[0].Price)
	assert.Equal(t, uint64(25), bids[0].Quantity)

	// The index follows the order to its new level.
	require.NoError(t, ob.UpdateOrder(Cancel{ID: id}))
	assert.Equal(t, 0, ob.OpenOrders())
	bids, _ = ob.Depth(0)
	assert.Empty(t, bids)
}

func TestUpdatedOrderMatchesAtNewPrice(t *testing.T) {
	ob := newTestBook(t)
	id := uuid.New()
	_, err := ob.AddLimitOrder(id, 90, 5, model.Buy)
	require.NoError(t, err)

	require.NoError(t, ob.UpdateOrder(UpdatePrice{ID: id, NewPrice: 100}))

	remaining, err := ob.SubmitMarketOrder(uuid.New(), 5, model.Sell)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), remaining)
	assert.Equal(t, 0, ob.OpenOrders())
}

func TestModificationKeepsQueuePosition(t *testing.T) {
	ob := newTestBook(t)
	first, second := uuid.New(), uuid.New()
	_, err := ob.AddLimitOrder(first, 100, 2, model.Sell)
	require.NoError(t, err)
	_, err = ob.AddLimitOrder(second, 100, 2, model.Sell)
	require.NoError(t, err)

	// Resizing the first order must not send it to the back of the queue.
	require.NoError(t, ob.UpdateOrder(UpdateQuantity{ID: first, NewQuantity: 1}))

	remaining, err := ob.SubmitMarketOrder(uuid.New(), 1, model.Buy)
	require.NoError(t, err)
	require.Equal(t, uint64(0), remaining)

	err = ob.UpdateOrder(Cancel{ID: first})
	assert.ErrorIs(t, err, ErrOrderNotFound, "first order was consumed first")
	assert.NoError(t, ob.UpdateOrder(Cancel{ID: second}))
}
