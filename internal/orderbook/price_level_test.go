package orderbook

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cexkit/bookfeed/internal/model"
)

func TestPriceLevelMatchPriceTimePriority(t *testing.T) {
	lvl := NewPriceLevel(10000)
	first := uuid.New()
	second := uuid.New()
	require.True(t, lvl.AddOrder(model.NewOrder(first, 10000, 3, model.Sell)))
	require.True(t, lvl.AddOrder(model.NewOrder(second, 10000, 4, model.Sell)))

	filled, remaining := lvl.Match(5)
	assert.Equal(t, []uuid.UUID{first}, filled, "earliest order is consumed first")
	assert.Equal(t, uint64(0), remaining)
	assert.Equal(t, uint64(2), lvl.TotalQuantity(), "second order partially consumed")
	assert.Equal(t, 1, lvl.OrderCount())
}

func TestPriceLevelMatchExhaustsQueue(t *testing.T) {
	lvl := NewPriceLevel(10000)
	id := uuid.New()
	require.True(t, lvl.AddOrder(model.NewOrder(id, 10000, 5, model.Buy)))

	filled, remaining := lvl.Match(9)
	assert.Equal(t, []uuid.UUID{id}, filled)
	assert.Equal(t, uint64(4), remaining)
	assert.Equal(t, 0, lvl.OrderCount())
	assert.Equal(t, uint64(0), lvl.TotalQuantity())
}

func TestPriceLevelRemoveAndResize(t *testing.T) {
	lvl := NewPriceLevel(5050)
	a, b := uuid.New(), uuid.New()
	require.True(t, lvl.AddOrder(model.NewOrder(a, 5050, 2, model.Buy)))
	require.True(t, lvl.AddOrder(model.NewOrder(b, 5050, 3, model.Buy)))

	assert.True(t, lvl.UpdateQuantity(b, 10))
	assert.Equal(t, uint64(12), lvl.TotalQuantity())

	removed, ok := lvl.RemoveOrder(a)
	require.True(t, ok)
	assert.Equal(t, a, removed.ID)
	assert.Equal(t, uint64(10), lvl.TotalQuantity())

	_, ok = lvl.RemoveOrder(a)
	assert.False(t, ok, "second removal finds nothing")
}

func TestPriceLevelContains(t *testing.T) {
	lvl := NewPriceLevel(10000)
	id := uuid.New()
	require.True(t, lvl.AddOrder(&model.Order{ID: id, Price: 10000, Quantity: 2}))
	assert.True(t, lvl.Contains(id))
	assert.False(t, lvl.Contains(uuid.New()))

	_, removed := lvl.RemoveOrder(id)
	require.True(t, removed)
	assert.False(t, lvl.Contains(id))
}

func TestRetiredLevelRejectsAdds(t *testing.T) {
	lvl := NewPriceLevel(100)
	require.True(t, lvl.retireIfEmpty())
	assert.False(t, lvl.AddOrder(model.NewOrder(uuid.New(), 100, 1, model.Buy)))
}

func TestRetireIfEmptyLeavesPopulatedLevel(t *testing.T) {
	lvl := NewPriceLevel(100)
	require.True(t, lvl.AddOrder(model.NewOrder(uuid.New(), 100, 1, model.Buy)))
	assert.False(t, lvl.retireIfEmpty())
	assert.True(t, lvl.AddOrder(model.NewOrder(uuid.New(), 100, 1, model.Buy)))
}
