package orderbook

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderModification is one of UpdatePrice, UpdateQuantity,
// UpdatePriceAndQuantity, or Cancel. A modification is constructed by the
// caller, applied exactly once via UpdateOrder, and discarded.
type OrderModification interface {
	OrderID() uuid.UUID
}

// UpdatePrice moves an order to a new price level, keeping its quantity.
type UpdatePrice struct {
	ID       uuid.UUID
	NewPrice int64
}

// UpdateQuantity changes an order's quantity in place; the order keeps its
// queue position within its level.
type UpdateQuantity struct {
	ID          uuid.UUID
	NewQuantity uint64
}

// UpdatePriceAndQuantity moves an order to a new price level with a new
// quantity.
type UpdatePriceAndQuantity struct {
	ID          uuid.UUID
	NewPrice    int64
	NewQuantity uint64
}

// Cancel removes an order from the book.
type Cancel struct {
	ID uuid.UUID
}

func (m UpdatePrice) OrderID() uuid.UUID            { return m.ID }
func (m UpdateQuantity) OrderID() uuid.UUID         { return m.ID }
func (m UpdatePriceAndQuantity) OrderID() uuid.UUID { return m.ID }
func (m Cancel) OrderID() uuid.UUID                 { return m.ID }

// UpdateOrder applies a modification to a resting order.
//
// Failure modes follow the book's error taxonomy: ErrOrderNotFound when the
// id is absent from the index; ErrOrderNotInLevel when the index and the
// price levels disagree (a logic error, surfaced loudly); a cancellation
// racing a concurrent fill is the one benign case and succeeds as a no-op.
func (ob *OrderBook) UpdateOrder(mod OrderModification) error {
	loc, ok := ob.orders.get(mod.OrderID())
	if !ok {
		return ErrOrderNotFound
	}
	book := ob.sideFor(loc.side)

	// An already-empty level at the recorded price is pruned opportunistically
	// before the modification is applied.
	if lvl, found := book.get(loc.price); found && lvl.OrderCount() == 0 {
		book.removeIfEmpty(loc.price)
	}

	var err error
	switch m := mod.(type) {
	case UpdatePrice:
		err = ob.moveOrder(loc, m.ID, m.NewPrice, 0, false)
	case UpdatePriceAndQuantity:
		if m.NewQuantity == 0 {
			return ErrInvalidQuantity
		}
		err = ob.moveOrder(loc, m.ID, m.NewPrice, m.NewQuantity, true)
	case UpdateQuantity:
		err = ob.resizeOrder(loc, m.ID, m.NewQuantity)
	case Cancel:
		err = ob.cancelOrder(loc, m.ID)
	default:
		return ErrOrderNotFound
	}
	if err != nil {
		return err
	}

	// Compact: levels emptied by the modification leave the side map.
	if removed := book.pruneEmpty(); removed > 0 {
		ob.invalidateBest(loc.side)
	}
	return nil
}

// moveOrder transfers an order from its current level to a new price,
// optionally replacing its quantity.
func (ob *OrderBook) moveOrder(loc location, id uuid.UUID, newPrice int64, newQuantity uint64, setQuantity bool) error {
	book := ob.sideFor(loc.side)
	lvl, ok := book.get(loc.price)
	if !ok {
		ob.log.Error("order index points at missing price level",
			zap.String("order_id", id.String()),
			zap.Int64("price", loc.price),
			zap.String("side", loc.side.String()))
		return ErrOrderNotInLevel
	}
	order, ok := lvl.RemoveOrder(id)
	if !ok {
		ob.log.Error("order missing from its price level",
			zap.String("order_id", id.String()),
			zap.Int64("price", loc.price),
			zap.String("side", loc.side.String()))
		return ErrOrderNotInLevel
	}

	order.Price = newPrice
	if setQuantity {
		order.Quantity = newQuantity
	}
	ob.insertResting(order)
	return nil
}

// resizeOrder mutates quantity in place within the existing level.
func (ob *OrderBook) resizeOrder(loc location, id uuid.UUID, newQuantity uint64) error {
	if newQuantity == 0 {
		return ErrInvalidQuantity
	}
	book := ob.sideFor(loc.side)
	lvl, ok := book.get(loc.price)
	if !ok {
		ob.log.Error("order index points at missing price level",
			zap.String("order_id", id.String()),
			zap.Int64("price", loc.price),
			zap.String("side", loc.side.String()))
		return ErrOrderNotInLevel
	}
	if !lvl.UpdateQuantity(id, newQuantity) {
		ob.log.Error("order missing from its price level",
			zap.String("order_id", id.String()),
			zap.Int64("price", loc.price),
			zap.String("side", loc.side.String()))
		return ErrOrderNotInLevel
	}
	return nil
}

// cancelOrder removes the order from its level and drops the index entry. An
// order that vanished between the index lookup and the removal was taken by
// a concurrent fill; for cancellation that race is benign and the cancel
// succeeds as a no-op.
func (ob *OrderBook) cancelOrder(loc location, id uuid.UUID) error {
	book := ob.sideFor(loc.side)
	if lvl, ok := book.get(loc.price); ok {
		if _, removed := lvl.RemoveOrder(id); !removed {
			ob.log.Debug("order disappeared during cancel",
				zap.String("order_id", id.String()))
		}
	} else {
		ob.log.Debug("price level disappeared during cancel",
			zap.String("order_id", id.String()),
			zap.Int64("price", loc.price))
	}
	ob.orders.delete(id)
	return nil
}
