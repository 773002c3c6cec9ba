package orderbook

import "errors"

var (
	// ErrInvalidQuantity rejects zero-quantity orders at the boundary.
	ErrInvalidQuantity = errors.New("orderbook: quantity must be greater than zero")

	// ErrOrderNotFound means the order id is absent from the order index.
	ErrOrderNotFound = errors.New("orderbook: order not found")

	// ErrOrderNotInLevel means the index pointed at a price level that does
	// not hold the order. This is index/level desynchronization, a logic
	// error, and is surfaced rather than swallowed.
	ErrOrderNotInLevel = errors.New("orderbook: order not found in price levels")
)
