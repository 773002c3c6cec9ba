// Package model defines the domain types shared between the feed pipeline
// and the order book core.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Side identifies which half of the book an order rests on.
type Side int

const (
	Buy Side = iota
	Sell
)

// Opposite returns the side an incoming order matches against.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// TimeInForce is carried on orders for API completeness. The matching core
// treats every order as GTC; IOC/FOK enforcement lives with the caller.
type TimeInForce int

const (
	GTC TimeInForce = iota
	IOC
	FOK
)

// Order is a resting or incoming order. Prices are integer cents, never
// floating point; quantities are whole units.
type Order struct {
	ID          uuid.UUID
	Price       int64
	Quantity    uint64
	Side        Side
	Timestamp   int64 // submission time, unix milliseconds
	TimeInForce TimeInForce
}

// NewOrder stamps an order with the current time.
func NewOrder(id uuid.UUID, price int64, quantity uint64, side Side) *Order {
	return &Order{
		ID:        id,
		Price:     price,
		Quantity:  quantity,
		Side:      side,
		Timestamp: time.Now().UnixMilli(),
	}
}
