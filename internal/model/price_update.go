package model

import "time"

// Exchange identifies a feed source.
type Exchange string

const (
	ExchangeBinance  Exchange = "binance"
	ExchangeCoinbase Exchange = "coinbase"
	ExchangeKraken   Exchange = "kraken"
)

// PriceUpdate is a normalized price observation from one exchange feed.
// PriceCents has already been parsed from the exchange's decimal string.
type PriceUpdate struct {
	Exchange Exchange
	Symbol   string

	// PriceCents is the last traded price in integer cents.
	PriceCents int64

	// ExchangeTimestamp is the event time reported by the exchange in unix
	// milliseconds, zero when the exchange does not report one.
	ExchangeTimestamp int64

	// ReceivedAt is the local instant the frame was read off the socket.
	ReceivedAt time.Time
}

// FeedLatency reports exchange-to-receive latency. It returns false when the
// exchange did not report an event time, or when clock skew makes the
// difference negative.
func (u PriceUpdate) FeedLatency() (time.Duration, bool) {
	if u.ExchangeTimestamp == 0 {
		return 0, false
	}
	d := u.ReceivedAt.Sub(time.UnixMilli(u.ExchangeTimestamp))
	if d < 0 {
		return 0, false
	}
	return d, true
}
