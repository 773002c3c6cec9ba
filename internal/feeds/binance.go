package feeds

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cexkit/bookfeed/internal/model"
	"github.com/cexkit/bookfeed/pkg/cents"
)

// DefaultBinanceURL streams the BTC/USDT ticker; the subscription is encoded
// in the path, no handshake needed.
const DefaultBinanceURL = "wss://stream.binance.com:9443/ws/btcusdt@ticker"

// binanceTicker is the subset of the 24hr ticker event the feed consumes:
// symbol, last price, and event time in milliseconds.
type binanceTicker struct {
	Symbol    string `json:"s"`
	LastPrice string `json:"c"`
	EventTime int64  `json:"E"`
}

// Binance decodes the Binance combined ticker stream.
type Binance struct {
	url string
}

// NewBinance uses the given endpoint, or DefaultBinanceURL when empty.
func NewBinance(url string) *Binance {
	if url == "" {
		url = DefaultBinanceURL
	}
	return &Binance{url: url}
}

func (b *Binance) Exchange() model.Exchange { return model.ExchangeBinance }
func (b *Binance) URL() string              { return b.url }

func (b *Binance) Subscribe(ctx context.Context, conn *websocket.Conn) error {
	return nil
}

func (b *Binance) Decode(msg []byte, receivedAt time.Time) (model.PriceUpdate, bool, error) {
	var tick binanceTicker
	if err := json.Unmarshal(msg, &tick); err != nil {
		return model.PriceUpdate{}, false, err
	}
	if tick.Symbol == "" || tick.LastPrice == "" {
		return model.PriceUpdate{}, false, nil
	}
	price, err := cents.Parse(tick.LastPrice)
	if err != nil {
		return model.PriceUpdate{}, false, err
	}
	return model.PriceUpdate{
		Exchange:          model.ExchangeBinance,
		Symbol:            tick.Symbol,
		PriceCents:        price,
		ExchangeTimestamp: tick.EventTime,
		ReceivedAt:        receivedAt,
	}, true, nil
}
