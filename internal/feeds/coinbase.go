package feeds

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cexkit/bookfeed/internal/model"
	"github.com/cexkit/bookfeed/pkg/cents"
)

// DefaultCoinbaseURL is the Coinbase Exchange websocket feed. Coinbase lists
// BTC-USD, not BTC-USDT.
const DefaultCoinbaseURL = "wss://ws-feed.exchange.coinbase.com"

type coinbaseSubscription struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

type coinbaseMessage struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Time      string `json:"time"` // ISO 8601
}

// Coinbase decodes the Coinbase ticker channel.
type Coinbase struct {
	url     string
	product string
}

// NewCoinbase uses the given endpoint, or DefaultCoinbaseURL when empty.
func NewCoinbase(url string) *Coinbase {
	if url == "" {
		url = DefaultCoinbaseURL
	}
	return &Coinbase{url: url, product: "BTC-USD"}
}

func (c *Coinbase) Exchange() model.Exchange { return model.ExchangeCoinbase }
func (c *Coinbase) URL() string              { return c.url }

// Subscribe requests the ticker channel for the product.
func (c *Coinbase) Subscribe(ctx context.Context, conn *websocket.Conn) error {
	sub := coinbaseSubscription{
		Type:       "subscribe",
		ProductIDs: []string{c.product},
		Channels:   []string{"ticker"},
	}
	return conn.WriteJSON(sub)
}

func (c *Coinbase) Decode(msg []byte, receivedAt time.Time) (model.PriceUpdate, bool, error) {
	var m coinbaseMessage
	if err := json.Unmarshal(msg, &m); err != nil {
		return model.PriceUpdate{}, false, err
	}
	if m.Type != "ticker" || m.ProductID == "" || m.Price == "" {
		// Subscription confirmations, heartbeats, errors.
		return model.PriceUpdate{}, false, nil
	}
	price, err := cents.Parse(m.Price)
	if err != nil {
		return model.PriceUpdate{}, false, err
	}

	// Coinbase reports the event time as an ISO 8601 string.
	var exchangeTS int64
	if m.Time != "" {
		if ts, err := time.Parse(time.RFC3339Nano, m.Time); err == nil {
			exchangeTS = ts.UnixMilli()
		}
	}

	return model.PriceUpdate{
		Exchange:          model.ExchangeCoinbase,
		Symbol:            m.ProductID,
		PriceCents:        price,
		ExchangeTimestamp: exchangeTS,
		ReceivedAt:        receivedAt,
	}, true, nil
}
