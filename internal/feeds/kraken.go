package feeds

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cexkit/bookfeed/internal/model"
	"github.com/cexkit/bookfeed/pkg/cents"
)

// DefaultKrakenURL is the public Kraken websocket API. Kraken names Bitcoin
// XBT.
const DefaultKrakenURL = "wss://ws.kraken.com"

type krakenSubscription struct {
	Event        string   `json:"event"`
	Pair         []string `json:"pair"`
	Subscription struct {
		Name string `json:"name"`
	} `json:"subscription"`
}

// krakenTickerData carries the fields of the ticker payload the feed uses;
// c is [price, lot volume].
type krakenTickerData struct {
	Close []string `json:"c"`
}

// Kraken decodes the Kraken ticker channel. Data frames are arrays of the
// form [channelID, data, channelName, pair]; object frames carry control
// events (subscription status, heartbeats).
type Kraken struct {
	url  string
	pair string
}

// NewKraken uses the given endpoint, or DefaultKrakenURL when empty.
func NewKraken(url string) *Kraken {
	if url == "" {
		url = DefaultKrakenURL
	}
	return &Kraken{url: url, pair: "XBT/USD"}
}

func (k *Kraken) Exchange() model.Exchange { return model.ExchangeKraken }
func (k *Kraken) URL() string              { return k.url }

// Subscribe requests the ticker subscription for the pair.
func (k *Kraken) Subscribe(ctx context.Context, conn *websocket.Conn) error {
	sub := krakenSubscription{Event: "subscribe", Pair: []string{k.pair}}
	sub.Subscription.Name = "ticker"
	return conn.WriteJSON(sub)
}

func (k *Kraken) Decode(msg []byte, receivedAt time.Time) (model.PriceUpdate, bool, error) {
	var frame []json.RawMessage
	if err := json.Unmarshal(msg, &frame); err != nil {
		// Object frame: control event, not an error.
		return model.PriceUpdate{}, false, nil
	}
	if len(frame) < 4 {
		return model.PriceUpdate{}, false, nil
	}

	var data krakenTickerData
	if err := json.Unmarshal(frame[1], &data); err != nil {
		return model.PriceUpdate{}, false, nil
	}
	if len(data.Close) == 0 || data.Close[0] == "" {
		return model.PriceUpdate{}, false, nil
	}
	price, err := cents.Parse(data.Close[0])
	if err != nil {
		return model.PriceUpdate{}, false, err
	}

	var pair string
	if err := json.Unmarshal(frame[3], &pair); err != nil {
		pair = k.pair
	}

	// The Kraken ticker carries no event timestamp; latency is unknown.
	return model.PriceUpdate{
		Exchange:   model.ExchangeKraken,
		Symbol:     pair,
		PriceCents: price,
		ReceivedAt: receivedAt,
	}, true, nil
}
