package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cexkit/bookfeed/internal/aggregator"
	"github.com/cexkit/bookfeed/internal/model"
	"github.com/cexkit/bookfeed/internal/orderbook"
)

func newTestRouter(t *testing.T) (*gin.Engine, *orderbook.OrderBook, *aggregator.Aggregator) {
	t.Helper()
	book := orderbook.New("BTC/USD", orderbook.Config{}, nil)
	agg := aggregator.New(nil)
	return NewRouter(book, agg, nil), book, agg
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func TestHealthz(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w, body := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "BTC/USD", body["symbol"])
}

func TestSubmitLimitOrderAndBest(t *testing.T) {
	r, _, _ := newTestRouter(t)

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/orders", gin.H{
		"type": "limit", "side": "buy", "price": "95245.75", "quantity": 10,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	_, err := uuid.Parse(body["order_id"].(string))
	require.NoError(t, err)

	w, body = doJSON(t, r, http.MethodGet, "/api/v1/book/best", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "95245.75", body["best_bid"])
	_, hasAsk := body["best_ask"]
	assert.False(t, hasAsk, "no asks resting yet")
}

func TestSubmitLimitOrderRejectsBadPrice(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/orders", gin.H{
		"type": "limit", "side": "buy", "price": "1.2.3", "quantity": 10,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitOrderRejectsZeroQuantity(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w, _ := doJSON(t, r, http.MethodPost, "/api/v1/orders", gin.H{
		"type": "limit", "side": "buy", "price": "100.00", "quantity": 0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitMarketOrderReportsFill(t *testing.T) {
	r, book, _ := newTestRouter(t)
	_, err := book.AddLimitOrder(uuid.New(), 10000, 6, model.Sell)
	require.NoError(t, err)

	w, body := doJSON(t, r, http.MethodPost, "/api/v1/orders", gin.H{
		"type": "market", "side": "buy", "quantity": 10,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, float64(6), body["filled"])
	assert.Equal(t, float64(4), body["remaining"])
}

func TestDepthEndpoint(t *testing.T) {
	r, book, _ := newTestRouter(t)
	_, err := book.AddLimitOrder(uuid.New(), 10000, 5, model.Buy)
	require.NoError(t, err)
	_, err = book.AddLimitOrder(uuid.New(), 9900, 3, model.Buy)
	require.NoError(t, err)
	_, err = book.AddLimitOrder(uuid.New(), 10100, 7, model.Sell)
	require.NoError(t, err)

	w, body := doJSON(t, r, http.MethodGet, "/api/v1/book/depth?limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)

	bids := body["bids"].([]any)
	require.Len(t, bids, 2)
	topBid := bids[0].(map[string]any)
	assert.Equal(t, "100.00", topBid["price"], "bids sorted best first")

	asks := body["asks"].([]any)
	require.Len(t, asks, 1)
}

func TestDepthRejectsBadLimit(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w, _ := doJSON(t, r, http.MethodGet, "/api/v1/book/depth?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doJSON(t, r, http.MethodGet, "/api/v1/book/depth?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestModifyAndCancelOrder(t *testing.T) {
	r, book, _ := newTestRouter(t)
	id := uuid.New()
	_, err := book.AddLimitOrder(id, 10000, 5, model.Buy)
	require.NoError(t, err)

	w, _ := doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/v1/orders/%s", id), gin.H{
		"price": "105.00", "quantity": 8,
	})
	require.Equal(t, http.StatusOK, w.Code)

	best, ok := book.BestBid()
	require.True(t, ok)
	assert.Equal(t, int64(10500), best)

	w, _ = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/orders/%s", id), nil)
	require.Equal(t, http.StatusOK, w.Code)

	_, ok = book.BestBid()
	assert.False(t, ok)
}

func TestModifyUnknownOrderIs404(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w, _ := doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/v1/orders/%s", uuid.New()), gin.H{
		"quantity": 8,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doJSON(t, r, http.MethodDelete, fmt.Sprintf("/api/v1/orders/%s", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestModifyRejectsMalformedID(t *testing.T) {
	r, _, _ := newTestRouter(t)
	w, _ := doJSON(t, r, http.MethodDelete, "/api/v1/orders/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestModifyRejectsEmptyBody(t *testing.T) {
	r, book, _ := newTestRouter(t)
	id := uuid.New()
	_, err := book.AddLimitOrder(id, 10000, 5, model.Buy)
	require.NoError(t, err)

	w, _ := doJSON(t, r, http.MethodPut, fmt.Sprintf("/api/v1/orders/%s", id), gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeedsEndpoint(t *testing.T) {
	r, _, agg := newTestRouter(t)
	agg.Apply(model.PriceUpdate{
		Exchange:   model.ExchangeBinance,
		Symbol:     "BTC/USD",
		PriceCents: 9524575,
		ReceivedAt: time.Now(),
	})

	w, body := doJSON(t, r, http.MethodGet, "/api/v1/feeds", nil)
	require.Equal(t, http.StatusOK, w.Code)
	exchanges := body["exchanges"].([]any)
	require.Len(t, exchanges, 1)
	st := exchanges[0].(map[string]any)
	assert.Equal(t, "binance", st["exchange"])
	assert.Equal(t, float64(9524575), st["last_price_cents"])
}

func TestMetricsExposed(t *testing.T) {
	r, _, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "bookfeed_")
}
