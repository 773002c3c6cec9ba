// Package api exposes the HTTP surface: market-data queries, order
// submission for trading clients, health, and prometheus metrics. The
// matching core itself has no wire format; this layer adapts it.
package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cexkit/bookfeed/internal/aggregator"
	"github.com/cexkit/bookfeed/internal/model"
	"github.com/cexkit/bookfeed/internal/orderbook"
	"github.com/cexkit/bookfeed/pkg/cents"
)

// Server holds the handler dependencies.
type Server struct {
	book *orderbook.OrderBook
	agg  *aggregator.Aggregator
	log  *zap.Logger
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(book *orderbook.OrderBook, agg *aggregator.Aggregator, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{book: book, agg: agg, log: log}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(ginzap.Ginzap(log, time.RFC3339, true))
	r.Use(ginzap.RecoveryWithZap(log, true))

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.GET("/book/best", s.bestPrices)
		v1.GET("/book/depth", s.depth)
		v1.GET("/feeds", s.feeds)
		v1.POST("/orders", s.submitOrder)
		v1.PUT("/orders/:id", s.modifyOrder)
		v1.DELETE("/orders/:id", s.cancelOrder)
	}
	return r
}

// formatCents renders integer cents as a decimal string, e.g. 9524575 ->
// "95245.75".
func formatCents(c int64) string {
	return decimal.New(c, -2).StringFixed(2)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "symbol": s.book.Symbol()})
}

func (s *Server) bestPrices(c *gin.Context) {
	resp := gin.H{"symbol": s.book.Symbol(), "last_traded_at": s.book.LastTradedAt()}
	if bid, ok := s.book.BestBid(); ok {
		resp["best_bid"] = formatCents(bid)
	}
	if ask, ok := s.book.BestAsk(); ok {
		resp["best_ask"] = formatCents(ask)
	}
	c.JSON(http.StatusOK, resp)
}

type depthLevel struct {
	Price    string `json:"price"`
	Quantity uint64 `json:"quantity"`
	Orders   int    `json:"orders"`
}

func (s *Server) depth(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	bids, asks := s.book.Depth(limit)
	render := func(levels []orderbook.LevelSummary) []depthLevel {
		out := make([]depthLevel, 0, len(levels))
		for _, lv := range levels {
			out = append(out, depthLevel{Price: formatCents(lv.Price), Quantity: lv.Quantity, Orders: lv.Orders})
		}
		return out
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol": s.book.Symbol(),
		"bids":   render(bids),
		"asks":   render(asks),
	})
}

func (s *Server) feeds(c *gin.Context) {
	c.JSON(http.StatusOK, s.agg.Snapshot())
}

type submitOrderRequest struct {
	Type     string `json:"type" binding:"required,oneof=limit market"`
	Side     string `json:"side" binding:"required,oneof=buy sell"`
	Price    string `json:"price"`
	Quantity uint64 `json:"quantity" binding:"required,gt=0"`
}

func sideFromString(s string) model.Side {
	if s == "buy" {
		return model.Buy
	}
	return model.Sell
}

func (s *Server) submitOrder(c *gin.Context) {
	var req submitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	side := sideFromString(req.Side)
	id := uuid.New()

	switch req.Type {
	case "limit":
		price, err := cents.Parse(req.Price)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price is not a valid decimal"})
			return
		}
		if _, err := s.book.AddLimitOrder(id, price, req.Quantity, side); err != nil {
			s.renderBookError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"order_id": id.String()})
	case "market":
		remaining, err := s.book.SubmitMarketOrder(id, req.Quantity, side)
		if err != nil {
			s.renderBookError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"order_id":  id.String(),
			"remaining": remaining,
			"filled":    req.Quantity - remaining,
		})
	}
}

type modifyOrderRequest struct {
	Price    *string `json:"price"`
	Quantity *uint64 `json:"quantity"`
}

func (s *Server) modifyOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	var req modifyOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var mod orderbook.OrderModification
	switch {
	case req.Price != nil && req.Quantity != nil:
		price, err := cents.Parse(*req.Price)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price is not a valid decimal"})
			return
		}
		mod = orderbook.UpdatePriceAndQuantity{ID: id, NewPrice: price, NewQuantity: *req.Quantity}
	case req.Price != nil:
		price, err := cents.Parse(*req.Price)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price is not a valid decimal"})
			return
		}
		mod = orderbook.UpdatePrice{ID: id, NewPrice: price}
	case req.Quantity != nil:
		mod = orderbook.UpdateQuantity{ID: id, NewQuantity: *req.Quantity}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to modify"})
		return
	}

	if err := s.book.UpdateOrder(mod); err != nil {
		s.renderBookError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id.String()})
}

func (s *Server) cancelOrder(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	if err := s.book.UpdateOrder(orderbook.Cancel{ID: id}); err != nil {
		s.renderBookError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id.String()})
}

func (s *Server) renderBookError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orderbook.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, orderbook.ErrInvalidQuantity):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, orderbook.ErrOrderNotInLevel):
		// Index/level desynchronization is a logic error; surface loudly.
		s.log.Error("order book inconsistency", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
