// Package feeds contains the exchange feed adapters: a reconnecting
// websocket worker plus one handler per exchange that decodes its wire
// format down to normalized price updates.
package feeds

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cexkit/bookfeed/internal/model"
	"github.com/cexkit/bookfeed/pkg/metrics"
)

// maxMessageBytes guards against malformed or hostile payloads; anything
// larger is dropped before decoding.
const maxMessageBytes = 100_000

// Handler is the exchange-specific half of a feed worker.
type Handler interface {
	// Exchange identifies the feed source.
	Exchange() model.Exchange

	// URL is the websocket endpoint to dial.
	URL() string

	// Subscribe sends any required subscription handshake on a fresh
	// connection. Exchanges that encode the subscription in the URL return
	// nil without writing.
	Subscribe(ctx context.Context, conn *websocket.Conn) error

	// Decode parses one text frame into a price update. ok is false for
	// control frames, non-ticker messages, and unparseable prices.
	Decode(msg []byte, receivedAt time.Time) (update model.PriceUpdate, ok bool, err error)
}

// Worker owns one exchange connection for its lifetime: it dials,
// subscribes, reads until the connection drops, and reconnects with
// exponential backoff. Decoded updates are delivered into out; the worker
// blocks when the channel is full rather than dropping observations.
type Worker struct {
	handler Handler
	out     chan<- model.PriceUpdate
	log     *zap.Logger

	HandshakeTimeout time.Duration
	ReadTimeout      time.Duration
	BackoffBase      time.Duration
	BackoffMax       time.Duration
}

// NewWorker wires a handler to the shared update channel.
func NewWorker(handler Handler, out chan<- model.PriceUpdate, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{
		handler:          handler,
		out:              out,
		log:              log.With(zap.String("exchange", string(handler.Exchange()))),
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      60 * time.Second,
		BackoffBase:      time.Second,
		BackoffMax:       30 * time.Second,
	}
}

// Run blocks until ctx is cancelled, reconnecting whenever the feed drops.
func (w *Worker) Run(ctx context.Context) {
	retries := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connectAndListen(ctx); err != nil {
			w.log.Warn("feed connection ended", zap.Error(err), zap.Int("retries", retries))
		}
		if ctx.Err() != nil {
			return
		}

		delay := w.backoff(retries)
		retries++
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

func (w *Worker) backoff(retries int) time.Duration {
	d := w.BackoffBase << uint(retries)
	if d <= 0 || d > w.BackoffMax {
		d = w.BackoffMax
	}
	return d
}

func (w *Worker) connectAndListen(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: w.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, w.handler.URL(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := w.handler.Subscribe(ctx, conn); err != nil {
		return err
	}
	w.log.Info("feed connected", zap.String("url", w.handler.URL()))

	// Close the socket when ctx ends so the blocked read returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		if err := conn.SetReadDeadline(time.Now().Add(w.ReadTimeout)); err != nil {
			return err
		}
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if msgType != websocket.TextMessage {
			continue
		}
		receivedAt := time.Now()

		if len(msg) > maxMessageBytes {
			metrics.FeedDropped.WithLabelValues(string(w.handler.Exchange()), "oversized").Inc()
			w.log.Warn("dropping oversized feed message", zap.Int("bytes", len(msg)))
			continue
		}

		update, ok, err := w.handler.Decode(msg, receivedAt)
		if err != nil {
			metrics.FeedDropped.WithLabelValues(string(w.handler.Exchange()), "decode").Inc()
			w.log.Warn("failed to decode feed message", zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		select {
		case w.out <- update:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
