// Command bookfeed runs the matching book and the exchange feed pipeline
// behind one HTTP server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/cexkit/bookfeed/internal/aggregator"
	"github.com/cexkit/bookfeed/internal/api"
	"github.com/cexkit/bookfeed/internal/config"
	"github.com/cexkit/bookfeed/internal/feeds"
	"github.com/cexkit/bookfeed/internal/model"
	"github.com/cexkit/bookfeed/internal/orderbook"
	"github.com/cexkit/bookfeed/pkg/logger"
)

func main() {
	// .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("bookfeed exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	book := orderbook.New(cfg.Symbol, orderbook.Config{
		RetryBatchSize: cfg.Book.RetryBatchSize,
		MaxSweepLevels: cfg.Book.MaxSweepLevels,
	}, log.Named("orderbook"))

	agg := aggregator.New(log.Named("aggregator"))
	updates := make(chan model.PriceUpdate, cfg.Feeds.ChannelCapacity)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		agg.Run(ctx, updates)
	}()

	for _, w := range feedWorkers(cfg, updates, log) {
		wg.Add(1)
		go func(w *feeds.Worker) {
			defer wg.Done()
			w.Run(ctx)
		}(w)
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr(),
		Handler:      api.NewRouter(book, agg, log.Named("http")),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening",
			zap.String("addr", srv.Addr),
			zap.String("symbol", cfg.Symbol))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}

	wg.Wait()
	log.Info("bookfeed stopped")
	return nil
}

// feedWorkers builds one websocket worker per enabled exchange.
func feedWorkers(cfg *config.Config, updates chan<- model.PriceUpdate, log *zap.Logger) []*feeds.Worker {
	var workers []*feeds.Worker
	add := func(enabled bool, h feeds.Handler) {
		if !enabled {
			return
		}
		workers = append(workers, feeds.NewWorker(h, updates, log.Named("feeds")))
	}
	add(cfg.Feeds.Binance.Enabled, feeds.NewBinance(cfg.Feeds.Binance.URL))
	add(cfg.Feeds.Coinbase.Enabled, feeds.NewCoinbase(cfg.Feeds.Coinbase.URL))
	add(cfg.Feeds.Kraken.Enabled, feeds.NewKraken(cfg.Feeds.Kraken.URL))
	return workers
}
