package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trading_go/internal/api"
	"trading_go/internal/app"
	"trading_go/internal/engine"
	"trading_go/internal/event"
	"trading_go/internal/infra/feed"

	"github.com/gorilla/mux"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	cfg := bootstrap.Config

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Pre-warm the tick event pool
	event.Warmup()

	// 5. Sequencer (The Hotpath Loop)
	seq := engine.NewSequencer(cfg.Desk.InboxSize, bootstrap.Market, bootstrap.Storage,
		bootstrap.Margin, bootstrap.Trades, nil)

	go seq.Run(ctx)
	slog.InfoContext(ctx, "Sequencer (Hotpath) started")

	// 6. Market data feed (Gateway)
	if cfg.Feed.WSURL != "" {
		symbols := cfg.Feed.Symbols
		if len(symbols) == 0 {
			// Default to every configured instrument.
			symbols = bootstrap.Market.Symbols()
		}
		worker := feed.NewWorker(cfg.Feed.WSURL, symbols, seq)
		if err := worker.Connect(ctx); err != nil {
			slog.Error("Failed to connect feed", slog.Any("error", err))
		}
		defer worker.Disconnect()
		slog.InfoContext(ctx, "Feed worker started", slog.Int("symbols", len(symbols)))
	}

	// 7. HTTP API
	router := mux.NewRouter()
	api.NewHandler(seq).SetupRoutes(router)

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("API server listening", slog.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("API server failed", slog.Any("error", err))
		}
	}()

	slog.InfoContext(ctx, "Trading desk fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.InfoContext(ctx, "Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
}
