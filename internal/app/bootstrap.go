package app

import (
	"log/slog"

	"trading_go/internal/domain"
	"trading_go/internal/infra"
	"trading_go/internal/infra/storage"
	"trading_go/internal/service"

	"github.com/joho/godotenv"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
	Market  *service.MarketWatch
	Margin  *domain.MarginAccount
	Trades  []*domain.Trade
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB, state reload)
func (b *Bootstrap) Initialize() error {
	slog.Info("Bootstrapping trading desk...")

	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	// 1. Load Config
	cfg, err := infra.LoadConfig("configs/config.yaml")
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	dbPath, err := storage.DefaultDBPath()
	if err != nil {
		return err
	}
	store, err := storage.NewStorage(dbPath)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("Database initialized", slog.String("path", dbPath))

	// 4. Reload desk state: margin account and trade history
	margin, err := store.LoadMargin(cfg.Desk.Capital)
	if err != nil {
		return err
	}
	b.Margin = margin

	trades, err := store.LoadTrades()
	if err != nil {
		return err
	}
	b.Trades = trades

	open, err := store.LoadOpenTrades()
	if err != nil {
		return err
	}
	slog.Info("Desk state reloaded",
		slog.Int("trades", len(trades)),
		slog.Int("open", len(open)),
		slog.String("available_margin", margin.AvailableMargin.String()))

	// 5. Instrument registry
	b.Market = service.NewMarketWatch(cfg.Instruments)
	slog.Info("Instrument registry ready", slog.Int("instruments", len(cfg.Instruments)))

	return nil
}
