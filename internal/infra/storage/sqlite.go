package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"trading_go/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage is the system of record for the trade history and the margin
// account. The sequencer writes every match diff here before accepting the
// next event.
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a new SQLite storage instance at the given path.
func NewStorage(dbPath string) (*Storage, error) {
	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.Trade{}, &domain.MarginAccount{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// DefaultDBPath resolves the database file path based on OS.
func DefaultDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "TradingDesk", "data", "desk.db"), nil
}

// ======================================================================================
// Trade Operations
// ======================================================================================

// SaveTrades upserts a batch of trades atomically.
func (s *Storage) SaveTrades(trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, t := range trades {
			if err := tx.Save(t).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadTrades retrieves the full trade history in creation order.
func (s *Storage) LoadTrades() ([]*domain.Trade, error) {
	var trades []*domain.Trade
	err := s.db.Order("id asc").Find(&trades).Error
	return trades, err
}

// LoadOpenTrades retrieves trades that still have matchable quantity.
func (s *Storage) LoadOpenTrades() ([]*domain.Trade, error) {
	var trades []*domain.Trade
	err := s.db.Where("status IN ?", []string{
		domain.StatusExecuted, domain.StatusPartiallyCompleted,
	}).Order("id asc").Find(&trades).Error
	return trades, err
}

// ======================================================================================
// Margin Operations
// ======================================================================================

// SaveMargin upserts the margin account.
func (s *Storage) SaveMargin(acct *domain.MarginAccount) error {
	return s.db.Save(acct).Error
}

// LoadMargin retrieves the margin account, creating a fresh one funded with
// capital when none exists yet.
func (s *Storage) LoadMargin(capital decimal.Decimal) (*domain.MarginAccount, error) {
	var acct domain.MarginAccount
	err := s.db.First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fresh := domain.NewMarginAccount(capital)
		if err := s.db.Create(fresh).Error; err != nil {
			return nil, err
		}
		return fresh, nil
	}
	if err != nil {
		return nil, err
	}
	return &acct, nil
}
