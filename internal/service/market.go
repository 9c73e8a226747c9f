package service

import (
	"sort"
	"sync"

	"trading_go/internal/domain"

	"github.com/shopspring/decimal"
)

// MarketWatch holds the instrument registry and the current mark price per
// symbol. Instruments are immutable after registration; marks mutate on
// every feed tick.
type MarketWatch struct {
	mu          sync.RWMutex
	instruments map[string]domain.Instrument
	marks       map[string]decimal.Decimal
}

// NewMarketWatch creates a MarketWatch seeded with the given instruments.
func NewMarketWatch(instruments []domain.Instrument) *MarketWatch {
	m := &MarketWatch{
		instruments: make(map[string]domain.Instrument, len(instruments)),
		marks:       make(map[string]decimal.Decimal),
	}
	for _, inst := range instruments {
		m.instruments[inst.Symbol] = inst
	}
	return m
}

// Instrument returns the registered instrument for a symbol.
func (m *MarketWatch) Instrument(symbol string) (domain.Instrument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inst, ok := m.instruments[symbol]
	if !ok {
		return domain.Instrument{}, domain.ErrUnknownInstrument
	}
	return inst, nil
}

// Symbols returns all registered symbols sorted for consistent ordering.
func (m *MarketWatch) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]string, 0, len(m.instruments))
	for sym := range m.instruments {
		result = append(result, sym)
	}
	sort.Strings(result)
	return result
}

// UpdateMark sets the current mark price for a symbol.
func (m *MarketWatch) UpdateMark(symbol string, price decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.marks[symbol] = price
}

// Mark returns the current mark price for a symbol.
func (m *MarketWatch) Mark(symbol string) (decimal.Decimal, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	price, ok := m.marks[symbol]
	return price, ok
}

// Marks returns a copy of all current mark prices.
func (m *MarketWatch) Marks() map[string]decimal.Decimal {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]decimal.Decimal, len(m.marks))
	for sym, price := range m.marks {
		result[sym] = price
	}
	return result
}
