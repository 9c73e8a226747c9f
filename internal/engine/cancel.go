package engine

import (
	"time"

	"trading_go/internal/domain"

	"github.com/shopspring/decimal"
)

// CancelResult is the diff produced by cancelling an open trade.
type CancelResult struct {
	UpdatedTrade *domain.Trade
	MarginDelta  decimal.Decimal
}

// CancelTrade marks an open trade CANCELLED and releases the margin still
// reserved against its remaining quantity. Cancelled is terminal; matched
// quantity stays matched.
func CancelTrade(t *domain.Trade, now time.Time) (*CancelResult, error) {
	if t == nil {
		return nil, domain.ErrTradeNotFound
	}
	if !t.IsOpen() {
		return nil, domain.ErrTradeNotOpen
	}

	updated := *t
	updated.Status = domain.StatusCancelled
	completedAt := now
	updated.CompletedAt = &completedAt

	// Inverse of the reservation taken at submission for the open remainder.
	notional := t.Notional(t.RemainingQty)
	delta := notional
	if t.Side == domain.SideSell {
		delta = notional.Neg()
	}

	return &CancelResult{UpdatedTrade: &updated, MarginDelta: delta}, nil
}
