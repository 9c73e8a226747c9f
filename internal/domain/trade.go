package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade represents one order fill event. It is the central entity of the
// desk: created on order submission, mutated only by the matching engine,
// never deleted (closed trades remain for history).
type Trade struct {
	ID   int64  `gorm:"primaryKey" json:"id"`
	Side string `json:"side"` // "BUY", "SELL"

	// Instrument snapshot. Option fields are zero for equities/indices.
	Symbol     string          `gorm:"index" json:"symbol"`
	Kind       InstrumentKind  `json:"kind"`
	LotSize    int64           `json:"lot_size"`
	Strike     decimal.Decimal `json:"strike,omitempty"`
	OptionType OptionType      `json:"option_type,omitempty"`

	OrderType string `json:"order_type"` // "MARKET", "LIMIT", "STOPLOSS"

	OriginalQty  int64           `json:"original_qty"`
	RemainingQty int64           `json:"remaining_qty"`
	Price        decimal.Decimal `json:"price"`

	Status        string     `gorm:"index" json:"status"`
	CompletedWith *int64     `json:"completed_with,omitempty"` // counterparty that closed the final unit
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	OrderTypeMarket   = "MARKET"
	OrderTypeLimit    = "LIMIT"
	OrderTypeStopLoss = "STOPLOSS"

	StatusExecuted           = "EXECUTED"
	StatusPartiallyCompleted = "PARTIALLY_COMPLETED"
	StatusCompleted          = "COMPLETED"
	StatusCancelled          = "CANCELLED"
)

// StatusFor derives the lifecycle status from fill quantities. CANCELLED is
// terminal and never derived here.
func StatusFor(remaining, original int64) string {
	switch {
	case remaining == 0:
		return StatusCompleted
	case remaining == original:
		return StatusExecuted
	default:
		return StatusPartiallyCompleted
	}
}

// IsOpen reports whether the trade still has quantity available for matching.
func (t *Trade) IsOpen() bool {
	return (t.Status == StatusExecuted || t.Status == StatusPartiallyCompleted) &&
		t.RemainingQty > 0
}

// IsLotBased reports whether quantities on this trade align to a lot size.
func (t *Trade) IsLotBased() bool {
	return t.Kind == KindOption && t.LotSize > 1
}

// EffectiveLotSize returns the trade's lot size, defaulting to 1.
func (t *Trade) EffectiveLotSize() int64 {
	if t.LotSize <= 0 {
		return 1
	}
	return t.LotSize
}

// SideSign returns +1 for a long (buy) trade and -1 for a short (sell) one.
// A long position gains when the mark rises, a short when it falls.
func (t *Trade) SideSign() decimal.Decimal {
	if t.Side == SideBuy {
		return decimal.NewFromInt(1)
	}
	return decimal.NewFromInt(-1)
}

// Notional returns price * qty. Quantities are always in units (a one-lot
// option order has qty == lot size), so lot scaling is already carried by qty.
func (t *Trade) Notional(qty int64) decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(qty))
}

// VerifyInvariant checks the quantity/status invariants. Call after any
// engine mutation; a violation is a programming error, so this panics the
// way the balance book in the event path does.
func (t *Trade) VerifyInvariant() {
	if t.RemainingQty < 0 || t.RemainingQty > t.OriginalQty {
		panic("TRADE_INVARIANT_QTY_OUT_OF_RANGE")
	}
	if t.Status == StatusCancelled {
		return
	}
	if got := StatusFor(t.RemainingQty, t.OriginalQty); got != t.Status {
		panic("TRADE_INVARIANT_STATUS_MISMATCH: " + t.Status + " want " + got)
	}
	if t.Status == StatusCompleted && t.CompletedAt == nil {
		panic("TRADE_INVARIANT_COMPLETED_WITHOUT_TIMESTAMP")
	}
}
