// Package ledger derives profit-and-loss from the trade history. It is a
// pure calculator: no state, no side effects, safe to re-run on every tick.
package ledger

import (
	"sort"
	"time"

	"trading_go/internal/domain"

	"github.com/shopspring/decimal"
)

// Report aggregates P&L across all instruments.
type Report struct {
	TotalPnL   decimal.Decimal `json:"total_pnl"`
	DayPnL     decimal.Decimal `json:"day_pnl"`
	Unrealized decimal.Decimal `json:"unrealized"`
	Realized   decimal.Decimal `json:"realized"`

	// SkippedSymbols lists symbols whose open trades were excluded because
	// no mark price is known. A market-data gap is a transient condition;
	// the caller logs it rather than failing the whole computation.
	SkippedSymbols []string `json:"skipped_symbols,omitempty"`
}

// ComputePnL computes unrealized P&L for open quantity (mark-to-market) and
// realized P&L for completed pairs (fill price vs fill price), lifetime and
// current-day. marks maps symbol to current mark price.
func ComputePnL(trades []*domain.Trade, marks map[string]decimal.Decimal, now time.Time) Report {
	rep := Report{
		TotalPnL:   decimal.Zero,
		DayPnL:     decimal.Zero,
		Unrealized: decimal.Zero,
		Realized:   decimal.Zero,
	}

	byID := make(map[int64]*domain.Trade, len(trades))
	for _, t := range trades {
		byID[t.ID] = t
	}

	skipped := make(map[string]bool)
	seenPairs := make(map[[2]int64]bool)

	for _, t := range trades {
		switch {
		case t.IsOpen():
			mark, ok := marks[t.Symbol]
			if !ok {
				skipped[t.Symbol] = true
				continue
			}
			pnl := unrealized(t, mark)
			rep.Unrealized = rep.Unrealized.Add(pnl)
			rep.TotalPnL = rep.TotalPnL.Add(pnl)
			if sameDay(t.CreatedAt, now) {
				rep.DayPnL = rep.DayPnL.Add(pnl)
			}

		case t.Status == domain.StatusCompleted && t.CompletedWith != nil:
			counter, ok := byID[*t.CompletedWith]
			if !ok {
				continue
			}
			key := pairKey(t.ID, counter.ID)
			if seenPairs[key] {
				continue // both legs point at each other; count the pair once
			}
			seenPairs[key] = true

			pnl := realized(t, counter)
			rep.Realized = rep.Realized.Add(pnl)
			rep.TotalPnL = rep.TotalPnL.Add(pnl)
			if sameDay(pairCompletedAt(t, counter), now) {
				rep.DayPnL = rep.DayPnL.Add(pnl)
			}
		}
	}

	for sym := range skipped {
		rep.SkippedSymbols = append(rep.SkippedSymbols, sym)
	}
	sort.Strings(rep.SkippedSymbols)
	return rep
}

// unrealized is mark-to-market on the still-open quantity:
// (mark - entry) * sign * qty, with option quantity counted in whole lots.
func unrealized(t *domain.Trade, mark decimal.Decimal) decimal.Decimal {
	qty := lotScaledQty(t, t.RemainingQty)
	return mark.Sub(t.Price).Mul(t.SideSign()).Mul(qty)
}

// realized locks in the spread between the two legs' actual fill prices.
// The buy/sell leg is identified by side, independent of which leg was
// chronologically incoming. Pair quantity is bounded by each leg's filled
// amount, not its original size: a leg closed across several counter-orders
// only matched part of its fill against this one.
func realized(a, b *domain.Trade) decimal.Decimal {
	buy, sell := a, b
	if a.Side == domain.SideSell {
		buy, sell = b, a
	}
	matched := min64(a.OriginalQty-a.RemainingQty, b.OriginalQty-b.RemainingQty)
	qty := lotScaledQty(a, matched)
	return sell.Price.Sub(buy.Price).Mul(qty)
}

// lotScaledQty converts a unit quantity to the amount P&L scales by:
// lotSize * wholeLots for options, the raw quantity for equities/indices.
func lotScaledQty(t *domain.Trade, units int64) decimal.Decimal {
	if t.IsLotBased() {
		lots := units / t.LotSize
		return decimal.NewFromInt(t.LotSize * lots)
	}
	return decimal.NewFromInt(units)
}

// pairCompletedAt is the instant the pair matched: the later of the two
// completion timestamps (the closing leg's).
func pairCompletedAt(a, b *domain.Trade) time.Time {
	var at time.Time
	if a.CompletedAt != nil {
		at = *a.CompletedAt
	}
	if b.CompletedAt != nil && b.CompletedAt.After(at) {
		at = *b.CompletedAt
	}
	return at
}

func sameDay(t, now time.Time) bool {
	t = t.In(now.Location())
	return t.Year() == now.Year() && t.YearDay() == now.YearDay()
}

func pairKey(a, b int64) [2]int64 {
	if a > b {
		a, b = b, a
	}
	return [2]int64{a, b}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
