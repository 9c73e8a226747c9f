package ledger

import (
	"testing"
	"time"

	"trading_go/internal/domain"

	"github.com/shopspring/decimal"
)

func optionTrade(id int64, side string, qty, remaining int64, price int64, createdAt time.Time) *domain.Trade {
	return &domain.Trade{
		ID:           id,
		Side:         side,
		Symbol:       "NIFTY18000CE",
		Kind:         domain.KindOption,
		LotSize:      75,
		Strike:       decimal.NewFromInt(18000),
		OptionType:   domain.OptionCall,
		OrderType:    domain.OrderTypeMarket,
		OriginalQty:  qty,
		RemainingQty: remaining,
		Price:        decimal.NewFromInt(price),
		Status:       domain.StatusFor(remaining, qty),
		CreatedAt:    createdAt,
	}
}

func equityTrade(id int64, side string, qty, remaining int64, price int64, createdAt time.Time) *domain.Trade {
	return &domain.Trade{
		ID:           id,
		Side:         side,
		Symbol:       "RELIANCE",
		Kind:         domain.KindEquity,
		LotSize:      1,
		OrderType:    domain.OrderTypeMarket,
		OriginalQty:  qty,
		RemainingQty: remaining,
		Price:        decimal.NewFromInt(price),
		Status:       domain.StatusFor(remaining, qty),
		CreatedAt:    createdAt,
	}
}

func link(a, b *domain.Trade, at time.Time) {
	if a.RemainingQty == 0 {
		a.CompletedAt = &at
		a.CompletedWith = &b.ID
	}
	if b.RemainingQty == 0 {
		b.CompletedAt = &at
		b.CompletedWith = &a.ID
	}
}

func TestComputePnL_OpenOption(t *testing.T) {
	// Scenario A: buy 75 @ 90, mark premium 100.
	now := time.Now()
	trades := []*domain.Trade{optionTrade(1, domain.SideBuy, 75, 75, 90, now)}
	marks := map[string]decimal.Decimal{"NIFTY18000CE": decimal.NewFromInt(100)}

	report := ComputePnL(trades, marks, now)

	want := decimal.NewFromInt(750) // (100-90) * 75
	if !report.Unrealized.Equal(want) {
		t.Errorf("unrealized = %s, want %s", report.Unrealized, want)
	}
	if !report.TotalPnL.Equal(want) {
		t.Errorf("total = %s, want %s", report.TotalPnL, want)
	}
	if !report.DayPnL.Equal(want) {
		t.Errorf("day = %s, want %s (created today)", report.DayPnL, want)
	}
}

func TestComputePnL_CompletedPairCountedOnce(t *testing.T) {
	// Scenario B: buy 75 @ 90 fully closed by sell 75 @ 95.
	now := time.Now()
	buy := optionTrade(1, domain.SideBuy, 75, 0, 90, now)
	sell := optionTrade(2, domain.SideSell, 75, 0, 95, now)
	link(buy, sell, now)

	marks := map[string]decimal.Decimal{"NIFTY18000CE": decimal.NewFromInt(100)}
	report := ComputePnL([]*domain.Trade{buy, sell}, marks, now)

	want := decimal.NewFromInt(375) // (95-90) * 75, once, not twice
	if !report.Realized.Equal(want) {
		t.Errorf("realized = %s, want %s", report.Realized, want)
	}
	if !report.Unrealized.IsZero() {
		t.Errorf("unrealized = %s, want 0", report.Unrealized)
	}
	if !report.TotalPnL.Equal(want) {
		t.Errorf("total = %s, want %s", report.TotalPnL, want)
	}
}

func TestComputePnL_PartialClose(t *testing.T) {
	// Scenario C: buy 150 @ 100, sell 50 @ 105 closed against it.
	now := time.Now()
	buy := equityTrade(1, domain.SideBuy, 150, 100, 100, now)
	sell := equityTrade(2, domain.SideSell, 50, 0, 105, now)
	link(buy, sell, now)

	marks := map[string]decimal.Decimal{"RELIANCE": decimal.NewFromInt(110)}
	report := ComputePnL([]*domain.Trade{buy, sell}, marks, now)

	wantRealized := decimal.NewFromInt(250) // (105-100) * 50
	if !report.Realized.Equal(wantRealized) {
		t.Errorf("realized = %s, want %s", report.Realized, wantRealized)
	}
	wantUnrealized := decimal.NewFromInt(1000) // (110-100) * 100 still open
	if !report.Unrealized.Equal(wantUnrealized) {
		t.Errorf("unrealized = %s, want %s", report.Unrealized, wantUnrealized)
	}
	if !report.TotalPnL.Equal(decimal.NewFromInt(1250)) {
		t.Errorf("total = %s, want 1250", report.TotalPnL)
	}
}

func TestComputePnL_InterleavedPartialClose(t *testing.T) {
	// buy 100 @ 100, closed by sell 60 @ 110 and then sell 60 @ 120. The
	// second seller only matched 40 units against the buy; its remaining 20
	// stay open and must be marked-to-market, not realized.
	now := time.Now()
	buy := equityTrade(1, domain.SideBuy, 100, 0, 100, now)
	sell1 := equityTrade(2, domain.SideSell, 60, 0, 110, now)
	sell2 := equityTrade(3, domain.SideSell, 60, 20, 120, now)

	buy.CompletedAt = &now
	buy.CompletedWith = &sell2.ID // final closer
	sell1.CompletedAt = &now
	sell1.CompletedWith = &buy.ID

	marks := map[string]decimal.Decimal{"RELIANCE": decimal.NewFromInt(120)}
	report := ComputePnL([]*domain.Trade{buy, sell1, sell2}, marks, now)

	// (110-100)*60 + (120-100)*40: the buy/sell2 pair realizes the 40 units
	// actually matched, not min of the original sizes.
	wantRealized := decimal.NewFromInt(1400)
	if !report.Realized.Equal(wantRealized) {
		t.Errorf("realized = %s, want %s", report.Realized, wantRealized)
	}
	// sell2's open 20 units at entry 120 vs mark 120.
	if !report.Unrealized.IsZero() {
		t.Errorf("unrealized = %s, want 0", report.Unrealized)
	}
	if !report.TotalPnL.Equal(wantRealized) {
		t.Errorf("total = %s, want %s", report.TotalPnL, wantRealized)
	}
}

func TestComputePnL_ShortGainsWhenMarkFalls(t *testing.T) {
	now := time.Now()
	short := equityTrade(1, domain.SideSell, 10, 10, 100, now)
	marks := map[string]decimal.Decimal{"RELIANCE": decimal.NewFromInt(95)}

	report := ComputePnL([]*domain.Trade{short}, marks, now)

	want := decimal.NewFromInt(50) // (95-100) * -1 * 10
	if !report.Unrealized.Equal(want) {
		t.Errorf("unrealized = %s, want %s", report.Unrealized, want)
	}
}

func TestComputePnL_DayRestriction(t *testing.T) {
	now := time.Now()
	yesterday := now.AddDate(0, 0, -1)

	// Open position from yesterday: counts lifetime, not today.
	oldOpen := equityTrade(1, domain.SideBuy, 10, 10, 100, yesterday)

	// Pair completed yesterday: counts lifetime, not today.
	oldBuy := equityTrade(2, domain.SideBuy, 20, 0, 100, yesterday)
	oldSell := equityTrade(3, domain.SideSell, 20, 0, 110, yesterday)
	link(oldBuy, oldSell, yesterday)

	// Pair completed today.
	newBuy := equityTrade(4, domain.SideBuy, 5, 0, 100, now)
	newSell := equityTrade(5, domain.SideSell, 5, 0, 104, now)
	link(newBuy, newSell, now)

	marks := map[string]decimal.Decimal{"RELIANCE": decimal.NewFromInt(105)}
	report := ComputePnL([]*domain.Trade{oldOpen, oldBuy, oldSell, newBuy, newSell}, marks, now)

	// Lifetime: (105-100)*10 + (110-100)*20 + (104-100)*5 = 50 + 200 + 20
	if !report.TotalPnL.Equal(decimal.NewFromInt(270)) {
		t.Errorf("total = %s, want 270", report.TotalPnL)
	}
	// Today: only the pair completed today.
	if !report.DayPnL.Equal(decimal.NewFromInt(20)) {
		t.Errorf("day = %s, want 20", report.DayPnL)
	}
}

func TestComputePnL_UnknownMarkSkipped(t *testing.T) {
	now := time.Now()
	known := equityTrade(1, domain.SideBuy, 10, 10, 100, now)
	unknown := &domain.Trade{
		ID: 2, Side: domain.SideBuy, Symbol: "GHOST", Kind: domain.KindEquity, LotSize: 1,
		OriginalQty: 10, RemainingQty: 10, Price: decimal.NewFromInt(50),
		Status: domain.StatusExecuted, CreatedAt: now,
	}

	marks := map[string]decimal.Decimal{"RELIANCE": decimal.NewFromInt(110)}
	report := ComputePnL([]*domain.Trade{known, unknown}, marks, now)

	// The gap does not abort the computation; the known leg still counts.
	if !report.TotalPnL.Equal(decimal.NewFromInt(100)) {
		t.Errorf("total = %s, want 100", report.TotalPnL)
	}
	if len(report.SkippedSymbols) != 1 || report.SkippedSymbols[0] != "GHOST" {
		t.Errorf("skipped = %v, want [GHOST]", report.SkippedSymbols)
	}
}

func TestComputePnL_Idempotent(t *testing.T) {
	now := time.Now()
	buy := optionTrade(1, domain.SideBuy, 75, 0, 90, now)
	sell := optionTrade(2, domain.SideSell, 75, 0, 95, now)
	link(buy, sell, now)
	open := optionTrade(3, domain.SideBuy, 150, 150, 92, now)

	trades := []*domain.Trade{buy, sell, open}
	marks := map[string]decimal.Decimal{"NIFTY18000CE": decimal.NewFromInt(100)}

	first := ComputePnL(trades, marks, now)
	second := ComputePnL(trades, marks, now)

	if !first.TotalPnL.Equal(second.TotalPnL) || !first.DayPnL.Equal(second.DayPnL) {
		t.Errorf("ComputePnL is not idempotent: %+v vs %+v", first, second)
	}
}

func TestComputePnL_EmptyHistory(t *testing.T) {
	report := ComputePnL(nil, map[string]decimal.Decimal{}, time.Now())
	if !report.TotalPnL.IsZero() || !report.DayPnL.IsZero() {
		t.Errorf("empty history should be zero-valued, got %+v", report)
	}
}

func TestComputePnL_CancelledExcluded(t *testing.T) {
	now := time.Now()
	cancelled := equityTrade(1, domain.SideBuy, 10, 10, 100, now)
	cancelled.Status = domain.StatusCancelled

	marks := map[string]decimal.Decimal{"RELIANCE": decimal.NewFromInt(200)}
	report := ComputePnL([]*domain.Trade{cancelled}, marks, now)

	if !report.TotalPnL.IsZero() {
		t.Errorf("cancelled trade contributed %s to P&L", report.TotalPnL)
	}
}
