package engine

import (
	"fmt"
	"sort"
	"time"

	"trading_go/internal/domain"

	"github.com/shopspring/decimal"
)

// OrderRequest is a new order submitted to the desk.
type OrderRequest struct {
	Side       string
	Instrument domain.Instrument
	Qty        int64
	Price      decimal.Decimal
	OrderType  string // MARKET, LIMIT, STOPLOSS
}

// Fill is a first-class match record linking the incoming trade to the open
// trade it consumed quantity from.
type Fill struct {
	IncomingID int64
	OpenID     int64
	Qty        int64
	Price      decimal.Decimal // resting trade's fill price
	At         time.Time
}

// MatchResult is the diff a submission produces. The caller commits it to
// its store atomically; nothing passed into SubmitOrder is mutated.
type MatchResult struct {
	NewTrade      *domain.Trade
	UpdatedTrades []*domain.Trade // copies of the opposing trades that matched
	Fills         []Fill
	MarginDelta   decimal.Decimal // signed change to available margin
}

// SubmitOrder validates and matches a new order against the given open
// trades. MARKET orders net greedily against opposite-side open trades for
// the same symbol, oldest first. LIMIT and STOPLOSS orders rest as EXECUTED
// with no matching attempt and reserve their full notional.
//
// Margin is computed from the unmatched remainder only: matched quantity
// nets to zero additional requirement. A buy reserves margin (negative
// delta), a sell releases it.
func SubmitOrder(req OrderRequest, open []*domain.Trade, nextID int64, now time.Time) (*MatchResult, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	inst := req.Instrument
	newTrade := &domain.Trade{
		ID:           nextID,
		Side:         req.Side,
		Symbol:       inst.Symbol,
		Kind:         inst.Kind,
		LotSize:      inst.EffectiveLotSize(),
		OrderType:    req.OrderType,
		OriginalQty:  req.Qty,
		RemainingQty: req.Qty,
		Price:        req.Price,
		Status:       domain.StatusExecuted,
		CreatedAt:    now,
	}
	if inst.Option != nil {
		newTrade.Strike = inst.Option.Strike
		newTrade.OptionType = inst.Option.Type
	}

	result := &MatchResult{NewTrade: newTrade}

	if req.OrderType == domain.OrderTypeMarket {
		matchAgainstOpen(result, open, now)
	}

	// Remainder drives both the final status and the margin reservation.
	remainder := newTrade.RemainingQty
	newTrade.Status = domain.StatusFor(remainder, newTrade.OriginalQty)
	if newTrade.Status == domain.StatusCompleted {
		newTrade.CompletedAt = &now
		last := result.Fills[len(result.Fills)-1]
		openID := last.OpenID
		newTrade.CompletedWith = &openID
	}

	notional := newTrade.Notional(remainder)
	if req.Side == domain.SideBuy {
		result.MarginDelta = notional.Neg()
	} else {
		result.MarginDelta = notional
	}

	newTrade.VerifyInvariant()
	for _, t := range result.UpdatedTrades {
		t.VerifyInvariant()
	}
	return result, nil
}

func validate(req OrderRequest) error {
	if req.Qty <= 0 {
		return &domain.ValidationError{
			Field:  "quantity",
			Reason: "must be positive",
		}
	}
	if req.Instrument.IsLotBased() && req.Qty%req.Instrument.LotSize != 0 {
		return &domain.ValidationError{
			Field:  "quantity",
			Reason: fmt.Sprintf("must be a multiple of lot size %d", req.Instrument.LotSize),
		}
	}
	return nil
}

// matchAgainstOpen walks the eligible opposing trades oldest-first and
// greedily consumes their remaining quantity. Every unit removed from the
// incoming order's remainder is accounted for on exactly one counter-party.
func matchAgainstOpen(result *MatchResult, open []*domain.Trade, now time.Time) {
	incoming := result.NewTrade

	eligible := make([]*domain.Trade, 0, len(open))
	for _, t := range open {
		if t.Symbol == incoming.Symbol && t.Side != incoming.Side && t.IsOpen() {
			eligible = append(eligible, t)
		}
	}
	// Pure time priority: there is no price book, so oldest id wins.
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })

	for _, counter := range eligible {
		if incoming.RemainingQty == 0 {
			break
		}

		matched := min64(incoming.RemainingQty, counter.RemainingQty)

		updated := *counter // copy; the caller owns committing the diff
		updated.RemainingQty -= matched
		updated.Status = domain.StatusFor(updated.RemainingQty, updated.OriginalQty)
		if updated.Status == domain.StatusCompleted {
			completedAt := now
			completedWith := incoming.ID
			updated.CompletedAt = &completedAt
			updated.CompletedWith = &completedWith
		}

		incoming.RemainingQty -= matched
		result.UpdatedTrades = append(result.UpdatedTrades, &updated)
		result.Fills = append(result.Fills, Fill{
			IncomingID: incoming.ID,
			OpenID:     counter.ID,
			Qty:        matched,
			Price:      counter.Price,
			At:         now,
		})
	}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
