package event

import (
	"github.com/shopspring/decimal"

	"trading_go/internal/domain"
)

// Event is the unit of work flowing through the sequencer inbox.
type Event interface {
	GetSeq() uint64
	GetType() string
	SetSeq(seq uint64)
}

// BaseEvent carries the fields common to all events.
type BaseEvent struct {
	Seq uint64 `json:"seq"`
	Ts  int64  `json:"ts"` // Unix microseconds
}

func (b *BaseEvent) GetSeq() uint64    { return b.Seq }
func (b *BaseEvent) SetSeq(seq uint64) { b.Seq = seq }

// MarketTickEvent is a mark-price update for a single symbol. This is the
// high-frequency path; acquire instances from the pool.
type MarketTickEvent struct {
	BaseEvent
	Symbol string
	Price  decimal.Decimal
}

func (e *MarketTickEvent) GetType() string { return "MARKET_TICK" }

// SubmitReply is the synchronous answer to an order submission.
type SubmitReply struct {
	Trade *domain.Trade
	Err   error
}

// OrderRequestEvent asks the desk to submit a new order. The raw fields are
// resolved against the instrument registry inside the sequencer.
type OrderRequestEvent struct {
	BaseEvent
	Side      string
	Symbol    string
	Qty       int64
	Price     decimal.Decimal
	OrderType string

	// Reply receives exactly one SubmitReply once the event is processed.
	Reply chan SubmitReply
}

func (e *OrderRequestEvent) GetType() string { return "ORDER_REQUEST" }

// CloseRequestEvent asks the desk to close an open trade at the current
// mark. Quantity and mark are resolved inside the sequencer, not by the
// caller, so the close is atomic with respect to other fills.
type CloseRequestEvent struct {
	BaseEvent
	TradeID int64

	Reply chan SubmitReply
}

func (e *CloseRequestEvent) GetType() string { return "CLOSE_REQUEST" }

// CancelReply is the synchronous answer to a cancel request.
type CancelReply struct {
	Trade *domain.Trade
	Err   error
}

// CancelRequestEvent asks the desk to cancel an open resting trade.
type CancelRequestEvent struct {
	BaseEvent
	TradeID int64

	Reply chan CancelReply
}

func (e *CancelRequestEvent) GetType() string { return "CANCEL_REQUEST" }
