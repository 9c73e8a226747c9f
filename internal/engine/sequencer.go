package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"trading_go/internal/domain"
	"trading_go/internal/event"
	"trading_go/internal/infra"
	"trading_go/internal/ledger"
	"trading_go/internal/service"

	"github.com/shopspring/decimal"
)

// Store is the persistence collaborator the sequencer commits diffs into
// before accepting the next event.
type Store interface {
	SaveTrades(trades []*domain.Trade) error
	SaveMargin(acct *domain.MarginAccount) error
}

// Sequencer is the core single-threaded event processor. Order submissions
// and market ticks are serialized through its inbox, so the matching engine
// is never invoked concurrently for shared state.
type Sequencer struct {
	inbox  chan event.Event
	market *service.MarketWatch
	store  Store

	trades      map[int64]*domain.Trade
	nextTradeID int64
	margin      *domain.MarginAccount

	nextSeq uint64
	posted  uint64
	postMu  sync.Mutex // serializes seq stamping with inbox sends

	// Boundary: used to notify the API layer of fresh P&L
	onReport func(ledger.Report)

	mu         sync.RWMutex // guards state for external reads
	lastReport ledger.Report
}

// NewSequencer creates a new sequencer instance. margin and any reloaded
// trades come from the store at bootstrap.
func NewSequencer(inboxSize int, market *service.MarketWatch, store Store,
	margin *domain.MarginAccount, reloaded []*domain.Trade, onReport func(ledger.Report)) *Sequencer {

	s := &Sequencer{
		inbox:       make(chan event.Event, inboxSize),
		market:      market,
		store:       store,
		trades:      make(map[int64]*domain.Trade),
		nextTradeID: 1,
		margin:      margin,
		nextSeq:     1,
		onReport:    onReport,
	}
	for _, t := range reloaded {
		s.trades[t.ID] = t
		if t.ID >= s.nextTradeID {
			s.nextTradeID = t.ID + 1
		}
	}
	return s
}

// Post stamps the event with the next sequence number and delivers it to
// the inbox. All producers must go through Post so arrival order matches
// sequence order.
func (s *Sequencer) Post(ev event.Event) {
	s.postMu.Lock()
	defer s.postMu.Unlock()
	s.posted++
	ev.SetSeq(s.posted)
	s.inbox <- ev
}

// Run starts the main event loop. This MUST be run in a single goroutine.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started (Single-Thread Hotpath)")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState("panic_dump.json")
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...")
			return
		case ev := <-s.inbox:
			s.processEvent(ev)
		}
	}
}

func (s *Sequencer) processEvent(ev event.Event) {
	// Sequence Gap Check (Halt Policy)
	if ev.GetSeq() != s.nextSeq {
		panic(fmt.Sprintf("SEQUENCE_GAP_DETECTED: expected %d, got %d", s.nextSeq, ev.GetSeq()))
	}

	start := time.Now()

	switch e := ev.(type) {
	case *event.MarketTickEvent:
		s.handleMarketTick(e)
	case *event.OrderRequestEvent:
		s.handleOrderRequest(e)
	case *event.CloseRequestEvent:
		s.handleCloseRequest(e)
	case *event.CancelRequestEvent:
		s.handleCancelRequest(e)
	default:
		slog.Warn("Unknown event type", slog.String("type", ev.GetType()))
	}

	infra.GlobalMetrics.RecordEvent(time.Since(start).Nanoseconds())
	s.nextSeq++
}

func (s *Sequencer) handleMarketTick(e *event.MarketTickEvent) {
	s.market.UpdateMark(e.Symbol, e.Price)
	report := s.recomputeReport()

	infra.GlobalMetrics.RecordTick()
	if len(report.SkippedSymbols) > 0 {
		slog.Warn("P&L skipped symbols with no mark price",
			slog.Any("symbols", report.SkippedSymbols))
	}

	event.ReleaseMarketTickEvent(e)

	if s.onReport != nil {
		s.onReport(report)
	}
}

// recomputeReport re-derives P&L from the full history and current marks.
func (s *Sequencer) recomputeReport() ledger.Report {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := ledger.ComputePnL(s.tradeSliceLocked(), s.market.Marks(), time.Now())
	s.lastReport = report
	return report
}

func (s *Sequencer) handleOrderRequest(e *event.OrderRequestEvent) {
	inst, err := s.market.Instrument(e.Symbol)
	if err != nil {
		infra.GlobalMetrics.RecordOrderRejected()
		e.Reply <- event.SubmitReply{Err: err}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitLocked(OrderRequest{
		Side:       e.Side,
		Instrument: inst,
		Qty:        e.Qty,
		Price:      e.Price,
		OrderType:  e.OrderType,
	}, e.Reply)
}

// handleCloseRequest closes an open trade by submitting an opposite-side
// market order. The remaining quantity and mark are resolved under the same
// lock as the submission, so no fill can land in between and leave a stale
// close quantity.
func (s *Sequencer) handleCloseRequest(e *event.CloseRequestEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trade, ok := s.trades[e.TradeID]
	if !ok {
		e.Reply <- event.SubmitReply{Err: domain.ErrTradeNotFound}
		return
	}
	if !trade.IsOpen() {
		e.Reply <- event.SubmitReply{Err: domain.ErrTradeNotOpen}
		return
	}
	inst, err := s.market.Instrument(trade.Symbol)
	if err != nil {
		e.Reply <- event.SubmitReply{Err: err}
		return
	}
	mark, ok := s.market.Mark(trade.Symbol)
	if !ok {
		e.Reply <- event.SubmitReply{Err: domain.ErrUnknownInstrument}
		return
	}

	side := domain.SideSell
	if trade.Side == domain.SideSell {
		side = domain.SideBuy
	}
	s.submitLocked(OrderRequest{
		Side:       side,
		Instrument: inst,
		Qty:        trade.RemainingQty,
		Price:      mark,
		OrderType:  domain.OrderTypeMarket,
	}, e.Reply)
}

// submitLocked runs the matcher and commits the resulting diff. Caller holds mu.
func (s *Sequencer) submitLocked(req OrderRequest, reply chan<- event.SubmitReply) {
	result, err := SubmitOrder(req, s.openTradesLocked(req.Instrument.Symbol), s.nextTradeID, time.Now())
	if err != nil {
		infra.GlobalMetrics.RecordOrderRejected()
		slog.Info("Order rejected", slog.String("symbol", req.Instrument.Symbol), slog.Any("error", err))
		reply <- event.SubmitReply{Err: err}
		return
	}

	s.commitLocked(result.NewTrade, result.UpdatedTrades, result.MarginDelta)
	s.nextTradeID++

	infra.GlobalMetrics.RecordOrderSubmitted()
	for range result.Fills {
		infra.GlobalMetrics.RecordFill()
	}
	slog.Info("Order accepted",
		slog.Int64("id", result.NewTrade.ID),
		slog.String("symbol", req.Instrument.Symbol),
		slog.String("side", req.Side),
		slog.String("status", result.NewTrade.Status),
		slog.Int("fills", len(result.Fills)))

	reply <- event.SubmitReply{Trade: result.NewTrade}
}

func (s *Sequencer) handleCancelRequest(e *event.CancelRequestEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	trade, ok := s.trades[e.TradeID]
	if !ok {
		e.Reply <- event.CancelReply{Err: domain.ErrTradeNotFound}
		return
	}

	result, err := CancelTrade(trade, time.Now())
	if err != nil {
		e.Reply <- event.CancelReply{Err: err}
		return
	}

	s.commitLocked(nil, []*domain.Trade{result.UpdatedTrade}, result.MarginDelta)

	slog.Info("Order cancelled", slog.Int64("id", e.TradeID))
	e.Reply <- event.CancelReply{Trade: result.UpdatedTrade}
}

// commitLocked persists the diff and only then applies it in memory.
// Persistence failure halts the desk rather than risking divergence.
func (s *Sequencer) commitLocked(newTrade *domain.Trade, updated []*domain.Trade, marginDelta decimal.Decimal) {
	all := updated
	if newTrade != nil {
		all = append([]*domain.Trade{newTrade}, updated...)
	}

	if s.store != nil {
		if err := s.store.SaveTrades(all); err != nil {
			panic(fmt.Sprintf("PERSISTENCE_FAILURE: %v", err))
		}
	}

	for _, t := range all {
		cp := *t
		s.trades[cp.ID] = &cp
	}

	s.margin.Apply(marginDelta, time.Now())
	if s.store != nil {
		if err := s.store.SaveMargin(s.margin); err != nil {
			panic(fmt.Sprintf("PERSISTENCE_FAILURE: %v", err))
		}
	}
}

// openTradesLocked returns the open trades for a symbol. Caller holds mu.
func (s *Sequencer) openTradesLocked(symbol string) []*domain.Trade {
	result := make([]*domain.Trade, 0)
	for _, t := range s.trades {
		if t.Symbol == symbol && t.IsOpen() {
			result = append(result, t)
		}
	}
	return result
}

func (s *Sequencer) tradeSliceLocked() []*domain.Trade {
	result := make([]*domain.Trade, 0, len(s.trades))
	for _, t := range s.trades {
		result = append(result, t)
	}
	return result
}

// Trades returns a snapshot of the full trade history sorted by id.
func (s *Sequencer) Trades() []*domain.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Trade, 0, len(s.trades))
	for _, t := range s.trades {
		cp := *t
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// GetTrade returns a copy of a single trade by id.
func (s *Sequencer) GetTrade(id int64) (domain.Trade, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.trades[id]
	if !ok {
		return domain.Trade{}, false
	}
	return *t, true
}

// Margin returns a snapshot of the margin account.
func (s *Sequencer) Margin() domain.MarginAccount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.margin.Snapshot()
}

// LastReport returns the most recent P&L report.
func (s *Sequencer) LastReport() ledger.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReport
}

// DumpState writes the entire internal state to a file (for post-mortem).
// It takes no locks: it runs on the halted sequencer goroutine, which may
// still hold them, and must never block the dump.
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	data := struct {
		NextSeq     uint64                  `json:"next_seq"`
		NextTradeID int64                   `json:"next_trade_id"`
		Trades      map[int64]*domain.Trade `json:"trades"`
		Margin      domain.MarginAccount    `json:"margin"`
	}{
		NextSeq:     s.nextSeq,
		NextTradeID: s.nextTradeID,
		Trades:      s.trades,
		Margin:      s.margin.Snapshot(),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
