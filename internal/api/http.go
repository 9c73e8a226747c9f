// Package api exposes the desk over HTTP: order submission, trade history,
// portfolio P&L and metrics. This is the inbound surface the presentation
// layer talks to.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"trading_go/internal/domain"
	"trading_go/internal/engine"
	"trading_go/internal/event"
	"trading_go/internal/infra"
	"trading_go/internal/ledger"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

const replyTimeout = 5 * time.Second

// Handler routes desk requests into the sequencer.
type Handler struct {
	seq *engine.Sequencer
}

// NewHandler creates a new API handler.
func NewHandler(seq *engine.Sequencer) *Handler {
	return &Handler{seq: seq}
}

// SetupRoutes registers all endpoints.
func (h *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/api/health", h.healthCheck).Methods("GET")
	r.HandleFunc("/api/orders", h.submitOrder).Methods("POST")
	r.HandleFunc("/api/orders/{id}/cancel", h.cancelOrder).Methods("POST")
	r.HandleFunc("/api/orders/{id}/close", h.closeTrade).Methods("POST")
	r.HandleFunc("/api/trades", h.listTrades).Methods("GET")
	r.HandleFunc("/api/trades/{id}", h.getTrade).Methods("GET")
	r.HandleFunc("/api/portfolio", h.portfolio).Methods("GET")
	r.HandleFunc("/api/metrics", h.metrics).Methods("GET")
}

type orderRequest struct {
	Side      string          `json:"side"`
	Symbol    string          `json:"symbol"`
	Qty       int64           `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	OrderType string          `json:"order_type"`
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) submitOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderType == "" {
		req.OrderType = domain.OrderTypeMarket
	}

	h.postOrder(w, req)
}

// closeTrade closes an open trade. The sequencer resolves side, remaining
// quantity and mark itself, so the close is atomic with concurrent fills.
func (h *Handler) closeTrade(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trade id")
		return
	}

	ev := &event.CloseRequestEvent{
		TradeID: id,
		Reply:   make(chan event.SubmitReply, 1),
	}
	ev.Ts = time.Now().UnixMicro()
	h.seq.Post(ev)

	select {
	case reply := <-ev.Reply:
		if reply.Err != nil {
			// No mark yet or trade not open both conflict with closing now.
			status := http.StatusConflict
			switch {
			case domain.IsValidation(reply.Err):
				status = http.StatusBadRequest
			case reply.Err == domain.ErrTradeNotFound:
				status = http.StatusNotFound
			}
			writeError(w, status, reply.Err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, reply.Trade)
	case <-time.After(replyTimeout):
		writeError(w, http.StatusGatewayTimeout, "desk busy")
	}
}

func (h *Handler) postOrder(w http.ResponseWriter, req orderRequest) {
	ev := &event.OrderRequestEvent{
		Side:      req.Side,
		Symbol:    req.Symbol,
		Qty:       req.Qty,
		Price:     req.Price,
		OrderType: req.OrderType,
		Reply:     make(chan event.SubmitReply, 1),
	}
	ev.Ts = time.Now().UnixMicro()
	h.seq.Post(ev)

	select {
	case reply := <-ev.Reply:
		if reply.Err != nil {
			status := http.StatusInternalServerError
			switch {
			case domain.IsValidation(reply.Err):
				status = http.StatusBadRequest
			case reply.Err == domain.ErrUnknownInstrument:
				status = http.StatusNotFound
			}
			writeError(w, status, reply.Err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, reply.Trade)
	case <-time.After(replyTimeout):
		slog.Error("Order reply timed out", slog.String("symbol", req.Symbol))
		writeError(w, http.StatusGatewayTimeout, "desk busy")
	}
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trade id")
		return
	}

	ev := &event.CancelRequestEvent{
		TradeID: id,
		Reply:   make(chan event.CancelReply, 1),
	}
	ev.Ts = time.Now().UnixMicro()
	h.seq.Post(ev)

	select {
	case reply := <-ev.Reply:
		if reply.Err != nil {
			status := http.StatusConflict
			if reply.Err == domain.ErrTradeNotFound {
				status = http.StatusNotFound
			}
			writeError(w, status, reply.Err.Error())
			return
		}
		writeJSON(w, http.StatusOK, reply.Trade)
	case <-time.After(replyTimeout):
		writeError(w, http.StatusGatewayTimeout, "desk busy")
	}
}

func (h *Handler) listTrades(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.seq.Trades())
}

func (h *Handler) getTrade(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid trade id")
		return
	}
	trade, ok := h.seq.GetTrade(id)
	if !ok {
		writeError(w, http.StatusNotFound, domain.ErrTradeNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

type portfolioResponse struct {
	Margin domain.MarginAccount `json:"margin"`
	Report ledger.Report        `json:"pnl"`
}

func (h *Handler) portfolio(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, portfolioResponse{
		Margin: h.seq.Margin(),
		Report: h.seq.LastReport(),
	})
}

func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, infra.GlobalMetrics.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", slog.Any("error", err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
