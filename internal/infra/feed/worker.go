// Package feed connects to the market-data websocket stream and turns
// price updates into sequencer events.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"trading_go/internal/domain"
	"trading_go/internal/event"
	"trading_go/internal/infra"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

const (
	maxRetries   = 10
	pingInterval = 30 * time.Second
	readTimeout  = 60 * time.Second
)

// Poster accepts events for sequenced processing.
type Poster interface {
	Post(ev event.Event)
}

// tickResponse represents one tick message on the feed stream
type tickResponse struct {
	Symbol string          `json:"symbol"`
	LTP    decimal.Decimal `json:"ltp"` // last traded price / premium
	Ts     int64           `json:"ts"`
}

// subscribeRequest is the subscription frame sent after connect
type subscribeRequest struct {
	Op      string   `json:"op"`
	Symbols []string `json:"symbols"`
}

// Worker handles the feed WebSocket connection
type Worker struct {
	wsURL     string
	symbols   []string
	post      Poster
	conn      *websocket.Conn
	mu        sync.RWMutex
	writeMu   sync.Mutex
	connected bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewWorker creates a new feed gateway worker
func NewWorker(wsURL string, symbols []string, post Poster) *Worker {
	return &Worker{
		wsURL:   wsURL,
		symbols: symbols,
		post:    post,
	}
}

// Connect starts the WebSocket connection
func (w *Worker) Connect(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.connectionLoop(ctx)
	return nil
}

func (w *Worker) connectionLoop(ctx context.Context) {
	defer w.wg.Done()
	retryCount := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := w.connect(ctx); err != nil {
			slog.Warn("Feed connection failed", slog.Any("error", err), slog.Int("retry", retryCount))
			infra.GlobalMetrics.RecordError()
			delay := infra.CalculateBackoff(retryCount)
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
				continue
			}
		} else {
			retryCount = 0
			w.readLoop(ctx)
		}
	}
}

func (w *Worker) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	conn, _, err := dialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return domain.NewFeedError("dial", err)
	}

	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.mu.Unlock()

	if err := w.subscribe(); err != nil {
		w.closeConnection()
		return err
	}

	infra.GlobalMetrics.SetFeedConnected(true)
	slog.Info("Feed connected", slog.Int("subs", len(w.symbols)))

	w.wg.Add(1)
	go w.pingLoop(ctx)
	return nil
}

func (w *Worker) subscribe() error {
	req := subscribeRequest{Op: "subscribe", Symbols: w.symbols}
	data, err := json.Marshal(req)
	if err != nil {
		return domain.NewFatalFeedError("subscribe", err)
	}
	return w.write(websocket.TextMessage, data)
}

func (w *Worker) readLoop(ctx context.Context) {
	defer w.closeConnection()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn := w.currentConn()
		if conn == nil {
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			slog.Warn("Feed read failed", slog.Any("error", domain.NewFeedError("read", err)))
			return
		}

		var tick tickResponse
		if err := json.Unmarshal(msg, &tick); err != nil {
			slog.Debug("Skipping malformed tick", slog.Any("error", err))
			continue
		}
		if tick.Symbol == "" {
			continue
		}

		ev := event.AcquireMarketTickEvent()
		ev.Ts = tick.Ts
		ev.Symbol = tick.Symbol
		ev.Price = tick.LTP
		w.post.Post(ev)
	}
}

func (w *Worker) pingLoop(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !w.IsConnected() {
				return
			}
			if err := w.write(websocket.PingMessage, nil); err != nil {
				slog.Warn("Feed ping failed", slog.Any("error", err))
				return
			}
		}
	}
}

func (w *Worker) write(messageType int, data []byte) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	conn := w.currentConn()
	if conn == nil {
		return domain.NewFeedError("write", fmt.Errorf("not connected"))
	}
	return conn.WriteMessage(messageType, data)
}

func (w *Worker) currentConn() *websocket.Conn {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.conn
}

func (w *Worker) closeConnection() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
	if w.connected {
		w.connected = false
		infra.GlobalMetrics.SetFeedConnected(false)
	}
}

// IsConnected reports whether the websocket is currently up.
func (w *Worker) IsConnected() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.connected
}

// Disconnect stops the worker and closes the connection.
func (w *Worker) Disconnect() {
	if w.cancel != nil {
		w.cancel()
	}
	w.closeConnection()
	w.wg.Wait()
}
