package event

import (
	"sync"

	"github.com/shopspring/decimal"
)

// marketTickPool provides sync.Pool for high-frequency tick allocation.
// Use this to reduce GC pressure in the hotpath.
//
// Usage:
//
//	ev := AcquireMarketTickEvent()
//	ev.Symbol = "NIFTY"
//	// ... send through the inbox ...
//	ReleaseMarketTickEvent(ev)  // Return to pool after processing
var marketTickPool = sync.Pool{
	New: func() interface{} {
		return &MarketTickEvent{}
	},
}

// AcquireMarketTickEvent gets a MarketTickEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireMarketTickEvent() *MarketTickEvent {
	return marketTickPool.Get().(*MarketTickEvent)
}

// ReleaseMarketTickEvent returns a MarketTickEvent to the pool.
// The event is reset to zero values before being pooled.
func ReleaseMarketTickEvent(ev *MarketTickEvent) {
	if ev == nil {
		return
	}
	ev.Seq = 0
	ev.Ts = 0
	ev.Symbol = ""
	ev.Price = decimal.Decimal{}

	marketTickPool.Put(ev)
}

// Warmup pre-allocates tick events to reduce GC pressure at startup.
func Warmup() {
	const batchSize = 1000

	evs := make([]*MarketTickEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		evs = append(evs, AcquireMarketTickEvent())
	}
	for _, ev := range evs {
		ReleaseMarketTickEvent(ev)
	}
}
