// Package market streams live and simulated index quotes for the
// dashboard view.
package market

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/Laky-64/gologging"
	"github.com/gorilla/websocket"
	"github.com/jiuzhougroup/soulsync/api"
	"github.com/jiuzhougroup/soulsync/pkg/events"
	playerrors "github.com/jiuzhougroup/soulsync/pkg/errors"
)

// HistoryPoints is how many samples each quote keeps for sparklines.
const HistoryPoints = 50

const (
	binanceEndpoint = "wss://stream.binance.com:9443/ws/btcusdt@trade"
	reconnectDelay  = 5 * time.Second
	simInterval     = 2 * time.Second
)

// Quote is one instrument's rolling state. Change is percent relative
// to the first price seen this session.
type Quote struct {
	Symbol  string
	Name    string
	Price   float64
	Change  float64
	History []float64
}

type instrument struct {
	quote Quote
	open  float64
}

// Ticker maintains quotes for BTC, fed live from the Binance trade
// stream, and for the simulated SPX and HSI indices. Updates are
// published on the event bus.
type Ticker struct {
	bus *events.Bus
	rng *rand.Rand

	mu     sync.Mutex
	quotes map[string]*instrument

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// binanceTrade is the subset of the trade stream payload we read.
type binanceTrade struct {
	Symbol string `json:"s"`
	Price  string `json:"p"`
}

// NewTicker creates a ticker seeded with the dashboard instruments.
func NewTicker(bus *events.Bus) *Ticker {
	t := &Ticker{
		bus: bus,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		quotes: map[string]*instrument{
			"BTC": {quote: Quote{Symbol: "BTC", Name: "Bitcoin"}},
			"SPX": {quote: Quote{Symbol: "SPX", Name: "S&P 500"}, open: 5820.0},
			"HSI": {quote: Quote{Symbol: "HSI", Name: "恒生指数"}, open: 19650.0},
		},
	}
	for _, inst := range t.quotes {
		if inst.open > 0 {
			t.record(inst, inst.open)
		}
	}
	return t
}

// Start launches the live feed and the index simulator.
func (t *Ticker) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	t.wg.Add(2)
	go t.streamTrades(ctx)
	go t.simulateIndices(ctx)
}

// Stop shuts the feeds down and waits for them.
func (t *Ticker) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
	t.wg.Wait()
}

// Quotes returns a snapshot of all instruments in a stable order.
func (t *Ticker) Quotes() []Quote {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Quote, 0, len(t.quotes))
	for _, symbol := range []string{"BTC", "SPX", "HSI"} {
		inst := t.quotes[symbol]
		q := inst.quote
		q.History = append([]float64(nil), q.History...)
		out = append(out, q)
	}
	return out
}

// streamTrades consumes the Binance trade stream, reconnecting on
// failure until the context ends.
func (t *Ticker) streamTrades(ctx context.Context) {
	defer t.wg.Done()

	for ctx.Err() == nil {
		if err := t.consume(ctx); err != nil && ctx.Err() == nil {
			gologging.WarnF("market: %v", playerrors.ErrMarketFeedDisconnect)
			select {
			case <-ctx.Done():
			case <-time.After(reconnectDelay):
			}
		}
	}
}

func (t *Ticker) consume(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, binanceEndpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	gologging.InfoF("market: connected to %s", binanceEndpoint)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var trade binanceTrade
		if err := json.Unmarshal(message, &trade); err != nil {
			continue
		}
		price, err := strconv.ParseFloat(trade.Price, 64)
		if err != nil {
			continue
		}
		t.Update("BTC", price)
	}
}

// simulateIndices walks the index prices while the real markets are
// closed to the terminal.
func (t *Ticker) simulateIndices(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(simInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.mu.Lock()
			for _, symbol := range []string{"SPX", "HSI"} {
				inst := t.quotes[symbol]
				drift := (t.rng.Float64() - 0.5) * 0.002
				price := inst.quote.Price * (1 + drift)
				t.record(inst, price)
			}
			t.mu.Unlock()
			t.publish()
		}
	}
}

// Update feeds one price sample for symbol and notifies subscribers.
func (t *Ticker) Update(symbol string, price float64) {
	t.mu.Lock()
	inst, ok := t.quotes[symbol]
	if !ok {
		t.mu.Unlock()
		return
	}
	t.record(inst, price)
	t.mu.Unlock()

	t.publish()
}

// record appends a sample and recomputes the session change. Caller
// holds the mutex.
func (t *Ticker) record(inst *instrument, price float64) {
	if inst.open == 0 {
		inst.open = price
	}
	inst.quote.Price = price
	inst.quote.Change = (price - inst.open) / inst.open * 100

	inst.quote.History = append(inst.quote.History, price)
	if len(inst.quote.History) > HistoryPoints {
		inst.quote.History = inst.quote.History[len(inst.quote.History)-HistoryPoints:]
	}
}

func (t *Ticker) publish() {
	if t.bus == nil {
		return
	}
	t.bus.Publish(api.PlayerEvent{Type: api.EventMarketUpdate, Payload: t.Quotes()})
}
