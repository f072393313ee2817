package market

import (
	"math"
	"testing"
)

func TestUpdateComputesSessionChange(t *testing.T) {
	tk := NewTicker(nil)

	tk.Update("BTC", 100000)
	tk.Update("BTC", 102500)

	var btc Quote
	for _, q := range tk.Quotes() {
		if q.Symbol == "BTC" {
			btc = q
		}
	}

	if btc.Price != 102500 {
		t.Errorf("expected price 102500, got %v", btc.Price)
	}
	if math.Abs(btc.Change-2.5) > 1e-9 {
		t.Errorf("expected change 2.5%%, got %v", btc.Change)
	}
}

func TestHistoryCappedAtFiftyPoints(t *testing.T) {
	tk := NewTicker(nil)

	for i := 0; i < HistoryPoints+10; i++ {
		tk.Update("BTC", float64(1000+i))
	}

	quotes := tk.Quotes()
	var btc Quote
	for _, q := range quotes {
		if q.Symbol == "BTC" {
			btc = q
		}
	}

	if len(btc.History) != HistoryPoints {
		t.Fatalf("expected %d history points, got %d", HistoryPoints, len(btc.History))
	}
	// Oldest samples are evicted first.
	if btc.History[0] != 1010 {
		t.Errorf("expected oldest sample 1010, got %v", btc.History[0])
	}
	if btc.History[len(btc.History)-1] != float64(1000+HistoryPoints+9) {
		t.Errorf("unexpected newest sample %v", btc.History[len(btc.History)-1])
	}
}

func TestUnknownSymbolIgnored(t *testing.T) {
	tk := NewTicker(nil)
	tk.Update("DOGE", 0.42)

	for _, q := range tk.Quotes() {
		if q.Symbol == "DOGE" {
			t.Fatal("unknown symbol should not be added")
		}
	}
}

func TestQuotesReturnsCopies(t *testing.T) {
	tk := NewTicker(nil)
	tk.Update("BTC", 100)
	tk.Update("BTC", 200)

	quotes := tk.Quotes()
	quotes[0].History[0] = -1

	again := tk.Quotes()
	if again[0].History[0] == -1 {
		t.Error("history snapshot should not alias internal state")
	}
}

func TestSimulatedIndicesSeeded(t *testing.T) {
	tk := NewTicker(nil)

	for _, q := range tk.Quotes() {
		switch q.Symbol {
		case "SPX", "HSI":
			if q.Price <= 0 {
				t.Errorf("%s should start with a seed price, got %v", q.Symbol, q.Price)
			}
			if q.Change != 0 {
				t.Errorf("%s should open with zero change, got %v", q.Symbol, q.Change)
			}
		}
	}
}
