package orders

import (
	"testing"

	"github.com/grubstreet/papertrader/internal/domain"
)

// fakePortfolio satisfies PortfolioView with fixed balances.
type fakePortfolio struct {
	cash   float64
	shares map[string]int64
}

func (f *fakePortfolio) Cash() float64 { return f.cash }
func (f *fakePortfolio) Shares(ticker string) int64 {
	return f.shares[ticker]
}

func rich() *fakePortfolio {
	return &fakePortfolio{cash: 1_000_000, shares: map[string]int64{"BURG": 1000, "TACO": 1000}}
}

func ptr[T any](v T) *T { return &v }

func marketBuy(ticker string, qty int64) Request {
	return Request{Type: domain.OrderTypeMarket, Side: domain.OrderSideBuy, Ticker: ticker, Quantity: qty}
}

func TestSubmit_AssignsLifecycleFields(t *testing.T) {
	e := NewEngine(Config{DefaultExpirationTurns: 5})

	o := e.Submit(marketBuy("BURG", 10), 3)

	if o.ID == "" {
		t.Fatal("expected an id")
	}
	if o.Status != domain.OrderStatusPending {
		t.Fatalf("status = %q, want pending", o.Status)
	}
	if o.PlacedAt != 3 || o.ExpiresAt != 8 {
		t.Fatalf("placed %d expires %d, want 3 and 8", o.PlacedAt, o.ExpiresAt)
	}
	if e.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d, want 1", e.PendingCount())
	}
}

func TestSubmit_CustomExpiration(t *testing.T) {
	e := NewEngine(Config{})

	req := marketBuy("BURG", 10)
	req.ExpiresInTurns = ptr(2)
	o := e.Submit(req, 0)

	if o.ExpiresAt != 2 {
		t.Fatalf("ExpiresAt = %d, want 2", o.ExpiresAt)
	}
}

func TestCancel(t *testing.T) {
	e := NewEngine(Config{})
	o := e.Submit(marketBuy("BURG", 10), 0)

	cancelled, err := e.Cancel(o.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("status = %q, want cancelled", cancelled.Status)
	}
	if e.PendingCount() != 0 {
		t.Fatal("order still pending after cancel")
	}
	if len(e.History()) != 1 {
		t.Fatal("cancelled order not archived")
	}

	if _, err := e.Cancel(o.ID); err != domain.ErrOrderNotCancellable {
		t.Fatalf("second cancel err = %v, want ErrOrderNotCancellable", err)
	}
	if _, err := e.Cancel("missing"); err != domain.ErrOrderNotFound {
		t.Fatalf("unknown id err = %v, want ErrOrderNotFound", err)
	}
}

func TestProcessEndOfTurn_MarketOrderFills(t *testing.T) {
	e := NewEngine(Config{})
	o := e.Submit(marketBuy("BURG", 10), 0)

	res := e.ProcessEndOfTurn(map[string]float64{"BURG": 25.00}, rich(), 1, 1.00)

	if len(res.Fills) != 1 {
		t.Fatalf("fills = %d, want 1", len(res.Fills))
	}
	fill := res.Fills[0]
	if fill.ID != o.ID || fill.Status != domain.OrderStatusFilled {
		t.Fatalf("fill = %+v", fill)
	}
	if fill.FillPrice == nil || *fill.FillPrice != 25.00 {
		t.Fatalf("fill price = %v, want 25.00", fill.FillPrice)
	}
	if fill.FilledAt == nil || *fill.FilledAt != 1 {
		t.Fatalf("filled at = %v, want 1", fill.FilledAt)
	}

	if len(res.Trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(res.Trades))
	}
	trade := res.Trades[0]
	if trade.TotalValue != 250.00 || trade.Fee != 1.00 {
		t.Fatalf("trade = %+v", trade)
	}
}

func TestProcessEndOfTurn_ExpirationBeatsFill(t *testing.T) {
	e := NewEngine(Config{})
	req := marketBuy("BURG", 10)
	req.ExpiresInTurns = ptr(1)
	e.Submit(req, 0)

	// The order could fill on turn 1 but its deadline is also turn 1.
	res := e.ProcessEndOfTurn(map[string]float64{"BURG": 25.00}, rich(), 1, 1.00)

	if len(res.Expired) != 1 {
		t.Fatalf("expired = %d, want 1", len(res.Expired))
	}
	if len(res.Fills) != 0 {
		t.Fatalf("fills = %d, want 0", len(res.Fills))
	}
	if res.Expired[0].Status != domain.OrderStatusExpired {
		t.Fatalf("status = %q, want expired", res.Expired[0].Status)
	}
}

func TestProcessEndOfTurn_LimitBuyFillsAtBetterPrice(t *testing.T) {
	e := NewEngine(Config{})
	e.Submit(Request{
		Type: domain.OrderTypeLimit, Side: domain.OrderSideBuy,
		Ticker: "BURG", Quantity: 10, LimitPrice: ptr(150.00),
	}, 0)

	res := e.ProcessEndOfTurn(map[string]float64{"BURG": 145.00}, rich(), 1, 1.00)

	if len(res.Fills) != 1 {
		t.Fatalf("fills = %d, want 1", len(res.Fills))
	}
	if *res.Fills[0].FillPrice != 145.00 {
		t.Fatalf("fill price = %v, want current 145.00", *res.Fills[0].FillPrice)
	}
}

func TestProcessEndOfTurn_LimitBuyWaitsAboveLimit(t *testing.T) {
	e := NewEngine(Config{})
	e.Submit(Request{
		Type: domain.OrderTypeLimit, Side: domain.OrderSideBuy,
		Ticker: "BURG", Quantity: 10, LimitPrice: ptr(140.00),
	}, 0)

	res := e.ProcessEndOfTurn(map[string]float64{"BURG": 145.00}, rich(), 1, 1.00)

	if len(res.Fills) != 0 || len(res.Pending) != 1 {
		t.Fatalf("fills %d pending %d, want 0 and 1", len(res.Fills), len(res.Pending))
	}
}

func TestProcessEndOfTurn_StopSellTriggers(t *testing.T) {
	e := NewEngine(Config{})
	e.Submit(Request{
		Type: domain.OrderTypeStop, Side: domain.OrderSideSell,
		Ticker: "BURG", Quantity: 10, StopPrice: ptr(20.00),
	}, 0)

	// Above the stop: stays pending.
	res := e.ProcessEndOfTurn(map[string]float64{"BURG": 22.00}, rich(), 1, 1.00)
	if len(res.Pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(res.Pending))
	}

	// At or below the stop: fills at the current price.
	res = e.ProcessEndOfTurn(map[string]float64{"BURG": 19.00}, rich(), 2, 1.00)
	if len(res.Fills) != 1 {
		t.Fatalf("fills = %d, want 1", len(res.Fills))
	}
	if *res.Fills[0].FillPrice != 19.00 {
		t.Fatalf("fill price = %v, want 19.00", *res.Fills[0].FillPrice)
	}
}

func TestProcessEndOfTurn_StopLimitArmsThenFillsUnderLimitRules(t *testing.T) {
	e := NewEngine(Config{})
	// Sell if the price falls to 20, but never below 19.50.
	e.Submit(Request{
		Type: domain.OrderTypeStopLimit, Side: domain.OrderSideSell,
		Ticker: "BURG", Quantity: 10,
		StopPrice: ptr(20.00), LimitPrice: ptr(19.50),
	}, 0)

	// Price crashes through both stop and limit: the stop arms but the
	// limit blocks the fill.
	res := e.ProcessEndOfTurn(map[string]float64{"BURG": 18.00}, rich(), 1, 1.00)
	if len(res.Fills) != 0 {
		t.Fatal("stop-limit filled below its limit")
	}
	if len(res.Pending) != 1 || !res.Pending[0].Triggered {
		t.Fatalf("order should be pending and armed: %+v", res.Pending)
	}

	// Price recovers above the limit while still below the stop; the
	// armed order now fills under limit rules.
	res = e.ProcessEndOfTurn(map[string]float64{"BURG": 19.80}, rich(), 2, 1.00)
	if len(res.Fills) != 1 {
		t.Fatalf("fills = %d, want 1", len(res.Fills))
	}
	if *res.Fills[0].FillPrice != 19.80 {
		t.Fatalf("fill price = %v, want 19.80", *res.Fills[0].FillPrice)
	}
}

func TestProcessEndOfTurn_StopLimitStaysArmedAcrossTurns(t *testing.T) {
	e := NewEngine(Config{DefaultExpirationTurns: 10})
	e.Submit(Request{
		Type: domain.OrderTypeStopLimit, Side: domain.OrderSideBuy,
		Ticker: "BURG", Quantity: 10,
		StopPrice: ptr(30.00), LimitPrice: ptr(31.00),
	}, 0)

	// Touches the stop, but above the buy limit... 32 > 31, blocked.
	res := e.ProcessEndOfTurn(map[string]float64{"BURG": 32.00}, rich(), 1, 1.00)
	if len(res.Pending) != 1 || !res.Pending[0].Triggered {
		t.Fatalf("order should be armed: %+v", res.Pending)
	}

	// Back below the stop; an armed stop-limit does not disarm.
	res = e.ProcessEndOfTurn(map[string]float64{"BURG": 29.00}, rich(), 2, 1.00)
	if len(res.Fills) != 1 {
		t.Fatalf("fills = %d, want 1 (armed order under limit)", len(res.Fills))
	}
}

func TestProcessEndOfTurn_MissingPriceStaysPending(t *testing.T) {
	e := NewEngine(Config{})
	e.Submit(marketBuy("GHST", 10), 0)

	res := e.ProcessEndOfTurn(map[string]float64{"BURG": 25.00}, rich(), 1, 1.00)

	if len(res.Pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(res.Pending))
	}
	if len(res.Fills)+len(res.Expired) != 0 {
		t.Fatal("order without a price should neither fill nor expire before its deadline")
	}
}

func TestProcessEndOfTurn_InsufficientFundsStaysPending(t *testing.T) {
	e := NewEngine(Config{})
	e.Submit(marketBuy("BURG", 10), 0)
	poor := &fakePortfolio{cash: 100}

	res := e.ProcessEndOfTurn(map[string]float64{"BURG": 25.00}, poor, 1, 1.00)

	if len(res.Fills) != 0 || len(res.Pending) != 1 {
		t.Fatalf("fills %d pending %d, want 0 and 1", len(res.Fills), len(res.Pending))
	}
}

func TestProcessEndOfTurn_BatchNeverOverdraws(t *testing.T) {
	e := NewEngine(Config{})
	// Two buys that are individually affordable but not jointly.
	e.Submit(marketBuy("BURG", 10), 0)
	e.Submit(marketBuy("BURG", 10), 0)
	view := &fakePortfolio{cash: 300}

	res := e.ProcessEndOfTurn(map[string]float64{"BURG": 25.00}, view, 1, 1.00)

	if len(res.Fills) != 1 {
		t.Fatalf("fills = %d, want only the first order", len(res.Fills))
	}
	if len(res.Pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(res.Pending))
	}
}

func TestProcessEndOfTurn_BatchNeverOversells(t *testing.T) {
	e := NewEngine(Config{})
	e.Submit(Request{Type: domain.OrderTypeMarket, Side: domain.OrderSideSell, Ticker: "BURG", Quantity: 10}, 0)
	e.Submit(Request{Type: domain.OrderTypeMarket, Side: domain.OrderSideSell, Ticker: "BURG", Quantity: 10}, 0)
	view := &fakePortfolio{cash: 0, shares: map[string]int64{"BURG": 15}}

	res := e.ProcessEndOfTurn(map[string]float64{"BURG": 25.00}, view, 1, 1.00)

	if len(res.Fills) != 1 {
		t.Fatalf("fills = %d, want only the first sell", len(res.Fills))
	}
}

func TestProcessEndOfTurn_SubmissionOrderPreserved(t *testing.T) {
	e := NewEngine(Config{})
	a := e.Submit(marketBuy("BURG", 1), 0)
	b := e.Submit(marketBuy("BURG", 1), 0)

	res := e.ProcessEndOfTurn(map[string]float64{"BURG": 25.00}, rich(), 1, 1.00)

	if len(res.Fills) != 2 || res.Fills[0].ID != a.ID || res.Fills[1].ID != b.ID {
		t.Fatalf("fills out of submission order: %v", res.Fills)
	}
}

func TestValidate(t *testing.T) {
	e := NewEngine(Config{})
	prices := map[string]float64{"BURG": 25.00}
	view := &fakePortfolio{cash: 1000, shares: map[string]int64{"BURG": 5}}

	tests := []struct {
		name  string
		req   Request
		valid bool
	}{
		{"valid market buy", marketBuy("BURG", 10), true},
		{"zero quantity", marketBuy("BURG", 0), false},
		{"negative quantity", marketBuy("BURG", -5), false},
		{"unknown side", Request{Type: domain.OrderTypeMarket, Side: "hold", Ticker: "BURG", Quantity: 1}, false},
		{"unknown type", Request{Type: "trailing", Side: domain.OrderSideBuy, Ticker: "BURG", Quantity: 1}, false},
		{"unknown ticker", marketBuy("GHST", 1), false},
		{"limit without price", Request{Type: domain.OrderTypeLimit, Side: domain.OrderSideBuy, Ticker: "BURG", Quantity: 1}, false},
		{"stop without price", Request{Type: domain.OrderTypeStop, Side: domain.OrderSideSell, Ticker: "BURG", Quantity: 1}, false},
		{"negative limit price", Request{Type: domain.OrderTypeLimit, Side: domain.OrderSideBuy, Ticker: "BURG", Quantity: 1, LimitPrice: ptr(-5.0)}, false},
		{"unaffordable buy", marketBuy("BURG", 100), false},
		{"oversell", Request{Type: domain.OrderTypeMarket, Side: domain.OrderSideSell, Ticker: "BURG", Quantity: 10}, false},
		{"valid sell", Request{Type: domain.OrderTypeMarket, Side: domain.OrderSideSell, Ticker: "BURG", Quantity: 5}, true},
		{"zero expiration", func() Request {
			r := marketBuy("BURG", 1)
			r.ExpiresInTurns = ptr(0)
			return r
		}(), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := e.Validate(tc.req, view, prices, 1.00)
			if res.Valid != tc.valid {
				t.Fatalf("Valid = %v, want %v (errors: %v)", res.Valid, tc.valid, res.Errors)
			}
			if !res.Valid && len(res.Errors) == 0 {
				t.Fatal("invalid result carries no errors")
			}
		})
	}
}

func TestValidate_ImmediateFillWarning(t *testing.T) {
	e := NewEngine(Config{})
	view := &fakePortfolio{cash: 10000}

	res := e.Validate(Request{
		Type: domain.OrderTypeLimit, Side: domain.OrderSideBuy,
		Ticker: "BURG", Quantity: 10, LimitPrice: ptr(30.00),
	}, view, map[string]float64{"BURG": 25.00}, 1.00)

	if !res.Valid {
		t.Fatalf("expected valid, errors: %v", res.Errors)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected an immediate-fill warning")
	}
}

func TestValidate_NoPricesSkipsMarketChecks(t *testing.T) {
	e := NewEngine(Config{})
	view := &fakePortfolio{cash: 10000}

	res := e.Validate(marketBuy("BURG", 10), view, map[string]float64{}, 1.00)
	if !res.Valid {
		t.Fatalf("expected valid with empty price map, errors: %v", res.Errors)
	}
}

func TestOrder_LookupAcrossPendingAndHistory(t *testing.T) {
	e := NewEngine(Config{})
	pending := e.Submit(marketBuy("BURG", 10), 0)
	done := e.Submit(marketBuy("BURG", 10), 0)
	if _, err := e.Cancel(done.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if o, err := e.Order(pending.ID); err != nil || o.Status != domain.OrderStatusPending {
		t.Fatalf("pending lookup: %+v, %v", o, err)
	}
	if o, err := e.Order(done.ID); err != nil || o.Status != domain.OrderStatusCancelled {
		t.Fatalf("history lookup: %+v, %v", o, err)
	}
	if _, err := e.Order("missing"); err != domain.ErrOrderNotFound {
		t.Fatalf("missing lookup err = %v, want ErrOrderNotFound", err)
	}
}
