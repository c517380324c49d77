package service

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/grubstreet/papertrader/internal/domain"
	"github.com/grubstreet/papertrader/internal/orders"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAssets() []domain.Asset {
	return []domain.Asset{
		{Ticker: "BURG", Name: "Burger Barn", Sector: "fast_food", BasePrice: 25.00, Volatility: 0},
		{Ticker: "TACO", Name: "Taco Tornado", Sector: "fast_food", BasePrice: 18.75, Volatility: 0.04},
	}
}

// quietConfig disables news so zero-volatility assets hold their price.
func quietConfig() SessionConfig {
	cfg := DefaultSessionConfig()
	cfg.NewsProbability = 0
	return cfg
}

func newTestSession(t *testing.T, cfg SessionConfig) *Session {
	t.Helper()
	s, err := NewSession(testAssets(), cfg, testLogger())
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func ptr[T any](v T) *T { return &v }

func TestNewSession_RejectsNonPositiveCash(t *testing.T) {
	cfg := quietConfig()
	cfg.StartingCash = 0

	var vErr *domain.ValidationError
	if _, err := NewSession(testAssets(), cfg, testLogger()); !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want a ValidationError", err)
	}
}

func TestSession_BuyLifecycle(t *testing.T) {
	s := newTestSession(t, quietConfig())

	o, _, err := s.SubmitOrder(orders.Request{
		Type: domain.OrderTypeLimit, Side: domain.OrderSideBuy,
		Ticker: "BURG", Quantity: 10, LimitPrice: ptr(25.00),
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if o.Status != domain.OrderStatusPending {
		t.Fatalf("status = %q, want pending", o.Status)
	}

	summary := s.AdvanceTurn()

	if summary.Turn != 1 {
		t.Fatalf("Turn = %d, want 1", summary.Turn)
	}
	if len(summary.Orders.Fills) != 1 {
		t.Fatalf("fills = %d, want 1", len(summary.Orders.Fills))
	}
	// 10000 − 10×25.00 − 1.00 fee.
	if summary.Portfolio.Cash != 9749.00 {
		t.Fatalf("cash = %v, want 9749.00", summary.Portfolio.Cash)
	}

	state := s.Portfolio()
	if len(state.Lots) != 1 {
		t.Fatalf("lots = %d, want 1", len(state.Lots))
	}
	lot := state.Lots[0]
	if lot.Ticker != "BURG" || lot.Shares != 10 || lot.CostBasis != 25.00 {
		t.Fatalf("lot = %+v", lot)
	}

	hist := s.OrderHistory()
	if len(hist) != 1 || hist[0].Status != domain.OrderStatusFilled {
		t.Fatalf("history = %+v, want one filled order", hist)
	}
	if len(s.PendingOrders()) != 0 {
		t.Fatal("order still pending after fill")
	}
}

func TestSession_SubmitOrderRejectsInvalid(t *testing.T) {
	s := newTestSession(t, quietConfig())

	_, _, err := s.SubmitOrder(orders.Request{
		Type: domain.OrderTypeMarket, Side: domain.OrderSideSell,
		Ticker: "BURG", Quantity: 10,
	})

	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want a ValidationError", err)
	}
	if len(s.PendingOrders()) != 0 {
		t.Fatal("rejected order was still submitted")
	}
}

func TestSession_CancelOrder(t *testing.T) {
	s := newTestSession(t, quietConfig())
	o, _, err := s.SubmitOrder(orders.Request{
		Type: domain.OrderTypeLimit, Side: domain.OrderSideBuy,
		Ticker: "BURG", Quantity: 1, LimitPrice: ptr(20.00),
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}

	cancelled, err := s.CancelOrder(o.ID)
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if cancelled.Status != domain.OrderStatusCancelled {
		t.Fatalf("status = %q, want cancelled", cancelled.Status)
	}

	if _, err := s.CancelOrder("missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("err = %v, want ErrOrderNotFound", err)
	}
}

func TestSession_ApplyDividend(t *testing.T) {
	s := newTestSession(t, quietConfig())
	if _, _, err := s.SubmitOrder(orders.Request{
		Type: domain.OrderTypeMarket, Side: domain.OrderSideBuy,
		Ticker: "BURG", Quantity: 10,
	}); err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	s.AdvanceTurn()

	credited, err := s.ApplyDividend("BURG", 0.50)
	if err != nil {
		t.Fatalf("ApplyDividend: %v", err)
	}
	if credited != 5.00 {
		t.Fatalf("credited = %v, want 5.00", credited)
	}

	if _, err := s.ApplyDividend("GHST", 0.50); !errors.Is(err, domain.ErrAssetNotFound) {
		t.Fatalf("err = %v, want ErrAssetNotFound", err)
	}
	if _, err := s.ApplyDividend("BURG", 0); err == nil {
		t.Fatal("expected error for non-positive dividend")
	}
}

func TestSession_PortfolioSummary(t *testing.T) {
	s := newTestSession(t, quietConfig())
	if _, _, err := s.SubmitOrder(orders.Request{
		Type: domain.OrderTypeMarket, Side: domain.OrderSideBuy,
		Ticker: "BURG", Quantity: 10,
	}); err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	s.AdvanceTurn()

	sum := s.PortfolioSummary()
	if len(sum.Holdings) != 1 || sum.Holdings[0].Ticker != "BURG" {
		t.Fatalf("holdings = %+v", sum.Holdings)
	}
	// 9749 cash + 250 position.
	if sum.TotalValue != 9999.00 {
		t.Fatalf("TotalValue = %v, want 9999.00", sum.TotalValue)
	}
	if sum.SectorExposure["fast_food"] <= 0 {
		t.Fatalf("SectorExposure = %v", sum.SectorExposure)
	}
}

func TestSession_ResetReplaysSameGame(t *testing.T) {
	cfg := DefaultSessionConfig()
	cfg.NewsProbability = 0.5
	s := newTestSession(t, cfg)

	type turnRecord struct {
		prices map[string]float64
		news   int
	}
	var first []turnRecord
	for i := 0; i < 20; i++ {
		sum := s.AdvanceTurn()
		first = append(first, turnRecord{prices: sum.Tick.Prices, news: len(sum.News)})
	}

	s.Reset()
	if s.Turn() != 0 {
		t.Fatalf("Turn after reset = %d, want 0", s.Turn())
	}
	if s.Portfolio().Cash != cfg.StartingCash {
		t.Fatalf("cash after reset = %v, want %v", s.Portfolio().Cash, cfg.StartingCash)
	}

	for i := 0; i < 20; i++ {
		sum := s.AdvanceTurn()
		if len(sum.News) != first[i].news {
			t.Fatalf("turn %d: news count %d, want %d", i+1, len(sum.News), first[i].news)
		}
		for ticker, want := range first[i].prices {
			if sum.Tick.Prices[ticker] != want {
				t.Fatalf("turn %d %s: replay %v, original %v", i+1, ticker, sum.Tick.Prices[ticker], want)
			}
		}
	}
}

func TestSession_NewsMovesZeroVolatilityAsset(t *testing.T) {
	cfg := DefaultSessionConfig()
	cfg.NewsProbability = 1
	s := newTestSession(t, cfg)

	moved := false
	for i := 0; i < 30 && !moved; i++ {
		sum := s.AdvanceTurn()
		for _, c := range sum.Tick.Changes {
			if c.Ticker == "BURG" && c.Trigger == domain.TriggerNews && c.Price != c.Previous {
				moved = true
			}
		}
	}
	if !moved {
		t.Fatal("30 turns of guaranteed news never moved BURG")
	}
}

func TestSession_CheckConcentration(t *testing.T) {
	s := newTestSession(t, quietConfig())

	// 15000 against 10000 cash would be 60% of the resulting total.
	chk := s.CheckConcentration("BURG", 15000, 0.5)
	if chk.Passed {
		t.Fatal("expected concentration failure above the limit")
	}
	if chk2 := s.CheckConcentration("BURG", 100, 0.5); !chk2.Passed {
		t.Fatalf("expected pass for a small position, got %+v", chk2)
	}
}

func TestSession_QuoteAndHistoryErrors(t *testing.T) {
	s := newTestSession(t, quietConfig())

	if _, err := s.Quote("GHST"); !errors.Is(err, domain.ErrAssetNotFound) {
		t.Fatalf("Quote err = %v, want ErrAssetNotFound", err)
	}
	if _, err := s.HistoryFor("GHST"); !errors.Is(err, domain.ErrAssetNotFound) {
		t.Fatalf("HistoryFor err = %v, want ErrAssetNotFound", err)
	}

	points, err := s.HistoryFor("BURG")
	if err != nil {
		t.Fatalf("HistoryFor: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("initial history length = %d, want 1", len(points))
	}
}
