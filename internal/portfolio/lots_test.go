package portfolio

import (
	"testing"

	"github.com/grubstreet/papertrader/internal/domain"
)

func lot(ticker string, shares int64, cost float64, turn int) domain.Lot {
	return domain.Lot{Ticker: ticker, Shares: shares, CostBasis: cost, AcquiredAt: turn}
}

func TestAddLot_NeverMerges(t *testing.T) {
	lots := AddLot(nil, lot("BURG", 10, 100, 1))
	lots = AddLot(lots, lot("BURG", 10, 100, 1))

	if len(lots) != 2 {
		t.Fatalf("expected 2 distinct lots, got %d", len(lots))
	}
}

func TestAddLot_DoesNotMutateInput(t *testing.T) {
	orig := []domain.Lot{lot("BURG", 10, 100, 1)}
	out := AddLot(orig, lot("TACO", 5, 20, 2))

	if len(orig) != 1 {
		t.Fatalf("input mutated: %v", orig)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 lots, got %d", len(out))
	}
}

func TestSellLotsFIFO_ConsumesOldestFirst(t *testing.T) {
	lots := []domain.Lot{
		lot("BURG", 10, 100, 1),
		lot("BURG", 10, 110, 2),
		lot("BURG", 10, 120, 3),
	}

	res := SellLotsFIFO(lots, "BURG", 15, 130)

	if res.SharesSold != 15 {
		t.Fatalf("SharesSold = %d, want 15", res.SharesSold)
	}
	// 10 shares at 100 plus 5 at 110.
	if res.CostBasis != 1550 {
		t.Fatalf("CostBasis = %v, want 1550", res.CostBasis)
	}
	// 15×130 − 1550.
	if res.RealizedPnL != 400 {
		t.Fatalf("RealizedPnL = %v, want 400", res.RealizedPnL)
	}

	if len(res.Lots) != 2 {
		t.Fatalf("remaining lots = %v, want 2", res.Lots)
	}
	if res.Lots[0].Shares != 5 || res.Lots[0].CostBasis != 110 {
		t.Fatalf("first remaining lot = %+v, want 5 shares at 110", res.Lots[0])
	}
	if res.Lots[1].Shares != 10 || res.Lots[1].CostBasis != 120 {
		t.Fatalf("second remaining lot = %+v, want 10 shares at 120", res.Lots[1])
	}
}

func TestSellLotsFIFO_ConsumedPortions(t *testing.T) {
	lots := []domain.Lot{
		lot("BURG", 10, 100, 1),
		lot("BURG", 10, 110, 2),
	}

	res := SellLotsFIFO(lots, "BURG", 12, 120)

	if len(res.Consumed) != 2 {
		t.Fatalf("consumed = %v, want 2 portions", res.Consumed)
	}
	if res.Consumed[0].Shares != 10 || res.Consumed[0].CostBasis != 100 {
		t.Fatalf("first consumed portion = %+v", res.Consumed[0])
	}
	if res.Consumed[1].Shares != 2 || res.Consumed[1].CostBasis != 110 {
		t.Fatalf("second consumed portion = %+v", res.Consumed[1])
	}
}

func TestSellLotsFIFO_OversellTruncates(t *testing.T) {
	lots := []domain.Lot{lot("BURG", 10, 100, 1)}

	res := SellLotsFIFO(lots, "BURG", 25, 120)

	if res.SharesSold != 10 {
		t.Fatalf("SharesSold = %d, want 10", res.SharesSold)
	}
	if len(res.Lots) != 0 {
		t.Fatalf("remaining lots = %v, want none", res.Lots)
	}
}

func TestSellLotsFIFO_OtherTickersUntouched(t *testing.T) {
	lots := []domain.Lot{
		lot("TACO", 5, 18, 1),
		lot("BURG", 10, 100, 2),
		lot("TACO", 5, 19, 3),
	}

	res := SellLotsFIFO(lots, "BURG", 10, 120)

	if len(res.Lots) != 2 {
		t.Fatalf("remaining lots = %v, want the 2 TACO lots", res.Lots)
	}
	if res.Lots[0] != lots[0] || res.Lots[1] != lots[2] {
		t.Fatalf("TACO lots moved or changed: %v", res.Lots)
	}
}

func TestSellLotsFIFO_AcquisitionOrderBeatsListOrder(t *testing.T) {
	// Newer lot listed first; FIFO must still consume the older one.
	lots := []domain.Lot{
		lot("BURG", 10, 120, 5),
		lot("BURG", 10, 100, 1),
	}

	res := SellLotsFIFO(lots, "BURG", 10, 130)

	if res.CostBasis != 1000 {
		t.Fatalf("CostBasis = %v, want 1000 (oldest lot first)", res.CostBasis)
	}
	if len(res.Lots) != 1 || res.Lots[0].CostBasis != 120 {
		t.Fatalf("remaining lots = %v, want the newer 120 lot", res.Lots)
	}
}

func TestSharesForAndAverageCost(t *testing.T) {
	lots := []domain.Lot{
		lot("BURG", 10, 100, 1),
		lot("BURG", 30, 120, 2),
		lot("TACO", 5, 18, 1),
	}

	if got := SharesFor(lots, "BURG"); got != 40 {
		t.Fatalf("SharesFor = %d, want 40", got)
	}
	// (10×100 + 30×120) / 40.
	if got := AverageCost(lots, "BURG"); got != 115 {
		t.Fatalf("AverageCost = %v, want 115", got)
	}
	if got := AverageCost(lots, "KAFE"); got != 0 {
		t.Fatalf("AverageCost for unheld ticker = %v, want 0", got)
	}
}

func TestTickers_FirstAppearanceOrder(t *testing.T) {
	lots := []domain.Lot{
		lot("TACO", 5, 18, 1),
		lot("BURG", 10, 100, 2),
		lot("TACO", 5, 19, 3),
	}

	got := Tickers(lots)
	if len(got) != 2 || got[0] != "TACO" || got[1] != "BURG" {
		t.Fatalf("Tickers = %v, want [TACO BURG]", got)
	}
}

func TestTotalCostBasis(t *testing.T) {
	lots := []domain.Lot{
		lot("BURG", 10, 100, 1),
		lot("TACO", 5, 18, 1),
	}
	if got := TotalCostBasis(lots); got != 1090 {
		t.Fatalf("TotalCostBasis = %v, want 1090", got)
	}
}
