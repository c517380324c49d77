package portfolio

import (
	"sort"

	"github.com/grubstreet/papertrader/internal/domain"
)

// Pure, stateless functions over an immutable lot list. Callers always
// receive a fresh slice; input slices are never mutated.

// AddLot appends a purchase lot. Lots are never merged, even for the
// same ticker — distinct acquisition turns and cost bases must survive
// for FIFO consumption.
func AddLot(lots []domain.Lot, lot domain.Lot) []domain.Lot {
	out := make([]domain.Lot, len(lots), len(lots)+1)
	copy(out, lots)
	return append(out, lot)
}

// SaleResult describes a FIFO sale over a lot list.
type SaleResult struct {
	Lots        []domain.Lot // the replacement lot list
	SharesSold  int64
	CostBasis   float64 // acquisition cost of the consumed shares
	RealizedPnL float64
	Consumed    []domain.Lot // consumed portions, oldest first
}

// SellLotsFIFO consumes the ticker's lots oldest-first. Fully consumed
// lots are dropped, a partially consumed lot is shrunk and kept, and
// untouched lots pass through unchanged in their original positions.
// If sharesToSell exceeds the shares held, only the available amount is
// sold; oversell protection is the caller's responsibility and is
// enforced upstream by order validation.
func SellLotsFIFO(lots []domain.Lot, ticker string, sharesToSell int64, salePrice float64) SaleResult {
	// Consume in acquisition order regardless of list position.
	var indices []int
	for i, l := range lots {
		if l.Ticker == ticker {
			indices = append(indices, i)
		}
	}
	sort.SliceStable(indices, func(a, b int) bool {
		return lots[indices[a]].AcquiredAt < lots[indices[b]].AcquiredAt
	})

	consumed := make(map[int]int64, len(indices))
	remaining := sharesToSell
	for _, idx := range indices {
		if remaining <= 0 {
			break
		}
		take := lots[idx].Shares
		if take > remaining {
			take = remaining
		}
		consumed[idx] = take
		remaining -= take
	}

	res := SaleResult{Lots: make([]domain.Lot, 0, len(lots))}
	for _, idx := range indices {
		take, ok := consumed[idx]
		if !ok {
			continue
		}
		lot := lots[idx]
		res.SharesSold += take
		res.CostBasis += float64(take) * lot.CostBasis
		part := lot
		part.Shares = take
		res.Consumed = append(res.Consumed, part)
	}
	for i, lot := range lots {
		take := consumed[i]
		if take == lot.Shares {
			continue
		}
		kept := lot
		kept.Shares -= take
		res.Lots = append(res.Lots, kept)
	}

	res.RealizedPnL = float64(res.SharesSold)*salePrice - res.CostBasis
	return res
}

// SharesFor returns the total shares held across a ticker's lots.
func SharesFor(lots []domain.Lot, ticker string) int64 {
	var total int64
	for _, l := range lots {
		if l.Ticker == ticker {
			total += l.Shares
		}
	}
	return total
}

// AverageCost returns the share-weighted average cost basis of a
// ticker's lots, or 0 when no shares are held.
func AverageCost(lots []domain.Lot, ticker string) float64 {
	var shares int64
	var cost float64
	for _, l := range lots {
		if l.Ticker == ticker {
			shares += l.Shares
			cost += float64(l.Shares) * l.CostBasis
		}
	}
	if shares == 0 {
		return 0
	}
	return cost / float64(shares)
}

// Tickers returns the distinct tickers in first-appearance order.
func Tickers(lots []domain.Lot) []string {
	seen := make(map[string]bool, len(lots))
	var out []string
	for _, l := range lots {
		if !seen[l.Ticker] {
			seen[l.Ticker] = true
			out = append(out, l.Ticker)
		}
	}
	return out
}

// TotalCostBasis returns the acquisition cost of every open lot.
func TotalCostBasis(lots []domain.Lot) float64 {
	var total float64
	for _, l := range lots {
		total += float64(l.Shares) * l.CostBasis
	}
	return total
}
