package portfolio

import (
	"fmt"
	"time"

	"github.com/grubstreet/papertrader/internal/domain"
)

// DefaultConcentrationLimit is the advisory ceiling on a single
// position's share of total portfolio value.
const DefaultConcentrationLimit = 0.5

// Manager owns a portfolio's cash, lot collection, and cumulative
// realized figures. Derived queries recompute from lots and a supplied
// price map on every call; nothing is cached. The manager is
// single-writer and unsynchronized — the session layer serializes
// access.
type Manager struct {
	state domain.PortfolioState
}

// NewManager creates a portfolio holding only starting cash.
func NewManager(startingCash float64) *Manager {
	return &Manager{state: domain.PortfolioState{
		Cash:        startingCash,
		Lots:        []domain.Lot{},
		LastUpdated: time.Now(),
	}}
}

// State returns a snapshot of the portfolio. Snapshots never alias the
// manager's internal lot list and are never mutated after return.
func (m *Manager) State() domain.PortfolioState {
	return m.state.Clone()
}

// Cash returns the current cash balance.
func (m *Manager) Cash() float64 { return m.state.Cash }

// Shares returns the shares currently held in a ticker.
func (m *Manager) Shares(ticker string) int64 {
	return SharesFor(m.state.Lots, ticker)
}

// Lots returns a copy of the open lot list.
func (m *Manager) Lots() []domain.Lot {
	out := make([]domain.Lot, len(m.state.Lots))
	copy(out, m.state.Lots)
	return out
}

// ApplyTrade mutates cash and lots for an executed trade. Buys deduct
// value plus fee and append a lot at the trade price; sells consume
// lots FIFO and credit value minus fee. Affordability is not re-checked
// here — the order engine validates before emitting a trade and this
// method trusts its input.
func (m *Manager) ApplyTrade(t domain.ExecutedTrade) {
	switch t.Side {
	case domain.OrderSideBuy:
		m.state.Cash -= t.TotalValue + t.Fee
		m.state.Lots = AddLot(m.state.Lots, domain.Lot{
			Ticker:     t.Ticker,
			Shares:     t.Shares,
			CostBasis:  t.Price,
			AcquiredAt: t.ExecutedAt,
		})
	case domain.OrderSideSell:
		res := SellLotsFIFO(m.state.Lots, t.Ticker, t.Shares, t.Price)
		m.state.Lots = res.Lots
		m.state.Cash += t.TotalValue - t.Fee
		m.state.RealizedPnL += res.RealizedPnL
	}
	m.state.TotalFees += t.Fee
	m.state.TradeCount++
	m.state.LastUpdated = time.Now()
}

// ApplyDividend credits shares held × the per-share amount to cash and
// to the cumulative dividend total. Returns the amount credited.
func (m *Manager) ApplyDividend(ticker string, perShare float64) float64 {
	amount := domain.Round2(float64(m.Shares(ticker)) * perShare)
	if amount == 0 {
		return 0
	}
	m.state.Cash += amount
	m.state.TotalDividends += amount
	m.state.LastUpdated = time.Now()
	return amount
}

// priceOrCost values a ticker at the supplied current price, falling
// back to its average cost when the price map has no entry.
func (m *Manager) priceOrCost(ticker string, prices map[string]float64) float64 {
	if p, ok := prices[ticker]; ok {
		return p
	}
	return AverageCost(m.state.Lots, ticker)
}

// Holding aggregates a ticker's lots against the supplied prices.
func (m *Manager) Holding(ticker string, prices map[string]float64) (domain.Holding, bool) {
	shares := m.Shares(ticker)
	if shares == 0 {
		return domain.Holding{}, false
	}
	avg := AverageCost(m.state.Lots, ticker)
	price := m.priceOrCost(ticker, prices)
	value := float64(shares) * price
	var pct float64
	if avg != 0 {
		pct = (price - avg) / avg * 100
	}
	return domain.Holding{
		Ticker:        ticker,
		Shares:        shares,
		AvgCost:       avg,
		MarketValue:   value,
		UnrealizedPnL: value - float64(shares)*avg,
		PercentChange: pct,
	}, true
}

// Holdings aggregates every held ticker, in first-acquisition order.
func (m *Manager) Holdings(prices map[string]float64) []domain.Holding {
	tickers := Tickers(m.state.Lots)
	out := make([]domain.Holding, 0, len(tickers))
	for _, t := range tickers {
		if h, ok := m.Holding(t, prices); ok {
			out = append(out, h)
		}
	}
	return out
}

// TotalValue returns cash plus the market value of every holding. Pure
// derivation: calling it twice with unchanged state and prices returns
// the same value.
func (m *Manager) TotalValue(prices map[string]float64) float64 {
	total := m.state.Cash
	for _, h := range m.Holdings(prices) {
		total += h.MarketValue
	}
	return total
}

// UnrealizedPnL returns the aggregate unrealized gain or loss across
// all holdings.
func (m *Manager) UnrealizedPnL(prices map[string]float64) float64 {
	var total float64
	for _, h := range m.Holdings(prices) {
		total += h.UnrealizedPnL
	}
	return total
}

// Concentration returns the fraction of total portfolio value held in
// a single ticker, or 0 for an empty portfolio.
func (m *Manager) Concentration(ticker string, prices map[string]float64) float64 {
	total := m.TotalValue(prices)
	if total <= 0 {
		return 0
	}
	h, ok := m.Holding(ticker, prices)
	if !ok {
		return 0
	}
	return h.MarketValue / total
}

// SectorExposure returns each sector's fraction of total portfolio
// value, using the supplied ticker → sector mapping. Cash is counted in
// the denominator but belongs to no sector.
func (m *Manager) SectorExposure(prices map[string]float64, sectors map[string]string) map[string]float64 {
	total := m.TotalValue(prices)
	out := make(map[string]float64)
	if total <= 0 {
		return out
	}
	for _, h := range m.Holdings(prices) {
		sector := sectors[h.Ticker]
		if sector == "" {
			sector = "unknown"
		}
		out[sector] += h.MarketValue / total
	}
	return out
}

// RiskCheck is the advisory result of a pre-trade check. Callers decide
// whether to block a trade on failure.
type RiskCheck struct {
	Passed  bool
	Message string
}

// CheckConcentrationLimit simulates adding value to a position and
// reports whether the resulting concentration would exceed the limit.
// A non-positive limit selects DefaultConcentrationLimit.
func (m *Manager) CheckConcentrationLimit(ticker string, additionalValue float64, prices map[string]float64, limit float64) RiskCheck {
	if limit <= 0 {
		limit = DefaultConcentrationLimit
	}
	total := m.TotalValue(prices) + additionalValue
	if total <= 0 {
		return RiskCheck{Passed: true}
	}
	var held float64
	if h, ok := m.Holding(ticker, prices); ok {
		held = h.MarketValue
	}
	conc := (held + additionalValue) / total
	if conc > limit {
		return RiskCheck{
			Passed: false,
			Message: fmt.Sprintf("%s would be %.1f%% of portfolio value, above the %.0f%% limit",
				ticker, conc*100, limit*100),
		}
	}
	return RiskCheck{Passed: true}
}
