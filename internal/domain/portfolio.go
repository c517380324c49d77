package domain

import "time"

// PortfolioState holds the cash and lot collection owned by the
// portfolio manager. Cash and RealizedPnL only change through trade and
// dividend application.
type PortfolioState struct {
	Cash           float64
	Lots           []Lot
	RealizedPnL    float64
	TotalFees      float64
	TotalDividends float64
	TradeCount     int
	LastUpdated    time.Time
}

// Clone returns a deep copy of the state. Snapshots handed to callers
// must never alias the manager's internal lot list.
func (s PortfolioState) Clone() PortfolioState {
	out := s
	out.Lots = make([]Lot, len(s.Lots))
	copy(out.Lots, s.Lots)
	return out
}
