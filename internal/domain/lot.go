package domain

// Lot records shares acquired at a specific price and turn, used for
// FIFO cost-basis accounting. Lots are immutable values; consuming part
// of a lot is modeled as replacing the lot list.
type Lot struct {
	Ticker     string
	Shares     int64
	CostBasis  float64 // price per share at acquisition
	AcquiredAt int     // turn
}

// Holding aggregates all of a ticker's lots against a current price.
// Derived on demand, never stored.
type Holding struct {
	Ticker        string
	Shares        int64
	AvgCost       float64
	MarketValue   float64
	UnrealizedPnL float64
	PercentChange float64
}
