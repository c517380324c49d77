package domain

// ExecutedTrade is the point-in-time record of a fill. It is consumed
// exactly once by the portfolio manager to mutate portfolio state and
// is never reapplied.
type ExecutedTrade struct {
	OrderID    string
	Ticker     string
	Side       OrderSide
	Shares     int64
	Price      float64
	TotalValue float64
	Fee        float64
	ExecutedAt int // turn
}
