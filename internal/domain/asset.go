package domain

// AllTickers is the event target that applies a narrative impact to
// every asset in the registry.
const AllTickers = "*"

// Asset is immutable reference data for a tradable instrument.
// Created once at game setup and never mutated afterwards.
type Asset struct {
	Ticker      string
	Name        string
	Sector      string
	RiskRating  int     // 1 (stable) through 4 (speculative)
	BasePrice   float64
	Volatility  float64 // fraction of price per tick, 0..1
	Description string
	Icon        string
}
