package domain

import "time"

// PriceTrigger labels the dominant cause of a price move. It is
// explanatory only; all components contribute to the move.
type PriceTrigger string

const (
	TriggerRandomWalk PriceTrigger = "random_walk"
	TriggerMomentum   PriceTrigger = "momentum"
	TriggerVolume     PriceTrigger = "volume"
	TriggerNews       PriceTrigger = "news"
)

// PricePoint is one asset's price at one tick. Append-only; stored in a
// capacity-bounded ring where the oldest point is evicted silently.
type PricePoint struct {
	Price         float64
	Turn          int
	Timestamp     time.Time
	Change        float64
	ChangePercent float64
	Trigger       PriceTrigger
	EventID       string // set when Trigger is TriggerNews
}

// PriceChange describes one asset's move during a tick, delivered to
// price-change subscribers and turn results.
type PriceChange struct {
	Ticker        string
	Price         float64
	Previous      float64
	Change        float64
	ChangePercent float64
	Trigger       PriceTrigger
	EventID       string
}
