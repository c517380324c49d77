package market

import (
	"math"

	"github.com/grubstreet/papertrader/internal/domain"
	"github.com/grubstreet/papertrader/internal/rng"
)

// momentumStepDecay halves-ish the weight of each older percentage
// change when computing the momentum signal.
const momentumStepDecay = 0.7

// GeneratorConfig tunes the relative strength of the price-move
// components. Zero values are replaced with defaults by Normalize.
type GeneratorConfig struct {
	RandomWalkWeight float64 // stdev multiplier for the Gaussian walk
	MomentumWeight   float64 // scale of the decayed momentum signal
	NewsWeight       float64 // scale applied to narrative event impacts
	VolumeWeight     float64 // scale of the uniform volume sentiment
	MomentumDecay    float64 // additional damping on the momentum component
}

// DefaultGeneratorConfig returns the tuning used by the game unless
// overridden per instance.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		RandomWalkWeight: 1.0,
		MomentumWeight:   0.3,
		NewsWeight:       1.0,
		VolumeWeight:     0.2,
		MomentumDecay:    momentumStepDecay,
	}
}

// Normalize fills unset weights with their defaults.
func (c GeneratorConfig) Normalize() GeneratorConfig {
	d := DefaultGeneratorConfig()
	if c.RandomWalkWeight == 0 {
		c.RandomWalkWeight = d.RandomWalkWeight
	}
	if c.MomentumWeight == 0 {
		c.MomentumWeight = d.MomentumWeight
	}
	if c.NewsWeight == 0 {
		c.NewsWeight = d.NewsWeight
	}
	if c.VolumeWeight == 0 {
		c.VolumeWeight = d.VolumeWeight
	}
	if c.MomentumDecay == 0 {
		c.MomentumDecay = d.MomentumDecay
	}
	return c
}

// PriceContext is the input to one price advancement for one asset.
type PriceContext struct {
	CurrentPrice float64
	Volatility   float64
	History      []float64 // recent prices, oldest first
	EventImpact  *float64  // pending narrative impact, if any
	EventID      string
}

// PriceResult is the outcome of one price advancement.
type PriceResult struct {
	Price         float64
	Change        float64
	ChangePercent float64
	Trigger       domain.PriceTrigger
	EventID       string
}

// NextPrice computes the next price for an asset. A pending narrative
// event dominates the tick outright: the impact is applied directly and
// no other component contributes. Otherwise the change is the sum of a
// Gaussian random walk, a decayed momentum signal, and a uniform volume
// sentiment, globally clamped to ±3× the asset's volatility. The
// resulting price is floored at domain.MinPrice and rounded to cents.
func NextPrice(ctx PriceContext, r *rng.RNG, cfg GeneratorConfig) PriceResult {
	if ctx.EventImpact != nil && ctx.EventID != "" {
		price := domain.FloorPrice(ctx.CurrentPrice * (1 + *ctx.EventImpact*cfg.NewsWeight))
		return makeResult(ctx.CurrentPrice, price, domain.TriggerNews, ctx.EventID)
	}

	randomWalk := r.Norm(0, ctx.Volatility*cfg.RandomWalkWeight)
	momentum := Momentum(ctx.History) * cfg.MomentumWeight * cfg.MomentumDecay
	volumeSentiment := r.Range(-1, 1) * cfg.VolumeWeight * ctx.Volatility

	bound := ctx.Volatility * 3
	change := domain.Clamp(randomWalk+momentum+volumeSentiment, -bound, bound)
	price := domain.FloorPrice(ctx.CurrentPrice * (1 + change))

	// One explanatory label even though all components contributed.
	trigger := domain.TriggerRandomWalk
	switch {
	case math.Abs(momentum) > math.Abs(randomWalk):
		trigger = domain.TriggerMomentum
	case math.Abs(volumeSentiment) > 0.5*math.Abs(randomWalk):
		trigger = domain.TriggerVolume
	}

	return makeResult(ctx.CurrentPrice, price, trigger, "")
}

// Momentum computes an exponentially decayed average of recent
// percentage changes, newest pair weighted 1.0 and each older pair
// decayed by 0.7. The result is clamped to [-1, 1]. Fewer than two
// prices yield 0.
func Momentum(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}
	weight := 1.0
	var acc float64
	for i := len(prices) - 1; i >= 1; i-- {
		prev := prices[i-1]
		if prev != 0 {
			acc += (prices[i] - prev) / prev * weight
		}
		weight *= momentumStepDecay
	}
	return domain.Clamp(acc, -1, 1)
}

func makeResult(current, price float64, trigger domain.PriceTrigger, eventID string) PriceResult {
	change := domain.Round2(price - current)
	var pct float64
	if current != 0 {
		pct = (price - current) / current * 100
	}
	return PriceResult{
		Price:         price,
		Change:        change,
		ChangePercent: pct,
		Trigger:       trigger,
		EventID:       eventID,
	}
}
