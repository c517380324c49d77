// Package news is the narrative event collaborator: a weighted registry
// of headline templates that feeds one-tick price impacts into the
// market engine. The market engine neither knows nor cares how impacts
// are chosen.
package news

import (
	"fmt"

	"github.com/grubstreet/papertrader/internal/domain"
	"github.com/grubstreet/papertrader/internal/rng"
)

// Event is a narrative template. Impact is drawn uniformly from
// [MinImpact, MaxImpact] each time the event fires.
type Event struct {
	ID        string
	Headline  string
	Ticker    string // domain.AllTickers for market-wide events
	MinImpact float64
	MaxImpact float64
	Weight    float64
}

// Fired records one occurrence of an event.
type Fired struct {
	Event  Event
	Impact float64
	Turn   int
}

// Registry holds the event templates and a log of fired events.
type Registry struct {
	events      []Event
	weights     []float64
	probability float64 // chance that any event fires on a given turn
	log         []Fired
}

// NewRegistry creates a registry. Probability is clamped to [0, 1].
func NewRegistry(events []Event, probability float64) *Registry {
	weights := make([]float64, len(events))
	for i, ev := range events {
		weights[i] = ev.Weight
	}
	return &Registry{
		events:      events,
		weights:     weights,
		probability: domain.Clamp(probability, 0, 1),
	}
}

// MaybeFire rolls the per-turn probability and, on success, picks one
// event by weight and draws its impact. The caller queues the returned
// directive into the market engine.
func (r *Registry) MaybeFire(rand *rng.RNG, turn int) (Fired, bool) {
	if len(r.events) == 0 || rand.Float64() >= r.probability {
		return Fired{}, false
	}
	ev := r.events[rand.WeightedPick(r.weights)]
	fired := Fired{
		Event:  ev,
		Impact: rand.Range(ev.MinImpact, ev.MaxImpact),
		Turn:   turn,
	}
	r.log = append(r.log, fired)
	return fired, true
}

// Events returns the registry's templates.
func (r *Registry) Events() []Event {
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Recent returns up to n fired events, newest first.
func (r *Registry) Recent(n int) []Fired {
	if n > len(r.log) {
		n = len(r.log)
	}
	out := make([]Fired, 0, n)
	for i := len(r.log) - 1; i >= len(r.log)-n; i-- {
		out = append(out, r.log[i])
	}
	return out
}

// DefaultEvents builds a generic event set for the given tickers: a
// positive and a negative story per ticker plus two market-wide moves.
func DefaultEvents(tickers []string) []Event {
	var events []Event
	for _, t := range tickers {
		events = append(events,
			Event{
				ID:        fmt.Sprintf("%s-rally", t),
				Headline:  fmt.Sprintf("%s beats expectations, shares jump", t),
				Ticker:    t,
				MinImpact: 0.04,
				MaxImpact: 0.15,
				Weight:    2,
			},
			Event{
				ID:        fmt.Sprintf("%s-slump", t),
				Headline:  fmt.Sprintf("%s stumbles on weak outlook", t),
				Ticker:    t,
				MinImpact: -0.15,
				MaxImpact: -0.04,
				Weight:    2,
			},
		)
	}
	events = append(events,
		Event{
			ID:        "market-boom",
			Headline:  "Consumer spending surges across the board",
			Ticker:    domain.AllTickers,
			MinImpact: 0.02,
			MaxImpact: 0.08,
			Weight:    1,
		},
		Event{
			ID:        "market-scare",
			Headline:  "Rate worries drag the whole market down",
			Ticker:    domain.AllTickers,
			MinImpact: -0.08,
			MaxImpact: -0.02,
			Weight:    1,
		},
	)
	return events
}
