package market

import (
	"fmt"
	"time"

	"github.com/grubstreet/papertrader/internal/domain"
	"github.com/grubstreet/papertrader/internal/rng"
)

// Config holds the market engine's tunables. All fields have documented
// defaults and are fully overridable per instance.
type Config struct {
	MaxHistoryLength int     // price points retained per asset
	TransactionFee   float64 // flat fee per executed trade, dollars
	SpreadPercent    float64 // indicative bid/ask spread as a fraction
	Seed             int64
	Generator        GeneratorConfig
}

// DefaultConfig returns the defaults used by the game.
func DefaultConfig() Config {
	return Config{
		MaxHistoryLength: 100,
		TransactionFee:   1.00,
		SpreadPercent:    0.01,
		Seed:             1,
		Generator:        DefaultGeneratorConfig(),
	}
}

// TickResult summarizes one turn's price advancement across all assets.
type TickResult struct {
	Turn            int
	Prices          map[string]float64
	Changes         []domain.PriceChange
	TriggeredEvents []string
	Elapsed         time.Duration
}

// Quote is an indicative bid/ask pair derived from the configured
// spread. Display only; fills execute at the generated price.
type Quote struct {
	Bid float64
	Ask float64
}

type pendingImpact struct {
	impact  float64
	eventID string
}

// Engine owns the asset registry, current prices, per-asset bounded
// history, and pending event impacts. It advances all assets by one
// tick per turn. The engine is single-writer and unsynchronized; the
// session layer serializes access.
type Engine struct {
	cfg       Config
	rng       *rng.RNG
	assets    map[string]domain.Asset
	tickers   []string // registration order, for deterministic RNG draws
	prices    map[string]float64
	histories map[string]*History
	pending   map[string]pendingImpact
	turn      int
	subs      map[int]func([]domain.PriceChange)
	nextSub   int
}

// NewEngine validates the asset set and configuration and builds an
// engine with every asset at its base price and a single initial
// history point.
func NewEngine(assets []domain.Asset, cfg Config) (*Engine, error) {
	if len(assets) == 0 {
		return nil, domain.ErrNoAssets
	}
	if cfg.MaxHistoryLength <= 0 {
		return nil, fmt.Errorf("market: MaxHistoryLength must be positive, got %d", cfg.MaxHistoryLength)
	}
	if cfg.TransactionFee < 0 {
		return nil, fmt.Errorf("market: TransactionFee must not be negative, got %v", cfg.TransactionFee)
	}
	if cfg.SpreadPercent < 0 || cfg.SpreadPercent >= 1 {
		return nil, fmt.Errorf("market: SpreadPercent must be in [0, 1), got %v", cfg.SpreadPercent)
	}
	cfg.Generator = cfg.Generator.Normalize()

	e := &Engine{
		cfg:       cfg,
		rng:       rng.New(cfg.Seed),
		assets:    make(map[string]domain.Asset, len(assets)),
		tickers:   make([]string, 0, len(assets)),
		prices:    make(map[string]float64, len(assets)),
		histories: make(map[string]*History, len(assets)),
		pending:   make(map[string]pendingImpact),
		subs:      make(map[int]func([]domain.PriceChange)),
	}

	for _, a := range assets {
		if _, dup := e.assets[a.Ticker]; dup {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateTicker, a.Ticker)
		}
		if a.BasePrice < domain.MinPrice {
			return nil, fmt.Errorf("market: asset %s base price %v below minimum %v", a.Ticker, a.BasePrice, domain.MinPrice)
		}
		if a.Volatility < 0 || a.Volatility > 1 {
			return nil, fmt.Errorf("market: asset %s volatility %v outside [0, 1]", a.Ticker, a.Volatility)
		}
		e.assets[a.Ticker] = a
		e.tickers = append(e.tickers, a.Ticker)
		e.prices[a.Ticker] = a.BasePrice
		h := NewHistory(cfg.MaxHistoryLength)
		h.Push(initialPoint(a))
		e.histories[a.Ticker] = h
	}

	return e, nil
}

func initialPoint(a domain.Asset) domain.PricePoint {
	return domain.PricePoint{
		Price:     a.BasePrice,
		Turn:      0,
		Timestamp: time.Now(),
		Trigger:   domain.TriggerRandomWalk,
	}
}

// Tick advances the whole asset set by one turn. Pending event impacts
// apply to this tick only and are cleared afterwards whether or not
// they fired. Subscribers are notified synchronously with the full
// change batch before Tick returns.
func (e *Engine) Tick() TickResult {
	start := time.Now()
	e.turn++

	changes := make([]domain.PriceChange, 0, len(e.tickers))
	var fired []string
	seen := make(map[string]bool)

	for _, ticker := range e.tickers {
		asset := e.assets[ticker]
		current := e.prices[ticker]

		ctx := PriceContext{
			CurrentPrice: current,
			Volatility:   asset.Volatility,
			History:      e.histories[ticker].Prices(),
		}
		if imp, ok := e.pending[ticker]; ok {
			ctx.EventImpact = &imp.impact
			ctx.EventID = imp.eventID
		} else if imp, ok := e.pending[domain.AllTickers]; ok {
			ctx.EventImpact = &imp.impact
			ctx.EventID = imp.eventID
		}

		res := NextPrice(ctx, e.rng, e.cfg.Generator)
		e.prices[ticker] = res.Price

		e.histories[ticker].Push(domain.PricePoint{
			Price:         res.Price,
			Turn:          e.turn,
			Timestamp:     time.Now(),
			Change:        res.Change,
			ChangePercent: res.ChangePercent,
			Trigger:       res.Trigger,
			EventID:       res.EventID,
		})

		changes = append(changes, domain.PriceChange{
			Ticker:        ticker,
			Price:         res.Price,
			Previous:      current,
			Change:        res.Change,
			ChangePercent: res.ChangePercent,
			Trigger:       res.Trigger,
			EventID:       res.EventID,
		})

		if res.EventID != "" && !seen[res.EventID] {
			seen[res.EventID] = true
			fired = append(fired, res.EventID)
		}
	}

	e.pending = make(map[string]pendingImpact)

	for _, fn := range e.subs {
		fn(changes)
	}

	return TickResult{
		Turn:            e.turn,
		Prices:          e.Prices(),
		Changes:         changes,
		TriggeredEvents: fired,
		Elapsed:         time.Since(start),
	}
}

// ApplyEvent queues a one-tick price override for the next Tick only.
// The target is a ticker or domain.AllTickers. Unknown tickers are
// silently ignored. A second event for the same target before the tick
// replaces the first.
func (e *Engine) ApplyEvent(tickerOrAll string, impact float64, eventID string) {
	if tickerOrAll != domain.AllTickers {
		if _, ok := e.assets[tickerOrAll]; !ok {
			return
		}
	}
	e.pending[tickerOrAll] = pendingImpact{impact: impact, eventID: eventID}
}

// Reset reseeds the RNG from the configured seed, restores every asset
// to its base price, and re-initializes history to a single point. Two
// engines with the same seed and assets produce identical sequences.
func (e *Engine) Reset() {
	e.rng.Reseed(e.cfg.Seed)
	e.turn = 0
	e.pending = make(map[string]pendingImpact)
	for _, ticker := range e.tickers {
		a := e.assets[ticker]
		e.prices[ticker] = a.BasePrice
		e.histories[ticker].Reset(initialPoint(a))
	}
}

// Turn returns the current turn counter.
func (e *Engine) Turn() int { return e.turn }

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Price returns the current price of a ticker.
func (e *Engine) Price(ticker string) (float64, bool) {
	p, ok := e.prices[ticker]
	return p, ok
}

// Prices returns a copy of the current price map.
func (e *Engine) Prices() map[string]float64 {
	out := make(map[string]float64, len(e.prices))
	for k, v := range e.prices {
		out[k] = v
	}
	return out
}

// Asset returns the reference data for a ticker.
func (e *Engine) Asset(ticker string) (domain.Asset, bool) {
	a, ok := e.assets[ticker]
	return a, ok
}

// Assets returns the registry in registration order.
func (e *Engine) Assets() []domain.Asset {
	out := make([]domain.Asset, 0, len(e.tickers))
	for _, t := range e.tickers {
		out = append(out, e.assets[t])
	}
	return out
}

// Sectors returns the ticker → sector mapping for the registry.
func (e *Engine) Sectors() map[string]string {
	out := make(map[string]string, len(e.tickers))
	for _, t := range e.tickers {
		out[t] = e.assets[t].Sector
	}
	return out
}

// HistoryFor returns a copy of a ticker's price history, oldest first.
func (e *Engine) HistoryFor(ticker string) ([]domain.PricePoint, bool) {
	h, ok := e.histories[ticker]
	if !ok {
		return nil, false
	}
	return h.Points(), true
}

// Quote returns the indicative bid/ask for a ticker based on the
// configured spread.
func (e *Engine) Quote(ticker string) (Quote, bool) {
	p, ok := e.prices[ticker]
	if !ok {
		return Quote{}, false
	}
	half := e.cfg.SpreadPercent / 2
	return Quote{
		Bid: domain.FloorPrice(p * (1 - half)),
		Ask: domain.FloorPrice(p * (1 + half)),
	}, true
}

// OnPriceChange registers a listener invoked synchronously after every
// tick with that tick's changes. It returns an unsubscribe function.
// Listeners must not re-enter Tick.
func (e *Engine) OnPriceChange(fn func([]domain.PriceChange)) func() {
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() { delete(e.subs, id) }
}
