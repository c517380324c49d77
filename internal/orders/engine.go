// Package orders owns the pending and historical order sets. It
// validates requests against the portfolio and prices, matches pending
// orders against each turn's prices, expires stale orders, and emits
// executed trades for the portfolio manager to apply. It never mutates
// portfolio state itself.
package orders

import (
	"fmt"

	"github.com/google/btree"
	"github.com/google/uuid"

	"github.com/grubstreet/papertrader/internal/domain"
)

// Config holds the order engine's tunables.
type Config struct {
	DefaultExpirationTurns int // lifetime of an order when the request doesn't set one
}

// DefaultConfig returns the defaults used by the game.
func DefaultConfig() Config {
	return Config{DefaultExpirationTurns: 5}
}

// PortfolioView is the read-only slice of portfolio state the engine
// needs for funds and share sufficiency checks.
type PortfolioView interface {
	Cash() float64
	Shares(ticker string) int64
}

// Request describes an order to submit.
type Request struct {
	Type           domain.OrderType
	Side           domain.OrderSide
	Ticker         string
	Quantity       int64
	LimitPrice     *float64
	StopPrice      *float64
	ExpiresInTurns *int // nil selects the configured default
}

// ValidationResult is the advisory outcome of Validate. Errors are
// human-readable and never partial; callers may ignore the result.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// TurnResult summarizes one end-of-turn matching pass.
type TurnResult struct {
	Turn    int
	Fills   []domain.Order
	Expired []domain.Order
	Pending []domain.Order
	Trades  []domain.ExecutedTrade
}

// expiryKey orders pending orders by expiration turn so the turn-end
// sweep walks them oldest-deadline first.
type expiryKey struct {
	expiresAt int
	id        string
}

func expiryLess(a, b expiryKey) bool {
	if a.expiresAt != b.expiresAt {
		return a.expiresAt < b.expiresAt
	}
	return a.id < b.id
}

// Engine is the single owner of the order set. Orders transition
// exactly once from pending to filled, cancelled, or expired, and are
// archived in history once terminal. The engine is single-writer and
// unsynchronized; the session layer serializes access.
type Engine struct {
	cfg     Config
	pending map[string]*domain.Order
	queue   []string // submission order, for deterministic matching
	expiry  *btree.BTreeG[expiryKey]
	history []domain.Order
}

// NewEngine creates an empty order engine.
func NewEngine(cfg Config) *Engine {
	if cfg.DefaultExpirationTurns <= 0 {
		cfg.DefaultExpirationTurns = DefaultConfig().DefaultExpirationTurns
	}
	const degree = 32
	return &Engine{
		cfg:     cfg,
		pending: make(map[string]*domain.Order),
		expiry:  btree.NewG[expiryKey](degree, expiryLess),
	}
}

// Submit accepts a request unconditionally — no market validation
// happens at submit time. Callers wanting rejection semantics run
// Validate first. The engine assigns the id, placement turn, and
// expiration turn.
func (e *Engine) Submit(req Request, currentTurn int) domain.Order {
	lifetime := e.cfg.DefaultExpirationTurns
	if req.ExpiresInTurns != nil {
		lifetime = *req.ExpiresInTurns
	}

	o := &domain.Order{
		ID:         uuid.New().String(),
		Type:       req.Type,
		Side:       req.Side,
		Ticker:     req.Ticker,
		Quantity:   req.Quantity,
		LimitPrice: req.LimitPrice,
		StopPrice:  req.StopPrice,
		Status:     domain.OrderStatusPending,
		PlacedAt:   currentTurn,
		ExpiresAt:  currentTurn + lifetime,
	}

	e.pending[o.ID] = o
	e.queue = append(e.queue, o.ID)
	e.expiry.ReplaceOrInsert(expiryKey{expiresAt: o.ExpiresAt, id: o.ID})

	return *o
}

// Cancel removes an order from the pending set and archives a
// cancelled copy. An order already in a terminal state returns
// domain.ErrOrderNotCancellable; an unknown id returns
// domain.ErrOrderNotFound.
func (e *Engine) Cancel(id string) (domain.Order, error) {
	o, ok := e.pending[id]
	if !ok {
		if archived, err := e.Order(id); err == nil {
			return archived, domain.ErrOrderNotCancellable
		}
		return domain.Order{}, domain.ErrOrderNotFound
	}
	o.Status = domain.OrderStatusCancelled
	e.archive(o)
	return *o, nil
}

// archive moves a now-terminal order out of the pending structures and
// into history.
func (e *Engine) archive(o *domain.Order) {
	delete(e.pending, o.ID)
	e.expiry.Delete(expiryKey{expiresAt: o.ExpiresAt, id: o.ID})
	e.history = append(e.history, *o)
}

// ProcessEndOfTurn runs one matching pass over all pending orders.
// Expiration is checked before fill eligibility, so an order whose
// deadline arrives on a turn it could have filled is archived as
// expired. Orders whose ticker has no current price stay pending.
// Funds and shares are tracked across the pass so a batch of fills can
// never overdraw cash or oversell a position; the caller applies the
// returned trades to the portfolio in order.
func (e *Engine) ProcessEndOfTurn(prices map[string]float64, view PortfolioView, currentTurn int, fee float64) TurnResult {
	res := TurnResult{Turn: currentTurn}

	// Expiration sweep, oldest deadline first.
	var due []expiryKey
	e.expiry.Ascend(func(k expiryKey) bool {
		if k.expiresAt > currentTurn {
			return false
		}
		due = append(due, k)
		return true
	})
	for _, k := range due {
		o := e.pending[k.id]
		o.Status = domain.OrderStatusExpired
		e.archive(o)
		res.Expired = append(res.Expired, *o)
	}

	// Matching pass in submission order, with running availability.
	availCash := view.Cash()
	availShares := make(map[string]int64)
	shares := func(ticker string) int64 {
		if s, ok := availShares[ticker]; ok {
			return s
		}
		s := view.Shares(ticker)
		availShares[ticker] = s
		return s
	}

	keep := e.queue[:0]
	for _, id := range e.queue {
		o, ok := e.pending[id]
		if !ok {
			continue // already terminal
		}

		price, known := prices[o.Ticker]
		if !known {
			keep = append(keep, id)
			continue
		}

		// A stop touch arms a stop-limit order permanently; from then
		// on it fills under limit rules.
		if o.Type == domain.OrderTypeStopLimit && !o.Triggered && stopTouched(o, price) {
			o.Triggered = true
		}

		if !e.canExecute(o, price, availCash, shares(o.Ticker), fee) {
			keep = append(keep, id)
			continue
		}

		fillPrice := executionPrice(o, price)
		total := domain.Round2(float64(o.Quantity) * fillPrice)

		turn := currentTurn
		o.Status = domain.OrderStatusFilled
		o.FilledQuantity = o.Quantity
		o.FillPrice = &fillPrice
		o.FilledAt = &turn
		e.archive(o)

		trade := domain.ExecutedTrade{
			OrderID:    o.ID,
			Ticker:     o.Ticker,
			Side:       o.Side,
			Shares:     o.Quantity,
			Price:      fillPrice,
			TotalValue: total,
			Fee:        fee,
			ExecutedAt: currentTurn,
		}
		if o.Side == domain.OrderSideBuy {
			availCash -= total + fee
		} else {
			availShares[o.Ticker] -= o.Quantity
			availCash += total - fee
		}

		res.Fills = append(res.Fills, *o)
		res.Trades = append(res.Trades, trade)
	}
	e.queue = keep

	for _, id := range e.queue {
		res.Pending = append(res.Pending, *e.pending[id])
	}
	return res
}

// stopTouched reports whether the market price has crossed an order's
// stop price.
func stopTouched(o *domain.Order, price float64) bool {
	if o.StopPrice == nil {
		return false
	}
	if o.Side == domain.OrderSideBuy {
		return price >= *o.StopPrice
	}
	return price <= *o.StopPrice
}

// limitSatisfied reports whether the market price meets an order's
// limit condition.
func limitSatisfied(o *domain.Order, price float64) bool {
	if o.LimitPrice == nil {
		return false
	}
	if o.Side == domain.OrderSideBuy {
		return price <= *o.LimitPrice
	}
	return price >= *o.LimitPrice
}

// canExecute combines funds/shares sufficiency with the type-specific
// trigger condition. Insufficiency is a soft failure — the order stays
// pending and is retried next turn.
func (e *Engine) canExecute(o *domain.Order, price, cash float64, held int64, fee float64) bool {
	var triggered bool
	switch o.Type {
	case domain.OrderTypeMarket:
		triggered = true
	case domain.OrderTypeLimit:
		triggered = limitSatisfied(o, price)
	case domain.OrderTypeStop:
		triggered = stopTouched(o, price)
	case domain.OrderTypeStopLimit:
		triggered = o.Triggered && limitSatisfied(o, price)
	}
	if !triggered {
		return false
	}

	if o.Side == domain.OrderSideBuy {
		cost := domain.Round2(float64(o.Quantity)*executionPrice(o, price)) + fee
		return cost <= cash
	}
	return o.Quantity <= held
}

// executionPrice computes the fill price. Market and stop orders fill
// at the current price; limit (and armed stop-limit) orders fill at the
// more favorable of current price and limit.
func executionPrice(o *domain.Order, price float64) float64 {
	switch o.Type {
	case domain.OrderTypeLimit, domain.OrderTypeStopLimit:
		if o.LimitPrice == nil {
			return price
		}
		if o.Side == domain.OrderSideBuy {
			if price < *o.LimitPrice {
				return price
			}
		} else {
			if price > *o.LimitPrice {
				return price
			}
		}
		return *o.LimitPrice
	default:
		return price
	}
}

// Validate runs the advisory pre-submission checks. It never blocks a
// subsequent Submit; the caller decides what to do with the result.
func (e *Engine) Validate(req Request, view PortfolioView, prices map[string]float64, fee float64) ValidationResult {
	var res ValidationResult

	if req.Quantity <= 0 {
		res.Errors = append(res.Errors, "quantity must be a positive number of shares")
	}
	if req.Side != domain.OrderSideBuy && req.Side != domain.OrderSideSell {
		res.Errors = append(res.Errors, fmt.Sprintf("unknown order side %q", req.Side))
	}
	switch req.Type {
	case domain.OrderTypeMarket, domain.OrderTypeLimit, domain.OrderTypeStop, domain.OrderTypeStopLimit:
	default:
		res.Errors = append(res.Errors, fmt.Sprintf("unknown order type %q", req.Type))
	}

	price, known := prices[req.Ticker]
	if len(prices) > 0 && !known {
		res.Errors = append(res.Errors, fmt.Sprintf("no known price for ticker %s", req.Ticker))
	}

	if req.Type == domain.OrderTypeLimit || req.Type == domain.OrderTypeStopLimit {
		if req.LimitPrice == nil {
			res.Errors = append(res.Errors, "limit orders require a limit price")
		} else if *req.LimitPrice <= 0 {
			res.Errors = append(res.Errors, "limit price must be positive")
		}
	}
	if req.Type == domain.OrderTypeStop || req.Type == domain.OrderTypeStopLimit {
		if req.StopPrice == nil {
			res.Errors = append(res.Errors, "stop orders require a stop price")
		} else if *req.StopPrice <= 0 {
			res.Errors = append(res.Errors, "stop price must be positive")
		}
	}
	if req.ExpiresInTurns != nil && *req.ExpiresInTurns <= 0 {
		res.Errors = append(res.Errors, "expiration must be at least one turn")
	}

	if known && req.Quantity > 0 {
		reference := price
		if req.Type == domain.OrderTypeLimit && req.LimitPrice != nil {
			reference = *req.LimitPrice
		}
		if req.Side == domain.OrderSideBuy {
			cost := domain.Round2(float64(req.Quantity)*reference) + fee
			if cost > view.Cash() {
				res.Errors = append(res.Errors, fmt.Sprintf("buying %d %s costs %.2f with fee, but only %.2f cash is available",
					req.Quantity, req.Ticker, cost, view.Cash()))
			}
		} else {
			if held := view.Shares(req.Ticker); req.Quantity > held {
				res.Errors = append(res.Errors, fmt.Sprintf("cannot sell %d %s, only %d held",
					req.Quantity, req.Ticker, held))
			}
		}

		if req.Type == domain.OrderTypeLimit && req.LimitPrice != nil {
			if req.Side == domain.OrderSideBuy && price <= *req.LimitPrice {
				res.Warnings = append(res.Warnings, "limit is at or above the current price; the order will fill immediately")
			}
			if req.Side == domain.OrderSideSell && price >= *req.LimitPrice {
				res.Warnings = append(res.Warnings, "limit is at or below the current price; the order will fill immediately")
			}
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// Order returns a pending or archived order by id.
func (e *Engine) Order(id string) (domain.Order, error) {
	if o, ok := e.pending[id]; ok {
		return *o, nil
	}
	for i := len(e.history) - 1; i >= 0; i-- {
		if e.history[i].ID == id {
			return e.history[i], nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

// Pending returns copies of the pending orders in submission order.
func (e *Engine) Pending() []domain.Order {
	out := make([]domain.Order, 0, len(e.pending))
	for _, id := range e.queue {
		if o, ok := e.pending[id]; ok {
			out = append(out, *o)
		}
	}
	return out
}

// PendingCount returns the number of open orders.
func (e *Engine) PendingCount() int { return len(e.pending) }

// History returns the archived terminal orders, oldest first.
func (e *Engine) History() []domain.Order {
	out := make([]domain.Order, len(e.history))
	copy(out, e.history)
	return out
}
