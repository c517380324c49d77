// Package service ties the market engine, order engine, portfolio
// manager, and news registry into a game session and drives the turn
// sequence.
package service

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/grubstreet/papertrader/internal/domain"
	"github.com/grubstreet/papertrader/internal/market"
	"github.com/grubstreet/papertrader/internal/metrics"
	"github.com/grubstreet/papertrader/internal/news"
	"github.com/grubstreet/papertrader/internal/orders"
	"github.com/grubstreet/papertrader/internal/portfolio"
	"github.com/grubstreet/papertrader/internal/rng"
	"github.com/grubstreet/papertrader/internal/stream"
)

// SessionConfig configures one game session.
type SessionConfig struct {
	StartingCash    float64
	Market          market.Config
	Orders          orders.Config
	NewsProbability float64      // chance a narrative event fires each turn
	Events          []news.Event // nil selects news.DefaultEvents
}

// DefaultSessionConfig returns the defaults used by the game.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		StartingCash:    10000,
		Market:          market.DefaultConfig(),
		Orders:          orders.DefaultConfig(),
		NewsProbability: 0.15,
	}
}

// TurnSummary is the result of advancing a session by one turn.
type TurnSummary struct {
	Turn       int
	Tick       market.TickResult
	Orders     orders.TurnResult
	News       []news.Fired
	Portfolio  domain.PortfolioState
	TotalValue float64
}

// PortfolioSummary bundles the derived portfolio views.
type PortfolioSummary struct {
	State          domain.PortfolioState
	Holdings       []domain.Holding
	TotalValue     float64
	UnrealizedPnL  float64
	SectorExposure map[string]float64
}

// Session owns one player's simulation: a market engine, an order
// engine, a portfolio, and a news registry. A turn is one atomic
// sequence under the session lock: news → market tick → order matching
// → trade application. The components themselves are single-writer and
// unsynchronized; all concurrency control lives here.
type Session struct {
	mu        sync.Mutex
	id        string
	createdAt time.Time
	cfg       SessionConfig
	market    *market.Engine
	orders    *orders.Engine
	portfolio *portfolio.Manager
	news      *news.Registry
	newsRNG   *rng.RNG
	hub       *stream.Hub
	logger    *slog.Logger
}

// newsSeed derives the news draw stream from the market seed so a
// replayed session reproduces its headlines as well as its prices.
func newsSeed(marketSeed int64) int64 { return marketSeed + 1 }

// NewSession validates the asset set and builds a session. The stream
// hub is wired to the market's price-change notifications and started
// immediately.
func NewSession(assets []domain.Asset, cfg SessionConfig, logger *slog.Logger) (*Session, error) {
	if cfg.StartingCash <= 0 {
		return nil, &domain.ValidationError{Message: "starting cash must be positive"}
	}

	eng, err := market.NewEngine(assets, cfg.Market)
	if err != nil {
		return nil, err
	}

	events := cfg.Events
	if events == nil {
		tickers := make([]string, 0, len(assets))
		for _, a := range assets {
			tickers = append(tickers, a.Ticker)
		}
		events = news.DefaultEvents(tickers)
	}

	s := &Session{
		id:        uuid.New().String(),
		createdAt: time.Now(),
		cfg:       cfg,
		market:    eng,
		orders:    orders.NewEngine(cfg.Orders),
		portfolio: portfolio.NewManager(cfg.StartingCash),
		news:      news.NewRegistry(events, cfg.NewsProbability),
		newsRNG:   rng.New(newsSeed(cfg.Market.Seed)),
		hub:       stream.NewHub(),
		logger:    logger,
	}

	s.market.OnPriceChange(func(changes []domain.PriceChange) {
		s.hub.BroadcastChanges(s.id, s.market.Turn(), changes)
	})
	go s.hub.Run()

	return s, nil
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns the session's creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Hub exposes the WebSocket hub for the handler layer.
func (s *Session) Hub() *stream.Hub { return s.hub }

// Turn returns the current turn counter.
func (s *Session) Turn() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.market.Turn()
}

// AdvanceTurn runs one atomic turn: the news registry may queue an
// event impact, the market ticks, pending orders are matched against
// the new prices, and every emitted trade is applied to the portfolio
// before the lock is released.
func (s *Session) AdvanceTurn() TurnSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	nextTurn := s.market.Turn() + 1

	var firedNews []news.Fired
	if fired, ok := s.news.MaybeFire(s.newsRNG, nextTurn); ok {
		s.market.ApplyEvent(fired.Event.Ticker, fired.Impact, fired.Event.ID)
		firedNews = append(firedNews, fired)
		metrics.EventsFired.Inc()
		s.logger.Info("news event",
			slog.String("session", s.id),
			slog.String("event", fired.Event.ID),
			slog.Float64("impact", fired.Impact),
		)
	}

	tick := s.market.Tick()
	turnRes := s.orders.ProcessEndOfTurn(tick.Prices, s.portfolio, tick.Turn, s.market.Config().TransactionFee)
	for _, trade := range turnRes.Trades {
		s.portfolio.ApplyTrade(trade)
	}

	metrics.TicksTotal.Inc()
	metrics.TickDuration.Observe(tick.Elapsed.Seconds())
	for _, fill := range turnRes.Fills {
		metrics.FillsTotal.WithLabelValues(string(fill.Side)).Inc()
	}
	if n := len(turnRes.Expired); n > 0 {
		metrics.ExpirationsTotal.Add(float64(n))
	}

	s.logger.Debug("turn advanced",
		slog.String("session", s.id),
		slog.Int("turn", tick.Turn),
		slog.Int("fills", len(turnRes.Fills)),
		slog.Int("expired", len(turnRes.Expired)),
		slog.Int("pending", len(turnRes.Pending)),
	)

	return TurnSummary{
		Turn:       tick.Turn,
		Tick:       tick,
		Orders:     turnRes,
		News:       firedNews,
		Portfolio:  s.portfolio.State(),
		TotalValue: s.portfolio.TotalValue(tick.Prices),
	}
}

// SubmitOrder validates the request and, if it passes, hands it to the
// order engine. Validation warnings are returned alongside the order.
func (s *Session) SubmitOrder(req orders.Request) (domain.Order, []string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fee := s.market.Config().TransactionFee
	v := s.orders.Validate(req, s.portfolio, s.market.Prices(), fee)
	if !v.Valid {
		return domain.Order{}, v.Warnings, &domain.ValidationError{
			Message: strings.Join(v.Errors, "; "),
		}
	}

	o := s.orders.Submit(req, s.market.Turn())
	metrics.OrdersSubmitted.WithLabelValues(string(o.Type)).Inc()
	return o, v.Warnings, nil
}

// ValidateOrder runs the advisory checks without submitting.
func (s *Session) ValidateOrder(req orders.Request) orders.ValidationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders.Validate(req, s.portfolio, s.market.Prices(), s.market.Config().TransactionFee)
}

// CancelOrder cancels a pending order.
func (s *Session) CancelOrder(id string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, err := s.orders.Cancel(id)
	if err == nil {
		metrics.CancellationsTotal.Inc()
	}
	return o, err
}

// Order returns a pending or archived order by id.
func (s *Session) Order(id string) (domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders.Order(id)
}

// PendingOrders returns the open orders in submission order.
func (s *Session) PendingOrders() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders.Pending()
}

// OrderHistory returns the archived terminal orders.
func (s *Session) OrderHistory() []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders.History()
}

// Portfolio returns a snapshot of the portfolio state.
func (s *Session) Portfolio() domain.PortfolioState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.portfolio.State()
}

// PortfolioSummary returns the derived portfolio views against current
// prices.
func (s *Session) PortfolioSummary() PortfolioSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	prices := s.market.Prices()
	return PortfolioSummary{
		State:          s.portfolio.State(),
		Holdings:       s.portfolio.Holdings(prices),
		TotalValue:     s.portfolio.TotalValue(prices),
		UnrealizedPnL:  s.portfolio.UnrealizedPnL(prices),
		SectorExposure: s.portfolio.SectorExposure(prices, s.market.Sectors()),
	}
}

// CheckConcentration runs the advisory pre-trade concentration check.
func (s *Session) CheckConcentration(ticker string, additionalValue, limit float64) portfolio.RiskCheck {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.portfolio.CheckConcentrationLimit(ticker, additionalValue, s.market.Prices(), limit)
}

// ApplyDividend credits a per-share dividend for a ticker and returns
// the amount credited.
func (s *Session) ApplyDividend(ticker string, perShare float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.market.Asset(ticker); !ok {
		return 0, domain.ErrAssetNotFound
	}
	if perShare <= 0 {
		return 0, &domain.ValidationError{Message: "dividend per share must be positive"}
	}
	return s.portfolio.ApplyDividend(ticker, perShare), nil
}

// Assets returns the asset registry in registration order.
func (s *Session) Assets() []domain.Asset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.market.Assets()
}

// Prices returns the current price map.
func (s *Session) Prices() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.market.Prices()
}

// Quote returns the indicative bid/ask for a ticker.
func (s *Session) Quote(ticker string) (market.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.market.Quote(ticker)
	if !ok {
		return market.Quote{}, domain.ErrAssetNotFound
	}
	return q, nil
}

// HistoryFor returns a ticker's price history, oldest first.
func (s *Session) HistoryFor(ticker string) ([]domain.PricePoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	points, ok := s.market.HistoryFor(ticker)
	if !ok {
		return nil, domain.ErrAssetNotFound
	}
	return points, nil
}

// RecentNews returns up to n fired events, newest first.
func (s *Session) RecentNews(n int) []news.Fired {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.news.Recent(n)
}

// Reset restores the session to its initial state: market back to base
// prices with the original seed, an empty order engine, a fresh
// portfolio, and a rewound news stream. Replaying the same inputs
// reproduces the same game.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.market.Reset()
	s.orders = orders.NewEngine(s.cfg.Orders)
	s.portfolio = portfolio.NewManager(s.cfg.StartingCash)
	s.newsRNG.Reseed(newsSeed(s.cfg.Market.Seed))
	s.news = news.NewRegistry(s.news.Events(), s.cfg.NewsProbability)

	s.logger.Info("session reset", slog.String("session", s.id))
}
