package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/grubstreet/papertrader/internal/domain"
	"github.com/grubstreet/papertrader/internal/metrics"
	"github.com/grubstreet/papertrader/internal/service"
	"github.com/grubstreet/papertrader/internal/store"
)

// SessionHandler handles session lifecycle and portfolio endpoints.
type SessionHandler struct {
	sessions      *store.SessionStore
	defaults      service.SessionConfig
	defaultAssets []domain.Asset
	logger        *slog.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(
	sessions *store.SessionStore,
	defaults service.SessionConfig,
	defaultAssets []domain.Asset,
	logger *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessions:      sessions,
		defaults:      defaults,
		defaultAssets: defaultAssets,
		logger:        logger,
	}
}

// assetRequest mirrors the asset registry input of the game setup.
type assetRequest struct {
	Ticker      string  `json:"ticker"`
	Name        string  `json:"name"`
	Sector      string  `json:"sector"`
	RiskRating  int     `json:"risk_rating"`
	BasePrice   float64 `json:"base_price"`
	Volatility  float64 `json:"volatility"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

// createSessionRequest is the JSON body for POST /sessions. Every field
// is optional; omitted fields fall back to the server defaults.
type createSessionRequest struct {
	Assets          []assetRequest `json:"assets"`
	Seed            *int64         `json:"seed"`
	StartingCash    *float64       `json:"starting_cash"`
	NewsProbability *float64       `json:"news_probability"`
}

type sessionResponse struct {
	SessionID    string  `json:"session_id"`
	Turn         int     `json:"turn"`
	Cash         float64 `json:"cash"`
	TotalValue   float64 `json:"total_value"`
	PendingCount int     `json:"pending_orders"`
	CreatedAt    string  `json:"created_at"`
}

func buildSessionResponse(s *service.Session) sessionResponse {
	summary := s.PortfolioSummary()
	return sessionResponse{
		SessionID:    s.ID(),
		Turn:         s.Turn(),
		Cash:         summary.State.Cash,
		TotalValue:   summary.TotalValue,
		PendingCount: len(s.PendingOrders()),
		CreatedAt:    s.CreatedAt().UTC().Format(time.RFC3339),
	}
}

// Create handles POST /sessions.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	cfg := h.defaults
	assets := h.defaultAssets

	if r.ContentLength > 0 {
		var req createSessionRequest
		if err := ParseJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if len(req.Assets) > 0 {
			assets = make([]domain.Asset, len(req.Assets))
			for i, a := range req.Assets {
				assets[i] = domain.Asset{
					Ticker:      a.Ticker,
					Name:        a.Name,
					Sector:      a.Sector,
					RiskRating:  a.RiskRating,
					BasePrice:   a.BasePrice,
					Volatility:  a.Volatility,
					Description: a.Description,
					Icon:        a.Icon,
				}
			}
		}
		if req.Seed != nil {
			cfg.Market.Seed = *req.Seed
		}
		if req.StartingCash != nil {
			cfg.StartingCash = *req.StartingCash
		}
		if req.NewsProbability != nil {
			cfg.NewsProbability = *req.NewsProbability
		}
	}

	sess, err := service.NewSession(assets, cfg, h.logger)
	if err != nil {
		mapDomainError(w, err)
		return
	}
	h.sessions.Put(sess)
	metrics.SessionsActive.Set(float64(h.sessions.Count()))

	WriteJSON(w, http.StatusCreated, buildSessionResponse(sess))
}

// Get handles GET /sessions/{session_id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		mapDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildSessionResponse(sess))
}

// Delete handles DELETE /sessions/{session_id}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Delete(chi.URLParam(r, "session_id")); err != nil {
		mapDomainError(w, err)
		return
	}
	metrics.SessionsActive.Set(float64(h.sessions.Count()))
	w.WriteHeader(http.StatusNoContent)
}

// advanceTurnRequest is the optional JSON body for POST .../turns.
type advanceTurnRequest struct {
	Turns int `json:"turns"`
}

type turnSummaryResponse struct {
	Turn       int             `json:"turn"`
	Changes    []priceChange   `json:"changes"`
	News       []newsItem      `json:"news"`
	Fills      []orderResponse `json:"fills"`
	Expired    []orderResponse `json:"expired"`
	Pending    int             `json:"pending_orders"`
	Cash       float64         `json:"cash"`
	TotalValue float64         `json:"total_value"`
}

// AdvanceTurn handles POST /sessions/{session_id}/turns. An optional
// body requests several turns at once; the last turn's summary is
// returned.
func (h *SessionHandler) AdvanceTurn(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		mapDomainError(w, err)
		return
	}

	turns := 1
	if r.ContentLength > 0 {
		var req advanceTurnRequest
		if err := ParseJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		if req.Turns < 1 || req.Turns > 1000 {
			WriteError(w, http.StatusBadRequest, "validation_error", "turns must be between 1 and 1000")
			return
		}
		turns = req.Turns
	}

	var summary service.TurnSummary
	for i := 0; i < turns; i++ {
		summary = sess.AdvanceTurn()
	}

	resp := turnSummaryResponse{
		Turn:       summary.Turn,
		Changes:    buildPriceChanges(summary.Tick.Changes),
		News:       buildNewsItems(summary.News),
		Fills:      buildOrderResponses(summary.Orders.Fills),
		Expired:    buildOrderResponses(summary.Orders.Expired),
		Pending:    len(summary.Orders.Pending),
		Cash:       summary.Portfolio.Cash,
		TotalValue: summary.TotalValue,
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Reset handles POST /sessions/{session_id}/reset.
func (h *SessionHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		mapDomainError(w, err)
		return
	}
	sess.Reset()
	WriteJSON(w, http.StatusOK, buildSessionResponse(sess))
}

type holdingResponse struct {
	Ticker        string  `json:"ticker"`
	Shares        int64   `json:"shares"`
	AvgCost       float64 `json:"avg_cost"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	PercentChange float64 `json:"percent_change"`
}

type portfolioResponse struct {
	Cash           float64            `json:"cash"`
	TotalValue     float64            `json:"total_value"`
	RealizedPnL    float64            `json:"realized_pnl"`
	UnrealizedPnL  float64            `json:"unrealized_pnl"`
	TotalFees      float64            `json:"total_fees"`
	TotalDividends float64            `json:"total_dividends"`
	TradeCount     int                `json:"trade_count"`
	Holdings       []holdingResponse  `json:"holdings"`
	SectorExposure map[string]float64 `json:"sector_exposure"`
}

// Portfolio handles GET /sessions/{session_id}/portfolio.
func (h *SessionHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		mapDomainError(w, err)
		return
	}

	summary := sess.PortfolioSummary()
	holdings := make([]holdingResponse, len(summary.Holdings))
	for i, hd := range summary.Holdings {
		holdings[i] = holdingResponse{
			Ticker:        hd.Ticker,
			Shares:        hd.Shares,
			AvgCost:       hd.AvgCost,
			MarketValue:   hd.MarketValue,
			UnrealizedPnL: hd.UnrealizedPnL,
			PercentChange: hd.PercentChange,
		}
	}
	WriteJSON(w, http.StatusOK, portfolioResponse{
		Cash:           summary.State.Cash,
		TotalValue:     summary.TotalValue,
		RealizedPnL:    summary.State.RealizedPnL,
		UnrealizedPnL:  summary.UnrealizedPnL,
		TotalFees:      summary.State.TotalFees,
		TotalDividends: summary.State.TotalDividends,
		TradeCount:     summary.State.TradeCount,
		Holdings:       holdings,
		SectorExposure: summary.SectorExposure,
	})
}

// dividendRequest is the JSON body for POST .../dividends.
type dividendRequest struct {
	Ticker   string  `json:"ticker"`
	PerShare float64 `json:"per_share"`
}

// ApplyDividend handles POST /sessions/{session_id}/dividends.
func (h *SessionHandler) ApplyDividend(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		mapDomainError(w, err)
		return
	}

	var req dividendRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	amount, err := sess.ApplyDividend(req.Ticker, req.PerShare)
	if err != nil {
		mapDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]float64{"credited": amount})
}

// Stream handles GET /sessions/{session_id}/stream, upgrading to a
// WebSocket fed by the session's price-change hub.
func (h *SessionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		mapDomainError(w, err)
		return
	}
	sess.Hub().HandleWS(w, r)
}
