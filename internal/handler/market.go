package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/grubstreet/papertrader/internal/domain"
	"github.com/grubstreet/papertrader/internal/news"
	"github.com/grubstreet/papertrader/internal/store"
)

// MarketHandler handles the market data endpoints of a session.
type MarketHandler struct {
	sessions *store.SessionStore
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(sessions *store.SessionStore) *MarketHandler {
	return &MarketHandler{sessions: sessions}
}

type assetResponse struct {
	Ticker      string  `json:"ticker"`
	Name        string  `json:"name"`
	Sector      string  `json:"sector"`
	RiskRating  int     `json:"risk_rating"`
	BasePrice   float64 `json:"base_price"`
	Volatility  float64 `json:"volatility"`
	Description string  `json:"description,omitempty"`
	Icon        string  `json:"icon,omitempty"`
	Price       float64 `json:"price"`
}

// Assets handles GET /sessions/{session_id}/assets.
func (h *MarketHandler) Assets(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		mapDomainError(w, err)
		return
	}

	prices := sess.Prices()
	assets := sess.Assets()
	out := make([]assetResponse, len(assets))
	for i, a := range assets {
		out[i] = assetResponse{
			Ticker:      a.Ticker,
			Name:        a.Name,
			Sector:      a.Sector,
			RiskRating:  a.RiskRating,
			BasePrice:   a.BasePrice,
			Volatility:  a.Volatility,
			Description: a.Description,
			Icon:        a.Icon,
			Price:       prices[a.Ticker],
		}
	}
	WriteJSON(w, http.StatusOK, out)
}

// Prices handles GET /sessions/{session_id}/prices.
func (h *MarketHandler) Prices(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		mapDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sess.Prices())
}

type pricePointResponse struct {
	Price         float64 `json:"price"`
	Turn          int     `json:"turn"`
	Timestamp     string  `json:"timestamp"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Trigger       string  `json:"trigger"`
	EventID       string  `json:"event_id,omitempty"`
}

// History handles GET /sessions/{session_id}/assets/{ticker}/history.
func (h *MarketHandler) History(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		mapDomainError(w, err)
		return
	}

	points, err := sess.HistoryFor(chi.URLParam(r, "ticker"))
	if err != nil {
		mapDomainError(w, err)
		return
	}
	out := make([]pricePointResponse, len(points))
	for i, p := range points {
		out[i] = pricePointResponse{
			Price:         p.Price,
			Turn:          p.Turn,
			Timestamp:     p.Timestamp.UTC().Format(time.RFC3339),
			Change:        p.Change,
			ChangePercent: p.ChangePercent,
			Trigger:       string(p.Trigger),
			EventID:       p.EventID,
		}
	}
	WriteJSON(w, http.StatusOK, out)
}

type quoteResponse struct {
	Ticker string  `json:"ticker"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
}

// Quote handles GET /sessions/{session_id}/assets/{ticker}/quote.
func (h *MarketHandler) Quote(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		mapDomainError(w, err)
		return
	}

	ticker := chi.URLParam(r, "ticker")
	q, err := sess.Quote(ticker)
	if err != nil {
		mapDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, quoteResponse{Ticker: ticker, Bid: q.Bid, Ask: q.Ask})
}

type newsItem struct {
	EventID  string  `json:"event_id"`
	Headline string  `json:"headline"`
	Ticker   string  `json:"ticker"`
	Impact   float64 `json:"impact"`
	Turn     int     `json:"turn"`
}

func buildNewsItems(fired []news.Fired) []newsItem {
	out := make([]newsItem, len(fired))
	for i, f := range fired {
		out[i] = newsItem{
			EventID:  f.Event.ID,
			Headline: f.Event.Headline,
			Ticker:   f.Event.Ticker,
			Impact:   f.Impact,
			Turn:     f.Turn,
		}
	}
	return out
}

type priceChange struct {
	Ticker        string  `json:"ticker"`
	Price         float64 `json:"price"`
	Previous      float64 `json:"previous"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Trigger       string  `json:"trigger"`
	EventID       string  `json:"event_id,omitempty"`
}

func buildPriceChanges(changes []domain.PriceChange) []priceChange {
	out := make([]priceChange, len(changes))
	for i, c := range changes {
		out[i] = priceChange{
			Ticker:        c.Ticker,
			Price:         c.Price,
			Previous:      c.Previous,
			Change:        c.Change,
			ChangePercent: c.ChangePercent,
			Trigger:       string(c.Trigger),
			EventID:       c.EventID,
		}
	}
	return out
}

// News handles GET /sessions/{session_id}/news. An optional ?limit=
// query bounds the number of items; the default is 20, newest first.
func (h *MarketHandler) News(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Get(chi.URLParam(r, "session_id"))
	if err != nil {
		mapDomainError(w, err)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a positive integer")
			return
		}
		limit = n
	}
	WriteJSON(w, http.StatusOK, buildNewsItems(sess.RecentNews(limit)))
}
