package handler

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/grubstreet/papertrader/internal/domain"
	"github.com/grubstreet/papertrader/internal/metrics"
	"github.com/grubstreet/papertrader/internal/service"
	"github.com/grubstreet/papertrader/internal/store"
)

// NewRouter creates a chi router with all game routes registered,
// request logging, and Prometheus instrumentation.
func NewRouter(
	sessions *store.SessionStore,
	defaults service.SessionConfig,
	defaultAssets []domain.Asset,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogging(logger))
	r.Use(metrics.Middleware)

	sessionH := NewSessionHandler(sessions, defaults, defaultAssets, logger)
	orderH := NewOrderHandler(sessions)
	marketH := NewMarketHandler(sessions)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Session lifecycle.
	r.Post("/sessions", sessionH.Create)
	r.Get("/sessions/{session_id}", sessionH.Get)
	r.Delete("/sessions/{session_id}", sessionH.Delete)
	r.Post("/sessions/{session_id}/turns", sessionH.AdvanceTurn)
	r.Post("/sessions/{session_id}/reset", sessionH.Reset)
	r.Get("/sessions/{session_id}/portfolio", sessionH.Portfolio)
	r.Post("/sessions/{session_id}/dividends", sessionH.ApplyDividend)
	r.Get("/sessions/{session_id}/stream", sessionH.Stream)

	// Orders.
	r.Post("/sessions/{session_id}/orders", orderH.Submit)
	r.Post("/sessions/{session_id}/orders/validate", orderH.Validate)
	r.Get("/sessions/{session_id}/orders", orderH.List)
	r.Get("/sessions/{session_id}/orders/{order_id}", orderH.Get)
	r.Delete("/sessions/{session_id}/orders/{order_id}", orderH.Cancel)

	// Market data.
	r.Get("/sessions/{session_id}/assets", marketH.Assets)
	r.Get("/sessions/{session_id}/prices", marketH.Prices)
	r.Get("/sessions/{session_id}/assets/{ticker}/history", marketH.History)
	r.Get("/sessions/{session_id}/assets/{ticker}/quote", marketH.Quote)
	r.Get("/sessions/{session_id}/news", marketH.News)

	return r
}

// requestLogging logs each request's method, path, status, and duration.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// Hijack passes through to the underlying writer so the WebSocket
// upgrade on the stream route works behind the logging middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}
