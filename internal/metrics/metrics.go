// Package metrics provides Prometheus instrumentation for the
// simulation service.
package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TicksTotal counts simulation turns across all sessions.
	TicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "papertrader_ticks_total",
		Help: "Total simulation turns advanced",
	})

	// TickDuration tracks how long one market tick takes.
	TickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "papertrader_tick_duration_seconds",
		Help:    "Market tick computation time in seconds",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	// OrdersSubmitted counts submitted orders by type.
	OrdersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papertrader_orders_submitted_total",
		Help: "Total orders submitted",
	}, []string{"type"})

	// FillsTotal counts executed fills by side.
	FillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papertrader_fills_total",
		Help: "Total orders filled",
	}, []string{"side"})

	// ExpirationsTotal counts orders archived as expired.
	ExpirationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "papertrader_order_expirations_total",
		Help: "Total orders expired unfilled",
	})

	// CancellationsTotal counts cancelled orders.
	CancellationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "papertrader_order_cancellations_total",
		Help: "Total orders cancelled",
	})

	// EventsFired counts narrative events applied to the market.
	EventsFired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "papertrader_news_events_total",
		Help: "Total narrative events fired",
	})

	// SessionsActive tracks live game sessions.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "papertrader_sessions_active",
		Help: "Number of active game sessions",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "papertrader_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "papertrader_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and durations.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack passes through to the underlying writer so WebSocket upgrades
// work behind the metrics middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}
