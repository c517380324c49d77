package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/grubstreet/papertrader/internal/config"
	"github.com/grubstreet/papertrader/internal/domain"
	"github.com/grubstreet/papertrader/internal/handler"
	"github.com/grubstreet/papertrader/internal/market"
	"github.com/grubstreet/papertrader/internal/orders"
	"github.com/grubstreet/papertrader/internal/service"
	"github.com/grubstreet/papertrader/internal/store"
)

// defaultAssets is the food-court roster sessions start with unless the
// create request supplies its own.
func defaultAssets() []domain.Asset {
	return []domain.Asset{
		{
			Ticker: "BURG", Name: "Burger Barn", Sector: "fast_food",
			RiskRating: 1, BasePrice: 25.00, Volatility: 0,
			Description: "Steady flat-top griddle operation, priced like a utility",
			Icon:        "🍔",
		},
		{
			Ticker: "PZZA", Name: "Pizza Planet", Sector: "fast_food",
			RiskRating: 2, BasePrice: 42.50, Volatility: 0.02,
			Description: "Regional slice chain with a loyal lunch crowd",
			Icon:        "🍕",
		},
		{
			Ticker: "TACO", Name: "Taco Tornado", Sector: "fast_food",
			RiskRating: 3, BasePrice: 18.75, Volatility: 0.04,
			Description: "Late-night taco trucks, big swings on weekends",
			Icon:        "🌮",
		},
		{
			Ticker: "KAFE", Name: "Kaffeine Co.", Sector: "beverages",
			RiskRating: 2, BasePrice: 64.00, Volatility: 0.025,
			Description: "Espresso bars and cold brew cans",
			Icon:        "☕",
		},
		{
			Ticker: "SODA", Name: "Fizzworks", Sector: "beverages",
			RiskRating: 1, BasePrice: 31.20, Volatility: 0.015,
			Description: "Craft sodas with boring, dependable margins",
			Icon:        "🥤",
		},
		{
			Ticker: "SUSH", Name: "Sushi Supreme", Sector: "fine_dining",
			RiskRating: 4, BasePrice: 120.00, Volatility: 0.05,
			Description: "Omakase counters, sensitive to fish prices",
			Icon:        "🍣",
		},
		{
			Ticker: "VEGN", Name: "Verdant Greens", Sector: "health_food",
			RiskRating: 3, BasePrice: 55.50, Volatility: 0.035,
			Description: "Salad bowls and oat milk everything",
			Icon:        "🥗",
		},
		{
			Ticker: "DONT", Name: "Donut Dynasty", Sector: "bakery",
			RiskRating: 4, BasePrice: 8.40, Volatility: 0.08,
			Description: "Viral glaze flavors, boom-and-bust by nature",
			Icon:        "🍩",
		},
	}
}

func main() {
	healthcheck := flag.Bool("healthcheck", false, "Run health check against running server")
	flag.Parse()

	// Handle -healthcheck flag: HTTP GET to localhost:PORT/healthz, exit 0/1.
	if *healthcheck {
		port := os.Getenv("PORT")
		if port == "" {
			port = "8080"
		}
		resp, err := http.Get(fmt.Sprintf("http://localhost:%s/healthz", port))
		if err != nil || resp.StatusCode != http.StatusOK {
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Session defaults assembled from the environment.
	defaults := service.SessionConfig{
		StartingCash: cfg.StartingCash,
		Market: market.Config{
			MaxHistoryLength: cfg.MaxHistoryLength,
			TransactionFee:   cfg.TransactionFee,
			SpreadPercent:    cfg.SpreadPercent,
			Seed:             cfg.Seed,
			Generator: market.GeneratorConfig{
				RandomWalkWeight: cfg.RandomWalkWeight,
				MomentumWeight:   cfg.MomentumWeight,
				NewsWeight:       cfg.NewsWeight,
				VolumeWeight:     cfg.VolumeWeight,
				MomentumDecay:    cfg.MomentumDecay,
			},
		},
		Orders: orders.Config{
			DefaultExpirationTurns: cfg.DefaultExpirationTurns,
		},
		NewsProbability: cfg.NewsProbability,
	}

	sessions := store.NewSessionStore()
	router := handler.NewRouter(sessions, defaults, defaultAssets(), logger)

	// Configure HTTP server.
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Start HTTP server in a goroutine.
	go func() {
		logger.Info("server starting", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Wait for SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
