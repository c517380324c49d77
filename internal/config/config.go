package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration for the paper trading server.
type Config struct {
	Port     int
	LogLevel string

	Seed                   int64
	StartingCash           float64
	MaxHistoryLength       int
	TransactionFee         float64
	SpreadPercent          float64
	DefaultExpirationTurns int
	NewsProbability        float64

	RandomWalkWeight float64
	MomentumWeight   float64
	NewsWeight       float64
	VolumeWeight     float64
	MomentumDecay    float64

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	seed, err := getInt64("SEED", 1)
	if err != nil {
		return nil, fmt.Errorf("invalid SEED: %w", err)
	}

	startingCash, err := getFloat("STARTING_CASH", 10000)
	if err != nil {
		return nil, fmt.Errorf("invalid STARTING_CASH: %w", err)
	}
	if startingCash <= 0 {
		return nil, fmt.Errorf("invalid STARTING_CASH: must be positive, got %v", startingCash)
	}

	maxHistory, err := getInt("MAX_HISTORY_LENGTH", 100)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_HISTORY_LENGTH: %w", err)
	}
	if maxHistory < 1 {
		return nil, fmt.Errorf("invalid MAX_HISTORY_LENGTH: must be at least 1, got %d", maxHistory)
	}

	fee, err := getFloat("TRANSACTION_FEE", 1.00)
	if err != nil {
		return nil, fmt.Errorf("invalid TRANSACTION_FEE: %w", err)
	}
	if fee < 0 {
		return nil, fmt.Errorf("invalid TRANSACTION_FEE: must not be negative, got %v", fee)
	}

	spread, err := getFloat("SPREAD_PERCENT", 0.01)
	if err != nil {
		return nil, fmt.Errorf("invalid SPREAD_PERCENT: %w", err)
	}
	if spread < 0 || spread >= 1 {
		return nil, fmt.Errorf("invalid SPREAD_PERCENT: must be in [0, 1), got %v", spread)
	}

	expiration, err := getInt("DEFAULT_EXPIRATION_TURNS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_EXPIRATION_TURNS: %w", err)
	}
	if expiration < 1 {
		return nil, fmt.Errorf("invalid DEFAULT_EXPIRATION_TURNS: must be at least 1, got %d", expiration)
	}

	newsProb, err := getFloat("NEWS_PROBABILITY", 0.15)
	if err != nil {
		return nil, fmt.Errorf("invalid NEWS_PROBABILITY: %w", err)
	}
	if newsProb < 0 || newsProb > 1 {
		return nil, fmt.Errorf("invalid NEWS_PROBABILITY: must be in [0, 1], got %v", newsProb)
	}

	randomWalkWeight, err := getFloat("RANDOM_WALK_WEIGHT", 1.0)
	if err != nil {
		return nil, fmt.Errorf("invalid RANDOM_WALK_WEIGHT: %w", err)
	}
	momentumWeight, err := getFloat("MOMENTUM_WEIGHT", 0.3)
	if err != nil {
		return nil, fmt.Errorf("invalid MOMENTUM_WEIGHT: %w", err)
	}
	newsWeight, err := getFloat("NEWS_WEIGHT", 1.0)
	if err != nil {
		return nil, fmt.Errorf("invalid NEWS_WEIGHT: %w", err)
	}
	volumeWeight, err := getFloat("VOLUME_WEIGHT", 0.2)
	if err != nil {
		return nil, fmt.Errorf("invalid VOLUME_WEIGHT: %w", err)
	}
	momentumDecay, err := getFloat("MOMENTUM_DECAY", 0.7)
	if err != nil {
		return nil, fmt.Errorf("invalid MOMENTUM_DECAY: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:                   port,
		LogLevel:               logLevel,
		Seed:                   seed,
		StartingCash:           startingCash,
		MaxHistoryLength:       maxHistory,
		TransactionFee:         fee,
		SpreadPercent:          spread,
		DefaultExpirationTurns: expiration,
		NewsProbability:        newsProb,
		RandomWalkWeight:       randomWalkWeight,
		MomentumWeight:         momentumWeight,
		NewsWeight:             newsWeight,
		VolumeWeight:           volumeWeight,
		MomentumDecay:          momentumDecay,
		ReadTimeout:            readTimeout,
		WriteTimeout:           writeTimeout,
		IdleTimeout:            idleTimeout,
		ShutdownTimeout:        shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
