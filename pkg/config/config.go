// Package config carries the engine's tunable knobs: order book depth
// snapshot size, router hop/time budget, oracle ring sizing, and StableSwap
// amplification bounds. Resolution order is ENV > .env file > built-in
// defaults, with the .env file loaded through godotenv.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/driftline-labs/dexcore/pkg/amm/stableswap"
)

// OrderBook bounds what a depth query returns by default.
type OrderBook struct {
	DefaultDepth int
}

// Router bounds path search.
type Router struct {
	MaxHops int
	Budget  time.Duration
}

// Oracle bounds observation retention and the default TWAP horizon.
type Oracle struct {
	RingCapacity   int
	DefaultHorizon time.Duration
}

// StableSwapBounds carries an amplification range, defaulting to
// stableswap.MinAmplification/MaxAmplification. Nothing in this module
// applies it: stableswap.New checks only its own package constants, and
// LoadFromEnv accepts any values, including a range wider than those
// constants.
type StableSwapBounds struct {
	MinAmplification uint64
	MaxAmplification uint64
}

type Config struct {
	OrderBook  OrderBook
	Router     Router
	Oracle     Oracle
	StableSwap StableSwapBounds
}

func Default() Config {
	return Config{
		OrderBook: OrderBook{
			DefaultDepth: 20,
		},
		Router: Router{
			MaxHops: 4,
			Budget:  50 * time.Millisecond,
		},
		Oracle: Oracle{
			RingCapacity:   64,
			DefaultHorizon: 30 * time.Minute,
		},
		StableSwap: StableSwapBounds{
			MinAmplification: stableswap.MinAmplification,
			MaxAmplification: stableswap.MaxAmplification,
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if present) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if v := os.Getenv("ORDERBOOK_DEFAULT_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.OrderBook.DefaultDepth = n
		}
	}
	if v := os.Getenv("ROUTER_MAX_HOPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Router.MaxHops = n
		}
	}
	if v := os.Getenv("ROUTER_BUDGET_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Router.Budget = time.Duration(ms) * time.Millisecond
		}
	}
	if v := os.Getenv("ORACLE_RING_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Oracle.RingCapacity = n
		}
	}
	if v := os.Getenv("ORACLE_DEFAULT_HORIZON_S"); v != "" {
		if s, err := strconv.Atoi(v); err == nil {
			cfg.Oracle.DefaultHorizon = time.Duration(s) * time.Second
		}
	}
	if v := os.Getenv("STABLESWAP_MIN_A"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.StableSwap.MinAmplification = n
		}
	}
	if v := os.Getenv("STABLESWAP_MAX_A"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.StableSwap.MaxAmplification = n
		}
	}

	return cfg
}
