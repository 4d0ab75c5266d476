package provider

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"quantpaper/internal/config"
	"quantpaper/internal/market"
)

// Simulated is a seeded geometric random walk. No I/O, deterministic per
// seed, useful for offline demos and tests.
type Simulated struct {
	cfg config.Simulated

	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]float64
}

// NewSimulated builds the walk from validated configuration.
func NewSimulated(cfg config.Simulated) *Simulated {
	return &Simulated{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		prices: make(map[string]float64),
	}
}

// Fetch advances the symbol's walk one step: price *= exp(N(drift, vol)).
func (s *Simulated) Fetch(ctx context.Context, symbol string) (market.Tick, error) {
	if err := ctx.Err(); err != nil {
		return market.Tick{}, err
	}

	s.mu.Lock()
	price, ok := s.prices[symbol]
	if !ok {
		price = s.cfg.StartPrice
	}
	r := s.rng.NormFloat64()*s.cfg.Volatility + s.cfg.Drift
	price = math.Max(0.01, price*math.Exp(r))
	s.prices[symbol] = price
	s.mu.Unlock()

	return market.Tick{Symbol: symbol, Price: price, Ts: time.Now().UTC()}, nil
}

// Close is a no-op; the walk holds no resources.
func (s *Simulated) Close() error { return nil }
