// Package provider hosts the tick sources the pipeline can run against.
// A provider produces one tick per call; the engine owns the interval loop,
// so cancellation never leaks timers here.
package provider

import (
	"context"
	"fmt"

	"quantpaper/internal/config"
	"quantpaper/internal/market"
)

// Provider produces the next tick for a symbol or an error for that call.
// Implementations must be safe for concurrent use across symbol pipelines.
type Provider interface {
	Fetch(ctx context.Context, symbol string) (market.Tick, error)
	Close() error
}

// New builds the provider selected by validated configuration. The variant
// is chosen exactly once; no runtime type inspection afterwards.
func New(cfg config.Provider) (Provider, error) {
	switch cfg.Type {
	case config.ProviderSimulated:
		return NewSimulated(cfg.Simulated), nil
	case config.ProviderEastmoney:
		return NewEastmoney(cfg.Eastmoney)
	default:
		return nil, fmt.Errorf("unsupported provider type %q", cfg.Type)
	}
}
