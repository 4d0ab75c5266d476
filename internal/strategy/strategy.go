// Package strategy turns ticks plus indicator state into edge-triggered
// trading signals. A BUY or SELL fires only on the tick where its condition
// becomes true; sustained conditions keep emitting HOLD.
package strategy

import (
	"strings"

	"quantpaper/internal/market"
)

// Strategy defines behaviour shared by strategy implementations.
type Strategy interface {
	OnTick(tick market.Tick, ind market.Indicators) market.Signal
	Name() string
}

// Params expresses tunable knobs required by strategy constructors.
type Params struct {
	ShortPeriod int
	LongPeriod  int
	RSIPeriod   int
	Oversold    float64
	Overbought  float64
}

// Build returns a strategy implementation matching the configured mode.
func Build(mode string, params Params) Strategy {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "rsi", "rsi_threshold":
		return NewRSIThreshold(params.Oversold, params.Overbought)
	default:
		return NewMACrossover()
	}
}

func hold(tick market.Tick, reason string) market.Signal {
	return market.Signal{Symbol: tick.Symbol, Kind: market.Hold, Reason: reason, Ts: tick.Ts}
}
