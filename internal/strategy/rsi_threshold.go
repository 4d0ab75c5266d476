package strategy

import (
	"fmt"

	"quantpaper/internal/market"
)

type rsiMemory struct {
	prevRSI float64
	seen    bool
}

// RSIThreshold treats a downward cross below the oversold line as a
// reversal-buy trigger and an upward cross above the overbought line as a
// sell trigger. Staying inside either zone does not re-signal.
type RSIThreshold struct {
	oversold   float64
	overbought float64
	memory     map[string]*rsiMemory
}

// NewRSIThreshold builds the strategy for the given thresholds.
func NewRSIThreshold(oversold, overbought float64) *RSIThreshold {
	return &RSIThreshold{
		oversold:   oversold,
		overbought: overbought,
		memory:     make(map[string]*rsiMemory),
	}
}

// Name returns the configured identifier for logging.
func (s *RSIThreshold) Name() string { return "RSIThreshold" }

// OnTick fires only when RSI crosses a threshold relative to the previous
// tick's value.
func (s *RSIThreshold) OnTick(tick market.Tick, ind market.Indicators) market.Signal {
	if ind.RSI == nil {
		return hold(tick, "not_enough_data")
	}

	rsi := *ind.RSI
	mem := s.memory[tick.Symbol]
	if mem == nil {
		mem = &rsiMemory{}
		s.memory[tick.Symbol] = mem
	}

	sig := hold(tick, "no_cross")
	if mem.seen {
		switch {
		case mem.prevRSI >= s.oversold && rsi < s.oversold:
			sig.Kind = market.Buy
			sig.Reason = fmt.Sprintf("rsi_oversold_cross rsi=%.2f threshold=%.1f", rsi, s.oversold)
		case mem.prevRSI <= s.overbought && rsi > s.overbought:
			sig.Kind = market.Sell
			sig.Reason = fmt.Sprintf("rsi_overbought_cross rsi=%.2f threshold=%.1f", rsi, s.overbought)
		}
	}
	mem.prevRSI = rsi
	mem.seen = true
	return sig
}
