package strategy

import (
	"fmt"

	"quantpaper/internal/market"
)

type maMemory struct {
	prevDiff float64
	seen     bool
}

// MACrossover signals on the tick where the short MA crosses the long MA.
// The MA windows themselves live in the indicator engine; this type only
// remembers the previous tick's spread per symbol.
type MACrossover struct {
	memory map[string]*maMemory
}

// NewMACrossover builds a crossover strategy with empty per-symbol memory.
func NewMACrossover() *MACrossover {
	return &MACrossover{memory: make(map[string]*maMemory)}
}

// Name returns the configured identifier for logging.
func (s *MACrossover) Name() string { return "MACrossover" }

// OnTick compares the current short/long spread against the previous tick's.
// A sign change upward is a BUY, downward a SELL; everything else holds.
func (s *MACrossover) OnTick(tick market.Tick, ind market.Indicators) market.Signal {
	if ind.MAShort == nil || ind.MALong == nil {
		return hold(tick, "not_enough_data")
	}

	diff := *ind.MAShort - *ind.MALong
	mem := s.memory[tick.Symbol]
	if mem == nil {
		mem = &maMemory{}
		s.memory[tick.Symbol] = mem
	}

	sig := hold(tick, "no_cross")
	if mem.seen {
		switch {
		case mem.prevDiff <= 0 && diff > 0:
			sig.Kind = market.Buy
			sig.Reason = fmt.Sprintf("ma_cross_up short=%.4f long=%.4f", *ind.MAShort, *ind.MALong)
		case mem.prevDiff >= 0 && diff < 0:
			sig.Kind = market.Sell
			sig.Reason = fmt.Sprintf("ma_cross_down short=%.4f long=%.4f", *ind.MAShort, *ind.MALong)
		}
	}
	mem.prevDiff = diff
	mem.seen = true
	return sig
}
