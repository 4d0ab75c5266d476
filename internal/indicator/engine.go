// Package indicator maintains rolling per-symbol indicator state: short and
// long simple moving averages plus Wilder's RSI. Values are nil until their
// window is full so downstream code can tell "no data yet" from zero.
package indicator

import "quantpaper/internal/market"

// rsiState carries the incremental Wilder smoothing inputs for one symbol.
type rsiState struct {
	prev    float64
	seen    bool
	avgGain float64
	avgLoss float64
	deltas  int
}

type symbolState struct {
	prices []float64 // ring-ish: oldest evicted once capacity is reached
	rsi    rsiState
}

// Engine recomputes indicators on every tick. It is not safe for concurrent
// use; each symbol pipeline feeds it sequentially and the engine keys state
// by symbol internally.
type Engine struct {
	shortPeriod int
	longPeriod  int
	rsiPeriod   int
	capacity    int
	state       map[string]*symbolState
}

// New builds an engine for the given windows. History capacity is
// max(longPeriod, rsiPeriod)+1 so both indicators always have enough samples.
func New(shortPeriod, longPeriod, rsiPeriod int) *Engine {
	capacity := longPeriod
	if rsiPeriod > capacity {
		capacity = rsiPeriod
	}
	return &Engine{
		shortPeriod: shortPeriod,
		longPeriod:  longPeriod,
		rsiPeriod:   rsiPeriod,
		capacity:    capacity + 1,
		state:       make(map[string]*symbolState),
	}
}

// Update pushes a price into the symbol's history and returns the recomputed
// indicator set. Cost per tick is O(window) for the MAs and O(1) for RSI.
func (e *Engine) Update(symbol string, price float64) market.Indicators {
	st := e.state[symbol]
	if st == nil {
		st = &symbolState{prices: make([]float64, 0, e.capacity)}
		e.state[symbol] = st
	}

	if len(st.prices) == e.capacity {
		copy(st.prices, st.prices[1:])
		st.prices = st.prices[:e.capacity-1]
	}
	st.prices = append(st.prices, price)

	return market.Indicators{
		MAShort: sma(st.prices, e.shortPeriod),
		MALong:  sma(st.prices, e.longPeriod),
		RSI:     st.rsi.update(price, e.rsiPeriod),
	}
}

// Forget drops all state held for a symbol.
func (e *Engine) Forget(symbol string) {
	delete(e.state, symbol)
}

func sma(prices []float64, window int) *float64 {
	if window <= 0 || len(prices) < window {
		return nil
	}
	var sum float64
	for _, p := range prices[len(prices)-window:] {
		sum += p
	}
	mean := sum / float64(window)
	return &mean
}

// update applies one price delta. The first `period` deltas seed the
// averages with a simple mean, after which Wilder smoothing takes over:
// avg = (avg*(period-1) + x) / period.
func (s *rsiState) update(price float64, period int) *float64 {
	if !s.seen {
		s.prev = price
		s.seen = true
		return nil
	}

	change := price - s.prev
	s.prev = price
	gain, loss := 0.0, 0.0
	if change > 0 {
		gain = change
	} else {
		loss = -change
	}

	if s.deltas < period {
		s.avgGain += gain
		s.avgLoss += loss
		s.deltas++
		if s.deltas < period {
			return nil
		}
		s.avgGain /= float64(period)
		s.avgLoss /= float64(period)
	} else {
		s.avgGain = (s.avgGain*float64(period-1) + gain) / float64(period)
		s.avgLoss = (s.avgLoss*float64(period-1) + loss) / float64(period)
	}

	var rsi float64
	if s.avgLoss == 0 {
		rsi = 100
	} else {
		rsi = 100 - 100/(1+s.avgGain/s.avgLoss)
	}
	return &rsi
}
