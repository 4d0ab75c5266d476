package hub

import (
	"sync"
	"time"

	"quantpaper/internal/market"
)

// SymbolSnapshot is the latest composite state for one symbol.
type SymbolSnapshot struct {
	Tick       *market.Tick       `json:"tick"`
	Indicators *market.Indicators `json:"indicators"`
	Signal     *market.Signal     `json:"signal"`
}

// Health mirrors the per-symbol provider bookkeeping for the pull surface.
type Health struct {
	LastOkTs  map[string]*time.Time `json:"last_ok_ts"`
	LastError map[string]*string    `json:"last_error"`
	TickCount map[string]int64      `json:"tick_count"`
}

// Snapshot is the pollable latest-known state: every subscribed symbol plus
// the account, served to late joiners and polling consumers.
type Snapshot struct {
	Ts             time.Time                  `json:"ts"`
	Symbols        []string                   `json:"symbols"`
	Cash           float64                    `json:"cash"`
	Equity         float64                    `json:"equity"`
	Positions      []market.Position          `json:"positions"`
	LastOrder      *market.Order              `json:"last_order"`
	ProviderHealth Health                     `json:"provider_health"`
	Last           map[string]*SymbolSnapshot `json:"last"`
}

// store keeps the process-wide latest state, overwritten on every event.
type store struct {
	mu        sync.Mutex
	symbols   []string
	last      map[string]*SymbolSnapshot
	account   market.AccountView
	lastOk    map[string]*time.Time
	lastErr   map[string]*string
	tickCount map[string]int64
}

func newStore(symbols []string) *store {
	s := &store{
		symbols:   append([]string(nil), symbols...),
		last:      make(map[string]*SymbolSnapshot, len(symbols)),
		lastOk:    make(map[string]*time.Time, len(symbols)),
		lastErr:   make(map[string]*string, len(symbols)),
		tickCount: make(map[string]int64, len(symbols)),
	}
	for _, sym := range symbols {
		s.lastOk[sym] = nil
		s.lastErr[sym] = nil
		s.tickCount[sym] = 0
	}
	return s
}

func (s *store) applyEvent(ev market.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tick, ind, sig := ev.Tick, ev.Indicators, ev.Signal
	s.last[tick.Symbol] = &SymbolSnapshot{Tick: &tick, Indicators: &ind, Signal: &sig}
	s.account = ev.Account
	ts := tick.Ts
	s.lastOk[tick.Symbol] = &ts
	s.lastErr[tick.Symbol] = nil
	s.tickCount[tick.Symbol]++
}

func (s *store) applyError(ev market.ErrorEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := ev.Err
	s.lastErr[ev.Symbol] = &msg
}

// seed records the initial account state so a consumer connecting before the
// first tick still sees starting cash.
func (s *store) seed(account market.AccountView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.account = account
}

func (s *store) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	last := make(map[string]*SymbolSnapshot, len(s.symbols))
	for _, sym := range s.symbols {
		last[sym] = s.last[sym]
	}
	health := Health{
		LastOkTs:  make(map[string]*time.Time, len(s.symbols)),
		LastError: make(map[string]*string, len(s.symbols)),
		TickCount: make(map[string]int64, len(s.symbols)),
	}
	for _, sym := range s.symbols {
		health.LastOkTs[sym] = s.lastOk[sym]
		health.LastError[sym] = s.lastErr[sym]
		health.TickCount[sym] = s.tickCount[sym]
	}
	return Snapshot{
		Ts:             time.Now().UTC(),
		Symbols:        append([]string(nil), s.symbols...),
		Cash:           s.account.Cash,
		Equity:         s.account.Equity,
		Positions:      append([]market.Position(nil), s.account.Positions...),
		LastOrder:      s.account.LastOrder,
		ProviderHealth: health,
		Last:           last,
	}
}

func (s *store) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = make(map[string]*SymbolSnapshot, len(s.symbols))
	s.account = market.AccountView{}
	for _, sym := range s.symbols {
		s.lastOk[sym] = nil
		s.lastErr[sym] = nil
		s.tickCount[sym] = 0
	}
}
