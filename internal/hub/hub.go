// Package hub fans composite pipeline events out to connected consumers and
// maintains the pollable snapshot of the latest known state. Delivery is
// decoupled from tick production through per-session bounded queues so one
// slow consumer cannot delay anyone else.
package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"quantpaper/internal/market"
	"quantpaper/internal/metrics"
)

// TickMsg is the wire form of a processed tick.
type TickMsg struct {
	Type       string             `json:"type"`
	Ts         time.Time          `json:"ts"`
	Symbol     string             `json:"symbol"`
	Price      float64            `json:"price"`
	Indicators market.Indicators  `json:"indicators"`
	Signal     market.SignalKind  `json:"signal"`
	SignalMeta SignalMeta         `json:"signal_meta"`
	Broker     market.AccountView `json:"broker"`
}

// SignalMeta carries the human/machine reason behind the signal.
type SignalMeta struct {
	Reason string `json:"reason"`
}

// ErrorMsg is the wire form of a provider failure.
type ErrorMsg struct {
	Type   string    `json:"type"`
	Ts     time.Time `json:"ts"`
	Symbol string    `json:"symbol"`
	Error  string    `json:"error"`
}

// SnapshotMsg wraps the full state sent once on connect.
type SnapshotMsg struct {
	Type string   `json:"type"`
	Data Snapshot `json:"data"`
}

// Hub owns the session registry and the snapshot store.
type Hub struct {
	log       zerolog.Logger
	queueSize int
	timeout   time.Duration

	mu       sync.Mutex
	sessions map[uint64]*Session
	nextID   uint64

	store *store
}

// New builds a hub for the given symbol set. queueSize bounds each session's
// outbound queue; sessions silent longer than keepalive are reaped.
func New(symbols []string, queueSize int, keepalive time.Duration, log zerolog.Logger) *Hub {
	return &Hub{
		log:       log,
		queueSize: queueSize,
		timeout:   keepalive,
		sessions:  make(map[uint64]*Session),
		store:     newStore(symbols),
	}
}

// Seed records the initial account view so pre-first-tick snapshots carry
// starting cash.
func (h *Hub) Seed(account market.AccountView) {
	h.store.seed(account)
}

// Register creates a session and enqueues the snapshot message before any
// live event can be interleaved, so a new consumer always sees snapshot
// first.
func (h *Hub) Register() *Session {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	s := newSession(h.nextID, h.queueSize)
	snap, err := json.Marshal(SnapshotMsg{Type: "snapshot", Data: h.store.snapshot()})
	if err == nil {
		s.enqueue(snap)
	} else {
		h.log.Error().Err(err).Msg("marshal snapshot")
	}
	s.state.Store(int32(StateOpen))
	h.sessions[s.id] = s

	metrics.WSSessions.Inc()
	h.log.Debug().Uint64("session", s.id).Int("sessions", len(h.sessions)).Msg("session registered")
	return s
}

// Unregister tears a session down and releases its queue. Safe to call more
// than once.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(s)
}

// drop must run under h.mu.
func (h *Hub) drop(s *Session) {
	if _, ok := h.sessions[s.id]; !ok {
		return
	}
	s.state.Store(int32(StateClosing))
	delete(h.sessions, s.id)
	close(s.out)
	s.state.Store(int32(StateClosed))
	metrics.WSSessions.Dec()
	h.log.Debug().Uint64("session", s.id).Int("sessions", len(h.sessions)).Msg("session dropped")
}

// Count reports connected sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Publish overwrites the snapshot store and enqueues the tick message on
// every session without ever blocking.
func (h *Hub) Publish(ev market.Event) {
	h.store.applyEvent(ev)

	msg, err := json.Marshal(TickMsg{
		Type:       "tick",
		Ts:         ev.Tick.Ts,
		Symbol:     ev.Tick.Symbol,
		Price:      ev.Tick.Price,
		Indicators: ev.Indicators,
		Signal:     ev.Signal.Kind,
		SignalMeta: SignalMeta{Reason: ev.Signal.Reason},
		Broker:     ev.Account,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("marshal tick message")
		return
	}
	h.broadcast(msg)
}

// PublishError records and fans out a provider failure for one symbol.
func (h *Hub) PublishError(ev market.ErrorEvent) {
	h.store.applyError(ev)

	msg, err := json.Marshal(ErrorMsg{Type: "error", Ts: ev.Ts, Symbol: ev.Symbol, Error: ev.Err})
	if err != nil {
		h.log.Error().Err(err).Msg("marshal error message")
		return
	}
	h.broadcast(msg)
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sessions {
		s.enqueue(msg)
	}
}

// Snapshot is the pull accessor for consumers that cannot hold a live
// connection.
func (h *Hub) Snapshot() Snapshot {
	return h.store.snapshot()
}

// Run reaps sessions whose keepalive lapsed until the context ends.
func (h *Hub) Run(ctx context.Context) {
	interval := h.timeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.reapStale()
		}
	}
}

func (h *Hub) reapStale() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sessions {
		if s.sinceSeen() > h.timeout {
			h.log.Info().Uint64("session", s.id).Msg("dropping session after keepalive timeout")
			h.drop(s)
		}
	}
}

// Shutdown drops every session and clears the snapshot store.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	for _, s := range h.sessions {
		h.drop(s)
	}
	h.mu.Unlock()
	h.store.clear()
}
