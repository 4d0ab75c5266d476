package hub

import (
	"sync/atomic"
	"time"

	"quantpaper/internal/metrics"
)

// SessionState models the connection lifecycle. Closed is terminal; a
// reconnecting client gets a brand new session with an empty queue.
type SessionState int32

const (
	StateConnecting SessionState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "closed"
	}
}

// Session is one connected consumer: an id, a bounded outbound queue, and a
// keepalive timestamp. Owned exclusively by the Hub.
type Session struct {
	id       uint64
	out      chan []byte
	state    atomic.Int32
	lastSeen atomic.Int64
}

func newSession(id uint64, queueSize int) *Session {
	s := &Session{id: id, out: make(chan []byte, queueSize)}
	s.state.Store(int32(StateConnecting))
	s.Touch()
	return s
}

// ID returns the hub-assigned session identifier.
func (s *Session) ID() uint64 { return s.id }

// Out is the outbound queue the transport layer drains.
func (s *Session) Out() <-chan []byte { return s.out }

// State reports the current lifecycle state.
func (s *Session) State() SessionState { return SessionState(s.state.Load()) }

// Touch refreshes the keepalive timestamp.
func (s *Session) Touch() { s.lastSeen.Store(time.Now().UnixNano()) }

func (s *Session) sinceSeen() time.Duration {
	return time.Since(time.Unix(0, s.lastSeen.Load()))
}

// enqueue is non-blocking: when the queue is full the oldest message is
// dropped so the most recent state wins and the producer never stalls.
func (s *Session) enqueue(msg []byte) {
	select {
	case s.out <- msg:
		return
	default:
	}
	select {
	case <-s.out:
		metrics.BroadcastDroppedTotal.Inc()
	default:
	}
	select {
	case s.out <- msg:
	default:
		metrics.BroadcastDroppedTotal.Inc()
	}
}
