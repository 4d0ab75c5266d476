package broker

import (
	"sync"

	"quantpaper/internal/market"
)

// Ledger stores orders in memory for quick inspection.
type Ledger struct {
	mu     sync.Mutex
	orders []market.Order
}

// NewLedger creates an empty ledger optionally pre-sizing storage.
func NewLedger(capacity int) *Ledger {
	if capacity < 0 {
		capacity = 0
	}
	return &Ledger{orders: make([]market.Order, 0, capacity)}
}

// Record appends an order to the ledger.
func (l *Ledger) Record(order market.Order) {
	l.mu.Lock()
	l.orders = append(l.orders, order)
	l.mu.Unlock()
}

// Snapshot returns a copy of the recorded orders.
func (l *Ledger) Snapshot() []market.Order {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]market.Order, len(l.orders))
	copy(out, l.orders)
	return out
}

// Reset clears all stored orders.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.orders = l.orders[:0]
	l.mu.Unlock()
}
