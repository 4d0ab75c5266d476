// Package broker simulates order execution against a virtual account.
// Rejections are recorded orders, not errors; the only panic path is the
// single-writer invariant on the account itself.
package broker

import (
	"sort"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"quantpaper/internal/market"
	"quantpaper/internal/metrics"
)

// OrderRecorder captures every order the account produces, including
// rejections.
type OrderRecorder interface {
	Record(market.Order)
}

type position struct {
	qty      int64
	avgPrice decimal.Decimal
}

// Account tracks virtual cash and per-symbol positions. It is owned by a
// single applier goroutine; a CAS guard turns any concurrent mutation into a
// loud panic instead of silently corrupting balances.
type Account struct {
	guard     atomic.Int32
	cash      decimal.Decimal
	positions map[string]position
	lastOrder *market.Order
	sizing    SizingPolicy
	lot       int64
	recorders []OrderRecorder
}

// NewAccount constructs an account with starting cash, a sizing policy, and
// the minimum tradable unit.
func NewAccount(startingCash float64, sizing SizingPolicy, lot int64, recorders ...OrderRecorder) *Account {
	if lot <= 0 {
		lot = 1
	}
	return &Account{
		cash:      decimal.NewFromFloat(startingCash),
		positions: make(map[string]position),
		sizing:    sizing,
		lot:       lot,
		recorders: recorders,
	}
}

func (a *Account) enter() {
	if !a.guard.CompareAndSwap(0, 1) {
		panic("broker: concurrent account mutation, single-writer invariant broken")
	}
}

func (a *Account) leave() { a.guard.Store(0) }

// Execute applies a BUY or SELL signal at the tick's price and returns the
// resulting order record. HOLD is a no-op and returns no order.
func (a *Account) Execute(sig market.Signal, price float64) *market.Order {
	if sig.Kind == market.Hold {
		return nil
	}

	a.enter()
	defer a.leave()

	px := decimal.NewFromFloat(price)
	order := market.Order{
		Symbol: sig.Symbol,
		Side:   sig.Kind,
		Price:  price,
		Status: market.OrderFilled,
		Ts:     sig.Ts,
	}

	switch sig.Kind {
	case market.Buy:
		qty := a.sizing.Quantity(a.cash, px, a.lot)
		cost := px.Mul(decimal.NewFromInt(qty))
		if qty <= 0 || cost.GreaterThan(a.cash) {
			order.Status = market.OrderRejected
			order.Reason = "insufficient_cash"
			break
		}
		pos := a.positions[sig.Symbol]
		newQty := pos.qty + qty
		// Cost-weighted average across accumulated buys.
		newAvg := pos.avgPrice.Mul(decimal.NewFromInt(pos.qty)).Add(cost).
			Div(decimal.NewFromInt(newQty))
		a.positions[sig.Symbol] = position{qty: newQty, avgPrice: newAvg}
		a.cash = a.cash.Sub(cost)
		order.Qty = qty

	case market.Sell:
		pos := a.positions[sig.Symbol]
		if pos.qty <= 0 {
			order.Status = market.OrderRejected
			order.Reason = "no_position"
			break
		}
		proceeds := px.Mul(decimal.NewFromInt(pos.qty))
		a.cash = a.cash.Add(proceeds)
		order.Qty = pos.qty
		delete(a.positions, sig.Symbol)
	}

	a.lastOrder = &order
	metrics.OrdersTotal.WithLabelValues(order.Symbol, string(order.Side), string(order.Status)).Inc()
	for _, r := range a.recorders {
		r.Record(order)
	}
	return &order
}

// View copies the account state, marked to market with the latest known
// price per symbol. Equity is always derived, never stored.
func (a *Account) View(marks map[string]float64) market.AccountView {
	a.enter()
	defer a.leave()

	equity := a.cash
	positions := make([]market.Position, 0, len(a.positions))
	for sym, pos := range a.positions {
		// A symbol that has not ticked yet marks at its cost basis.
		mark := pos.avgPrice
		if px, ok := marks[sym]; ok {
			mark = decimal.NewFromFloat(px)
		}
		equity = equity.Add(mark.Mul(decimal.NewFromInt(pos.qty)))
		positions = append(positions, market.Position{
			Symbol:   sym,
			Qty:      pos.qty,
			AvgPrice: pos.avgPrice.InexactFloat64(),
		})
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })

	view := market.AccountView{
		Cash:      a.cash.InexactFloat64(),
		Equity:    equity.InexactFloat64(),
		Positions: positions,
	}
	if a.lastOrder != nil {
		o := *a.lastOrder
		view.LastOrder = &o
	}
	return view
}
