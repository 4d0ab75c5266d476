// Package market defines the payloads shared between providers, the
// indicator/strategy layers, the paper broker, and the broadcast hub.
package market

import "time"

// Tick is one price observation for a symbol.
type Tick struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Ts     time.Time `json:"ts"`
}

// Indicators carries the rolling indicator values for one symbol. A nil
// field means the window is not full yet and marshals as JSON null.
type Indicators struct {
	MAShort *float64 `json:"ma_short"`
	MALong  *float64 `json:"ma_long"`
	RSI     *float64 `json:"rsi"`
}

// SignalKind enumerates the decisions a strategy can emit.
type SignalKind string

const (
	Buy  SignalKind = "BUY"
	Sell SignalKind = "SELL"
	Hold SignalKind = "HOLD"
)

// Signal is the per-tick strategy output. Hold is the default kind; Reason
// names the trigger and the values that caused it.
type Signal struct {
	Symbol string     `json:"symbol"`
	Kind   SignalKind `json:"kind"`
	Reason string     `json:"reason"`
	Ts     time.Time  `json:"ts"`
}

// Position is a long-only holding. AvgPrice is the cost-weighted average
// across accumulated buys and is cleared together with Qty.
type Position struct {
	Symbol   string  `json:"symbol"`
	Qty      int64   `json:"qty"`
	AvgPrice float64 `json:"avg_price"`
}

// OrderStatus tells whether the broker acted on a signal or refused it.
type OrderStatus string

const (
	OrderFilled   OrderStatus = "filled"
	OrderRejected OrderStatus = "rejected"
)

// Order records the broker's reaction to a BUY or SELL signal, including
// rejections. Rejections carry a reason and mutate nothing else.
type Order struct {
	Symbol string      `json:"symbol"`
	Side   SignalKind  `json:"side"`
	Qty    int64       `json:"qty"`
	Price  float64     `json:"price"`
	Status OrderStatus `json:"status"`
	Reason string      `json:"reason,omitempty"`
	Ts     time.Time   `json:"ts"`
}

// AccountView is a point-in-time copy of the paper account, marked to
// market with the latest known price per symbol.
type AccountView struct {
	Cash      float64    `json:"cash"`
	Equity    float64    `json:"equity"`
	Positions []Position `json:"positions"`
	LastOrder *Order     `json:"last_order"`
}

// Event is the composite per-tick message assembled after the broker step.
type Event struct {
	Tick       Tick
	Indicators Indicators
	Signal     Signal
	Account    AccountView
}

// ErrorEvent surfaces a provider failure for one symbol without stopping
// that symbol's pipeline.
type ErrorEvent struct {
	Symbol string
	Err    string
	Ts     time.Time
}
