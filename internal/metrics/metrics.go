// Package metrics registers the prometheus collectors shared across the
// pipeline and the broadcast hub.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks processed"},
		[]string{"symbol"},
	)
	ProviderErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "provider_errors_total", Help: "Provider failures surfaced as error events"},
		[]string{"symbol"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Non-HOLD signals emitted"},
		[]string{"symbol", "kind"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Paper orders by status"},
		[]string{"symbol", "side", "status"},
	)
	WSSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "ws_sessions", Help: "Connected websocket sessions"},
	)
	BroadcastDroppedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "broadcast_dropped_total", Help: "Messages dropped from saturated session queues"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal,
		ProviderErrorsTotal,
		SignalsTotal,
		OrdersTotal,
		WSSessions,
		BroadcastDroppedTotal,
	)
}
