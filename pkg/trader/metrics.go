package trader

import "github.com/prometheus/client_golang/prometheus"

var (
	mtxSignals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_trader_signals_total",
			Help: "Signals received, by outcome",
		},
		[]string{"route", "action", "outcome"}, // outcome: ok|unknown_route|duplicate|error
	)

	mtxOrders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_trader_orders_submitted_total",
			Help: "Orders submitted to the broker",
		},
		[]string{"route", "side", "type"},
	)

	mtxFillMonitor = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_trader_fill_monitor_total",
			Help: "Fill monitor results (filled, timeout or aborted)",
		},
		[]string{"result"},
	)

	mtxCancelFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signal_trader_cancel_failures_total",
			Help: "Best-effort cancel requests that failed",
		},
		[]string{"stage"}, // sell_cleanup|fill_deadline
	)
)

func init() {
	prometheus.MustRegister(mtxSignals, mtxOrders, mtxFillMonitor, mtxCancelFailures)
}
