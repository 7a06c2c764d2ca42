// Package monitoring exposes Prometheus metrics for the trading core.
// Served at /metrics by the API server.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// SignalsGenerated counts candidate signals produced, by symbol.
	SignalsGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_signals_generated_total",
			Help: "Candidate trade signals produced",
		},
		[]string{"symbol"},
	)

	// SignalsExecuted counts signals that committed, by mode (live|paper).
	SignalsExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_signals_executed_total",
			Help: "Signals executed and committed",
		},
		[]string{"mode"},
	)

	// SignalsRejected counts risk-gate rejections, by reason class.
	SignalsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_signals_rejected_total",
			Help: "Signals rejected before execution",
		},
		[]string{"reason"},
	)

	// Rollbacks counts compensating rollbacks after failed venue calls.
	Rollbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_rollbacks_total",
			Help: "Optimistic updates reverted after venue failure",
		},
	)

	// TradesByResult counts recorded trades split by win/loss/flat.
	TradesByResult = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_trades_total",
			Help: "Executed trades by result",
		},
		[]string{"result"},
	)

	// Equity is the current capital snapshot.
	Equity = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_equity_usd",
			Help: "Current capital in USD",
		},
	)

	// CircuitState is 0 closed, 1 half-open, 2 open, per upstream.
	CircuitState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bot_circuit_state",
			Help: "Circuit breaker state (0=closed 1=half_open 2=open)",
		},
		[]string{"upstream"},
	)

	// WorkerRestarts counts supervised worker failures by severity.
	WorkerRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_worker_restarts_total",
			Help: "Supervised worker iterations that failed",
		},
		[]string{"worker", "severity"},
	)
)

func init() {
	prometheus.MustRegister(
		SignalsGenerated,
		SignalsExecuted,
		SignalsRejected,
		Rollbacks,
		TradesByResult,
		Equity,
		CircuitState,
		WorkerRestarts,
	)
}

// RecordTradeResult maps a realized PnL to the win/loss/flat counter.
func RecordTradeResult(pnl float64) {
	switch {
	case pnl > 0:
		TradesByResult.WithLabelValues("win").Inc()
	case pnl < 0:
		TradesByResult.WithLabelValues("loss").Inc()
	default:
		TradesByResult.WithLabelValues("flat").Inc()
	}
}

// SetCircuitState publishes a breaker state transition.
func SetCircuitState(upstream, state string) {
	var v float64
	switch state {
	case "half_open":
		v = 1
	case "open":
		v = 2
	}
	CircuitState.WithLabelValues(upstream).Set(v)
}
