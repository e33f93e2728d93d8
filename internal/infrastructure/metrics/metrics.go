package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operational counters for the reconcile loop and venue traffic.
var (
	PollPasses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duoleg_poll_passes_total",
		Help: "Completed reconciliation passes.",
	})

	VenueErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duoleg_venue_errors_total",
		Help: "Venue call failures by venue and error kind.",
	}, []string{"venue", "kind"})

	TradesSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "duoleg_trades_submitted_total",
		Help: "Executed trades by aggregate submission status.",
	}, []string{"status"})

	Settlements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "duoleg_settlements_total",
		Help: "Trades folded into the position exactly once.",
	})
)
