package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the ledger.
type Metrics struct {
	DonationsTotal     prometheus.Counter
	DonatedAmount      prometheus.Counter
	WithdrawalsTotal   prometheus.Counter
	WithdrawnAmount    prometheus.Counter
	ProposalsSubmitted prometheus.Counter
	ProposalsApproved  prometheus.Counter
	ProposalsRejected  prometheus.Counter
	ReentrantRejected  prometheus.Counter
	LedgerBalance      prometheus.Gauge
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		DonationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "almoner_donations_total",
			Help: "Number of accepted donations.",
		}),
		DonatedAmount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "almoner_donated_units_total",
			Help: "Sum of donated amounts in native units.",
		}),
		WithdrawalsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "almoner_withdrawals_total",
			Help: "Number of completed withdrawals.",
		}),
		WithdrawnAmount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "almoner_withdrawn_units_total",
			Help: "Sum of withdrawn amounts in native units.",
		}),
		ProposalsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "almoner_proposals_submitted_total",
			Help: "Number of recipient proposals submitted.",
		}),
		ProposalsApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "almoner_proposals_approved_total",
			Help: "Number of proposals approved.",
		}),
		ProposalsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "almoner_proposals_rejected_total",
			Help: "Number of proposals rejected.",
		}),
		ReentrantRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "almoner_reentrant_calls_rejected_total",
			Help: "Number of mutating calls rejected by the reentrancy guard.",
		}),
		LedgerBalance: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "almoner_ledger_balance_units",
			Help: "Current sum of all escrow balances in native units.",
		}),
	}
}
