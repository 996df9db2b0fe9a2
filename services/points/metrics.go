package points

import "github.com/prometheus/client_golang/prometheus"

var (
	rowsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "yapper_points_ledger_rows_total",
		Help: "Ledger rows appended, by scope kind.",
	}, []string{"scope"})
	participantsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "yapper_points_participants_failed_total",
		Help: "Participants skipped because processing failed.",
	})
	tierChanges = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "yapper_points_tier_changes_total",
		Help: "Tier change records appended.",
	})
	runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "yapper_points_runs_total",
		Help: "Engine runs, by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(rowsWritten, participantsFailed, tierChanges, runsTotal)
}
