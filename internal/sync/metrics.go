package sync

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	outcomeSynced  = "synced"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
	outcomeMerged  = "merged"
	outcomeLocal   = "local"
)

var (
	pushCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dojolog",
		Subsystem: "sync",
		Name:      "pushes_total",
		Help:      "Remote session upserts by outcome.",
	}, []string{"outcome"})

	deleteCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dojolog",
		Subsystem: "sync",
		Name:      "remote_deletes_total",
		Help:      "Remote session deletes by outcome.",
	}, []string{"outcome"})

	readCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dojolog",
		Subsystem: "sync",
		Name:      "reconciling_reads_total",
		Help:      "Session listings by whether remote rows were merged or the local copy was served alone.",
	}, []string{"outcome"})

	sweepCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "dojolog",
		Subsystem: "sync",
		Name:      "sweeps_total",
		Help:      "Retry sweeps over pending sessions.",
	})

	pendingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "dojolog",
		Subsystem: "sync",
		Name:      "pending_sessions",
		Help:      "Sessions left unsynced after the most recent sweep.",
	})
)

func init() {
	prometheus.MustRegister(pushCounter, deleteCounter, readCounter, sweepCounter, pendingGauge)
}
