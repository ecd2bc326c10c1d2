package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tournaments"

// Metrics counts engine outcomes. A nil *Metrics is valid and records
// nothing, which keeps tests free of registries.
type Metrics struct {
	matchesCompleted  *prometheus.CounterVec
	forfeits          *prometheus.CounterVec
	vetoSteps         *prometheus.CounterVec
	resets            prometheus.Counter
	tournamentsDone   *prometheus.CounterVec
	reconcileFailures prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		matchesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_completed_total",
			Help:      "Matches completed, by stage.",
		}, []string{"stage"}),
		forfeits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forfeits_total",
			Help:      "Forfeits recorded, by type.",
		}, []string{"type"}),
		vetoSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "veto_steps_total",
			Help:      "Veto steps applied, by action and whether a timeout played them.",
		}, []string{"action", "auto"}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_resets_total",
			Help:      "Completed matches reopened by an admin.",
		}),
		tournamentsDone: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tournaments_decided_total",
			Help:      "Tournaments that reached a terminal state, by bracket type and whether a champion was crowned.",
		}, []string{"bracket_type", "champion"}),
		reconcileFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_failures_total",
			Help:      "Champion reconciliation passes that failed and were skipped.",
		}),
	}
	reg.MustRegister(m.matchesCompleted, m.forfeits, m.vetoSteps, m.resets, m.tournamentsDone, m.reconcileFailures)
	return m
}

func (m *Metrics) MatchCompleted(stage string) {
	if m == nil {
		return
	}
	m.matchesCompleted.WithLabelValues(stage).Inc()
}

func (m *Metrics) Forfeit(kind string) {
	if m == nil {
		return
	}
	m.forfeits.WithLabelValues(kind).Inc()
}

func (m *Metrics) VetoStep(action string, auto bool) {
	if m == nil {
		return
	}
	label := "false"
	if auto {
		label = "true"
	}
	m.vetoSteps.WithLabelValues(action, label).Inc()
}

func (m *Metrics) Reset() {
	if m == nil {
		return
	}
	m.resets.Inc()
}

func (m *Metrics) TournamentDecided(bracketType string, hasChampion bool) {
	if m == nil {
		return
	}
	label := "false"
	if hasChampion {
		label = "true"
	}
	m.tournamentsDone.WithLabelValues(bracketType, label).Inc()
}

func (m *Metrics) ReconcileFailed() {
	if m == nil {
		return
	}
	m.reconcileFailures.Inc()
}
