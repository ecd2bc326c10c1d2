package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterTotals(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	totals := map[string]float64{}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			totals[f.GetName()] += m.GetCounter().GetValue()
		}
	}
	return totals
}

func TestMetricsCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.MatchCompleted("single")
	m.MatchCompleted("upper")
	m.Forfeit("ready_timeout")
	m.VetoStep("ban", true)
	m.VetoStep("pick", false)
	m.Reset()
	m.TournamentDecided("single_elimination", true)
	m.ReconcileFailed()

	totals := counterTotals(t, reg)
	assert.Equal(t, 2.0, totals["tournaments_matches_completed_total"])
	assert.Equal(t, 1.0, totals["tournaments_forfeits_total"])
	assert.Equal(t, 2.0, totals["tournaments_veto_steps_total"])
	assert.Equal(t, 1.0, totals["tournaments_match_resets_total"])
	assert.Equal(t, 1.0, totals["tournaments_tournaments_decided_total"])
	assert.Equal(t, 1.0, totals["tournaments_reconcile_failures_total"])
}

func TestNilMetricsRecordNothing(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.MatchCompleted("single")
		m.Forfeit("double_forfeit")
		m.VetoStep("ban", false)
		m.Reset()
		m.TournamentDecided("group_playoff", false)
		m.ReconcileFailed()
	})
}
