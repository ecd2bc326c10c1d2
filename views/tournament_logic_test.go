package views

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
)

func registrations(n int) []bracket.Registration {
	regs := make([]bracket.Registration, n)
	for i := range regs {
		regs[i] = bracket.Registration{TeamID: fmt.Sprintf("team-%d", i+1), AvgEloSnapshot: 2000 - i}
	}
	return regs
}

func TestPrepareBracketDataTree(t *testing.T) {
	matches := bracket.BuildEliminationTreeMatches(registrations(20), bracket.StageSingle, "r")
	slices.Reverse(matches)

	sections := PrepareBracketData(matches)
	require.Len(t, sections, 1)
	assert.Equal(t, bracket.StageSingle, sections[0].Stage)

	rounds := sections[0].Rounds
	require.Len(t, rounds, 5)
	for i, r := range rounds {
		assert.Equal(t, i+1, r.Number)
		assert.Len(t, r.MatchIDs, 16>>i)
	}
	// r1_m10 must not sort before r1_m2.
	assert.Equal(t, "r1_m2", rounds[0].MatchIDs[1])
	assert.Equal(t, "r1_m10", rounds[0].MatchIDs[9])
	assert.Equal(t, []string{"r4_m1", "r4_m2"}, rounds[3].MatchIDs)
	assert.Equal(t, []string{"r5_m1"}, rounds[4].MatchIDs)
}

func TestPrepareBracketDataStageOrder(t *testing.T) {
	matches := []bracket.Match{
		{ID: bracket.GrandFinalID, Stage: bracket.StageGrandFinal, Round: 1},
		{ID: "l1_m1", Stage: bracket.StageLower, Round: 1},
		{ID: "u2_m1", Stage: bracket.StageUpper, Round: 2},
		{ID: "u1_m2", Stage: bracket.StageUpper, Round: 1},
		{ID: "u1_m1", Stage: bracket.StageUpper, Round: 1},
	}

	sections := PrepareBracketData(matches)
	require.Len(t, sections, 3)
	assert.Equal(t, bracket.StageUpper, sections[0].Stage)
	assert.Equal(t, bracket.StageLower, sections[1].Stage)
	assert.Equal(t, bracket.StageGrandFinal, sections[2].Stage)
	assert.Equal(t, []string{"u1_m1", "u1_m2"}, sections[0].Rounds[0].MatchIDs)
}

func TestPrepareBracketDataGroups(t *testing.T) {
	groups := bracket.BuildGroups(registrations(8))
	matches := bracket.BuildGroupMatches(groups)

	sections := PrepareBracketData(matches)
	require.Len(t, sections, 2)
	assert.Less(t, sections[0].Group, sections[1].Group)

	total := 0
	for _, s := range sections {
		assert.Equal(t, bracket.StageGroup, s.Stage)
		for _, r := range s.Rounds {
			total += len(r.MatchIDs)
		}
	}
	assert.Equal(t, len(matches), total)
}

func TestPrepareBracketDataEmpty(t *testing.T) {
	assert.Empty(t, PrepareBracketData(nil))
}
