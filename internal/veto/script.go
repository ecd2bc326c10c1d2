package veto

import (
	"slices"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
)

const (
	ban     = bracket.VetoBan
	pick    = bracket.VetoPick
	decider = bracket.VetoDecider
)

// Best of one has no script: teams ban in turn until a single map is left.
var scripts = map[int][]bracket.VetoAction{
	3: {ban, ban, ban, ban, pick, pick, ban, ban, ban, decider},
	5: {ban, ban, pick, pick, ban, ban, pick, pick, ban, decider},
}

func ValidBestOf(bestOf int) bool {
	return bestOf == 1 || bestOf == 3 || bestOf == 5
}

// Script returns the ban/pick order for a series length.
func Script(bestOf int) []bracket.VetoAction {
	return slices.Clone(scripts[bestOf])
}

func remainingPicks(v *bracket.VetoState) int {
	if v.StepIndex >= len(v.Script) {
		return 0
	}
	n := 0
	for _, a := range v.Script[v.StepIndex:] {
		if a == pick {
			n++
		}
	}
	return n
}

// SeriesMaps lists the maps to play in order: every pick, then the decider.
func SeriesMaps(v *bracket.VetoState) []string {
	if v == nil {
		return nil
	}
	maps := slices.Clone(v.Picks)
	if v.Decider != "" {
		maps = append(maps, v.Decider)
	}
	return maps
}
