package views

import (
	"math"
	"slices"
	"sort"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
)

// Round is one column of a drawn bracket, listing match ids top to bottom.
type Round struct {
	Number   int      `json:"number"`
	MatchIDs []string `json:"matchIds"`
}

// Section is one stage of a tournament, or one group of the group stage.
type Section struct {
	Stage  bracket.Stage `json:"stage"`
	Group  string        `json:"group,omitempty"`
	Rounds []Round       `json:"rounds"`
}

var stageOrder = []bracket.Stage{
	bracket.StageGroup,
	bracket.StageSingle,
	bracket.StageUpper,
	bracket.StageLower,
	bracket.StagePlayoff,
	bracket.StageGrandFinal,
}

type sectionKey struct {
	stage bracket.Stage
	group string
}

// PrepareBracketData lays matches out the way a bracket is drawn: stages in
// play order, rounds ascending, and matches in tree order within a round.
func PrepareBracketData(matches []bracket.Match) []Section {
	rounds := make(map[sectionKey]map[int][]bracket.Match)
	var keys []sectionKey

	for _, m := range matches {
		k := sectionKey{stage: m.Stage, group: m.Group}
		if _, exists := rounds[k]; !exists {
			rounds[k] = make(map[int][]bracket.Match)
			keys = append(keys, k)
		}
		rounds[k][m.Round] = append(rounds[k][m.Round], m)
	}

	sort.Slice(keys, func(i, j int) bool {
		si, sj := slices.Index(stageOrder, keys[i].stage), slices.Index(stageOrder, keys[j].stage)
		if si != sj {
			return si < sj
		}
		return keys[i].group < keys[j].group
	})

	sections := make([]Section, 0, len(keys))
	for _, k := range keys {
		sections = append(sections, Section{
			Stage:  k.stage,
			Group:  k.group,
			Rounds: sortRounds(rounds[k]),
		})
	}
	return sections
}

func sortRounds(byRound map[int][]bracket.Match) []Round {
	nums := make([]int, 0, len(byRound))
	for r := range byRound {
		nums = append(nums, r)
	}
	sort.Ints(nums)

	out := make([]Round, 0, len(nums))
	for _, r := range nums {
		ms := byRound[r]
		sort.Slice(ms, func(i, j int) bool {
			oi, oj := matchOrder(ms[i]), matchOrder(ms[j])
			if oi != oj {
				return oi < oj
			}
			return ms[i].ID < ms[j].ID
		})

		ids := make([]string, len(ms))
		for i, m := range ms {
			ids[i] = m.ID
		}
		out = append(out, Round{Number: r, MatchIDs: ids})
	}
	return out
}

// matchOrder is the position of m within its round. Ids without one sort
// after those that have it.
func matchOrder(m bracket.Match) int {
	if _, index, ok := bracket.ParseMatchID(m.ID, bracket.PrefixFor(m.Stage)); ok {
		return index
	}
	return math.MaxInt
}
