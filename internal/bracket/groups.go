package bracket

import (
	"cmp"
	"slices"

	"github.com/AdamBeresnev/op-tournaments/internal/utils"
)

type Group struct {
	Key   string         `json:"key"`
	Items []Registration `json:"items"`
}

// QualifiersPerGroup is how many teams of each group reach the playoff.
const QualifiersPerGroup = 2

func groupKey(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return groupKey(i/26-1) + groupKey(i%26)
}

// BuildGroups splits regs into groups of about four, never leaving a
// singleton group. Seeds are dealt in a snake so every group gets a similar
// spread of strength.
func BuildGroups(regs []Registration) []Group {
	n := len(regs)
	if n == 0 {
		return nil
	}

	count := 1
	if n >= 4 {
		count = max(2, (n+3)/4)
	}

	groups := make([]Group, count)
	for i := range groups {
		groups[i].Key = groupKey(i)
	}

	for i, r := range SortBySeed(regs) {
		band, pos := i/count, i%count
		if band%2 == 1 {
			pos = count - 1 - pos
		}
		groups[pos].Items = append(groups[pos].Items, r)
	}
	return groups
}

// BuildGroupMatches schedules a single round robin inside every group using
// the circle method. Index numbering runs across groups within a round.
func BuildGroupMatches(groups []Group) []Match {
	var matches []Match
	nextIndex := map[int]int{}

	for _, g := range groups {
		teams := make([]*TeamSnapshot, 0, len(g.Items)+1)
		for _, r := range SortBySeed(g.Items) {
			teams = append(teams, r.Snapshot())
		}
		if len(teams) < 2 {
			continue
		}
		if len(teams)%2 == 1 {
			teams = append(teams, nil)
		}

		n := len(teams)
		for round := 1; round < n; round++ {
			for i := 0; i < n/2; i++ {
				a, b := teams[i], teams[n-1-i]
				if a == nil || b == nil {
					continue
				}
				nextIndex[round]++
				matches = append(matches, Match{
					ID:     MatchID(PrefixFor(StageGroup), round, nextIndex[round]),
					Round:  round,
					Stage:  StageGroup,
					Group:  g.Key,
					Status: MatchPending,
					TeamA:  a.Clone(),
					TeamB:  b.Clone(),
				})
			}
			// Rotate everyone but the first entry.
			last := teams[n-1]
			copy(teams[2:], teams[1:n-1])
			teams[1] = last
		}
	}

	slices.SortStableFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(a.Round, b.Round); c != 0 {
			return c
		}
		return cmp.Compare(a.Group, b.Group)
	})
	return matches
}

type RankedRow struct {
	TeamID       string       `json:"teamId"`
	Registration Registration `json:"registration"`
	Wins         int          `json:"wins"`
	Losses       int          `json:"losses"`
}

// RankGroup tallies completed group matches and orders teams by wins, then
// by registration elo. A double forfeit counts as a loss for both sides.
func RankGroup(matches []Match, regsByTeamID map[string]Registration) []RankedRow {
	rows := map[string]*RankedRow{}
	var order []string

	row := func(team *TeamSnapshot) *RankedRow {
		id := team.ID()
		if r, ok := rows[id]; ok {
			return r
		}
		reg, ok := regsByTeamID[id]
		if !ok {
			reg = Registration{TeamID: id, Name: team.Name, AvgEloSnapshot: team.AvgElo}
		}
		rows[id] = &RankedRow{TeamID: id, Registration: reg}
		order = append(order, id)
		return rows[id]
	}

	for _, m := range matches {
		if m.Stage != StageGroup {
			continue
		}
		var a, b *RankedRow
		if m.TeamA != nil {
			a = row(m.TeamA)
		}
		if m.TeamB != nil {
			b = row(m.TeamB)
		}
		if !m.IsCompleted() || a == nil || b == nil {
			continue
		}
		switch m.SideOf(utils.OrZero(m.WinnerTeamID)) {
		case SideA:
			a.Wins++
			b.Losses++
		case SideB:
			b.Wins++
			a.Losses++
		default:
			a.Losses++
			b.Losses++
		}
	}

	ranked := make([]RankedRow, 0, len(order))
	for _, id := range order {
		ranked = append(ranked, *rows[id])
	}
	slices.SortStableFunc(ranked, func(x, y RankedRow) int {
		if c := cmp.Compare(y.Wins, x.Wins); c != 0 {
			return c
		}
		return cmp.Compare(y.Registration.AvgEloSnapshot, x.Registration.AvgEloSnapshot)
	})
	return ranked
}
