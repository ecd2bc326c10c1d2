package bracket

import (
	"cmp"
	"math"
	"slices"
)

// Gets the nearest power of 2 while rounding up, so with input 5 it returns 8 and so on
func calcBracketSize(count int) int {
	if count <= 0 {
		return 0
	}

	// Log2 -> Ceil -> 2^^log2 to round up
	log2 := math.Ceil(math.Log2(float64(count)))
	return int(math.Pow(2, log2))
}

// generateRound1Pairs pairs slot i with slot size-1-i, ordered so that the
// top seeds can only meet in the latest rounds.
func generateRound1Pairs(bracketSize int) [][2]int {
	if bracketSize == 0 {
		return [][2]int{}
	}

	rounds := []int{0}
	for len(rounds) < bracketSize {
		var nextRound []int
		currentCount := len(rounds) * 2

		for _, seed := range rounds {
			nextRound = append(nextRound, seed)
			nextRound = append(nextRound, (currentCount-1)-seed)
		}
		rounds = nextRound
	}

	pairs := make([][2]int, 0, bracketSize/2)
	for i := 0; i < len(rounds); i += 2 {
		matchup := [2]int{rounds[i], rounds[i+1]}
		pairs = append(pairs, matchup)
	}

	return pairs
}

// SortBySeed orders registrations by elo, highest first. Ties keep
// registration order.
func SortBySeed(regs []Registration) []Registration {
	sorted := slices.Clone(regs)
	slices.SortStableFunc(sorted, func(a, b Registration) int {
		return cmp.Compare(b.AvgEloSnapshot, a.AvgEloSnapshot)
	})
	return sorted
}

// treeSlot is one entrant of a round: a known team, a match still to be
// decided, or nothing at all.
type treeSlot struct {
	team    *TeamSnapshot
	present bool
}

// BuildEliminationTreeMatches seeds regs by elo into a power-of-two bracket
// and emits every match of every round. One-sided pairings become completed
// byes and their team is carried into the next round; empty pairings emit
// nothing.
func BuildEliminationTreeMatches(regs []Registration, stage Stage, prefix string) []Match {
	if len(regs) == 0 {
		return nil
	}

	seeded := SortBySeed(regs)
	size := calcBracketSize(max(2, len(seeded)))

	current := make([]treeSlot, size)
	for i, r := range seeded {
		current[i] = treeSlot{team: r.Snapshot(), present: true}
	}

	var matches []Match

	// Round 1 uses the seeded pair order, later rounds pair neighbours so
	// that match k feeds match ceil(k/2).
	first := make([]treeSlot, 0, size)
	for _, pair := range generateRound1Pairs(size) {
		first = append(first, current[pair[0]], current[pair[1]])
	}
	current = first

	for round := 1; len(current) > 1; round++ {
		next := make([]treeSlot, 0, len(current)/2)

		for i := 0; i < len(current); i += 2 {
			a, b := current[i], current[i+1]
			id := MatchID(prefix, round, i/2+1)

			switch {
			case !a.present && !b.present:
				next = append(next, treeSlot{})

			case a.present != b.present && (a.team != nil || b.team != nil):
				side, team := SideA, a.team
				if !a.present {
					side, team = SideB, b.team
				}
				matches = append(matches, newByeMatch(id, stage, round, side, team))
				next = append(next, treeSlot{team: team, present: true})

			default:
				m := Match{
					ID:    id,
					Round: round,
					Stage: stage,
					TeamA: a.team.Clone(),
					TeamB: b.team.Clone(),
				}
				m.RefreshStatus()
				matches = append(matches, m)
				next = append(next, treeSlot{present: true})
			}
		}
		current = next
	}

	return matches
}

func newByeMatch(id string, stage Stage, round int, side Side, team *TeamSnapshot) Match {
	winnerID := team.ID()
	m := Match{
		ID:           id,
		Round:        round,
		Stage:        stage,
		Status:       MatchCompleted,
		WinnerTeamID: &winnerID,
		Winner:       team.Clone(),
		Bye:          true,
	}
	m.SetTeam(side, team)
	return m
}

// ByeMatch is a completed walk-through for a lone team.
func ByeMatch(id string, stage Stage, round int, team *TeamSnapshot) Match {
	return newByeMatch(id, stage, round, SideA, team)
}
