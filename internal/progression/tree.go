package progression

import (
	"time"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
)

var stagesByPrefix = map[string]bracket.Stage{}

func init() {
	for stage := range stageOrder {
		stagesByPrefix[bracket.PrefixFor(stage)] = stage
	}
}

// treePosition locates m in its tree. Ids that don't parse fall back to the
// stored round and the first index.
func treePosition(id, prefix string, fallbackRound int) (round, index int) {
	round, index, ok := bracket.ParseMatchID(id, prefix)
	if !ok {
		return fallbackRound, 1
	}
	return round, index
}

func siblingIndex(index int) int {
	if index%2 == 1 {
		return index + 1
	}
	return index - 1
}

// feedSide is the slot of the next match that index feeds.
func feedSide(index int) bracket.Side {
	if index%2 == 1 {
		return bracket.SideA
	}
	return bracket.SideB
}

func (e *engine) nextMatch(stage bracket.Stage, id string, round int) *bracket.Match {
	if m := e.s.Match(id); m != nil {
		return m
	}
	return e.s.Put(bracket.Match{
		ID:     id,
		Round:  round,
		Stage:  stage,
		Status: bracket.MatchWaiting,
	})
}

// AdvanceTreeMatch moves winner from matchID into the next round of its
// tree. It reports false when matchID was the last match of its round, which
// makes it that tree's final.
func AdvanceTreeMatch(s *Snapshot, matchID string, winner *bracket.TeamSnapshot, round int, prefix string, now time.Time) (string, bool) {
	e := newEngine(s, now)
	next, ok := e.advanceFrom(matchID, winner, round, prefix)
	e.run()
	return next, ok
}

func (e *engine) advance(m *bracket.Match, winner *bracket.TeamSnapshot) (string, bool) {
	return e.advanceFrom(m.ID, winner, m.Round, bracket.PrefixFor(m.Stage))
}

func (e *engine) advanceFrom(matchID string, winner *bracket.TeamSnapshot, fallbackRound int, prefix string) (string, bool) {
	stage, ok := stagesByPrefix[prefix]
	if !ok {
		return "", false
	}
	round, index := treePosition(matchID, prefix, fallbackRound)
	if len(e.s.roundMatches(stage, round)) < 2 {
		return "", false
	}

	nextID := bracket.MatchID(prefix, round+1, (index+1)/2)
	next := e.nextMatch(stage, nextID, round+1)
	if next.IsCompleted() {
		return nextID, true
	}

	slot := feedSide(index)
	next.SetTeam(slot, winner)
	next.RefreshStatus()
	e.s.Touch(next)
	if e.first == "" {
		e.first = nextID
	}

	sibID := bracket.MatchID(prefix, round, siblingIndex(index))
	if next.Team(slot.Opposite()) == nil {
		if sib := e.s.Match(sibID); sib == nil || sib.IsDoubleForfeit() {
			e.walkover(next, slot, sibID)
		}
	}
	return nextID, true
}

// doubleForfeit pushes a winnerless result forward. In a tree the next match
// goes to the opponent already waiting there; when the sibling match also
// ended without a winner the next match is itself a double forfeit.
func (e *engine) doubleForfeit(m *bracket.Match) {
	switch m.Stage {
	case bracket.StageGrandFinal:
		e.finish(nil)
		return
	case bracket.StageLower, bracket.StageGroup:
		return
	}

	prefix := bracket.PrefixFor(m.Stage)
	round, index := treePosition(m.ID, prefix, m.Round)
	if len(e.s.roundMatches(m.Stage, round)) < 2 {
		// An upper final without a winner leaves the grand final to the
		// lower bracket.
		if m.Stage != bracket.StageUpper {
			e.finish(nil)
		}
		return
	}

	nextID := bracket.MatchID(prefix, round+1, (index+1)/2)
	next := e.nextMatch(m.Stage, nextID, round+1)
	if next.IsCompleted() {
		return
	}

	opp := feedSide(index).Opposite()
	if next.Team(opp) != nil {
		e.walkover(next, opp, m.ID)
		return
	}

	sibID := bracket.MatchID(prefix, round, siblingIndex(index))
	sib := e.s.Match(sibID)
	if sib != nil && !sib.IsDoubleForfeit() {
		return
	}
	sources := []string{m.ID}
	if sib != nil {
		sources = append(sources, sibID)
	}
	next.CompleteWithoutWinner(&bracket.Forfeit{
		Type:           bracket.ForfeitDouble,
		SourceMatchIDs: sources,
		At:             e.now.UnixMilli(),
	}, e.now)
	e.s.Touch(next)
	e.enqueue(next.ID)
}
