package progression

import (
	"slices"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
)

// dropRound is the lower round an upper loser of upperRound enters.
func dropRound(upperRound int) int {
	if upperRound <= 1 {
		return 1
	}
	return 2 * (upperRound - 1)
}

// joinLower seats team in lower round: the first open slot of a started
// match, or a new match of its own.
func (e *engine) joinLower(team *bracket.TeamSnapshot, round int) {
	matches := e.s.roundMatches(bracket.StageLower, round)
	for _, m := range matches {
		if m.SideOf(team.TeamID) != bracket.SideNone {
			return
		}
	}

	for _, m := range matches {
		if m.IsCompleted() || m.HasBothTeams() {
			continue
		}
		switch {
		case m.TeamA == nil && m.TeamB != nil:
			m.SetTeam(bracket.SideA, team)
		case m.TeamB == nil && m.TeamA != nil:
			m.SetTeam(bracket.SideB, team)
		default:
			continue
		}
		m.RefreshStatus()
		e.s.Touch(m)
		return
	}

	index := 1
	for _, m := range matches {
		index = max(index, matchIndex(m)+1)
	}
	m := e.s.Put(bracket.Match{
		ID:     bracket.MatchID(bracket.PrefixFor(bracket.StageLower), round, index),
		Round:  round,
		Stage:  bracket.StageLower,
		Status: bracket.MatchWaiting,
	})
	m.SetTeam(bracket.SideA, team)
	if e.first == "" {
		e.first = m.ID
	}
}

func (e *engine) lowerWinner(m *bracket.Match, w *bracket.TeamSnapshot) {
	if e.upperDecided() && !e.lowerIncomplete() {
		e.s.Tournament.LowerChampion = w.Clone()
		e.s.TouchTournament()
		return
	}
	e.joinLower(w, m.Round+1)
}

// upperDecided reports a completed upper final whose loser has already
// been seated.
func (e *engine) upperDecided() bool {
	upper := e.s.StageMatches(bracket.StageUpper)
	if len(upper) == 0 {
		return false
	}
	last := upper[len(upper)-1]
	if !last.IsCompleted() || len(e.s.roundMatches(bracket.StageUpper, last.Round)) != 1 {
		return false
	}
	for _, id := range e.queue {
		if m := e.s.Match(id); m != nil && m.Stage == bracket.StageUpper {
			return false
		}
	}
	return true
}

func (e *engine) lowerIncomplete() bool {
	return slices.ContainsFunc(e.s.StageMatches(bracket.StageLower), func(m *bracket.Match) bool {
		return !m.IsCompleted()
	})
}

// feedersPending reports whether a team may still arrive in lower round.
func (e *engine) feedersPending(round int) bool {
	for _, m := range e.s.StageMatches(bracket.StageLower) {
		if m.Round < round && !m.IsCompleted() {
			return true
		}
	}
	for _, m := range e.s.StageMatches(bracket.StageUpper) {
		if !m.IsCompleted() && dropRound(m.Round) <= round {
			return true
		}
	}
	return false
}

// settleLower gives a bye to one lone lower team that nobody can reach any
// more. It reports whether it did.
func (e *engine) settleLower() bool {
	for _, m := range e.s.StageMatches(bracket.StageLower) {
		if m.IsCompleted() || m.HasBothTeams() || (m.TeamA == nil && m.TeamB == nil) {
			continue
		}
		if e.feedersPending(m.Round) {
			continue
		}
		side := bracket.SideA
		if m.TeamA == nil {
			side = bracket.SideB
		}
		m.Complete(side, 0, 0, e.now)
		m.Bye = true
		e.s.Touch(m)
		e.enqueue(m.ID)
		return true
	}
	return false
}

// finishDoubleElim opens the grand final once both brackets are settled. A
// single surviving side takes it by walkover; none at all ends the
// tournament without a champion.
func (e *engine) finishDoubleElim() {
	t := e.s.Tournament
	if t.Decided() || e.s.Match(bracket.GrandFinalID) != nil {
		return
	}
	if len(e.queue) > 0 || !e.upperDecided() || e.lowerIncomplete() {
		return
	}

	e.restoreChampions()
	up, low := t.UpperChampion, t.LowerChampion
	if up == nil && low == nil {
		e.finish(nil)
		return
	}

	gf := e.s.Put(bracket.Match{
		ID:     bracket.GrandFinalID,
		Round:  1,
		Stage:  bracket.StageGrandFinal,
		Status: bracket.MatchWaiting,
	})
	gf.SetTeam(bracket.SideA, up)
	gf.SetTeam(bracket.SideB, low)
	gf.RefreshStatus()
	if e.first == "" {
		e.first = gf.ID
	}

	switch {
	case up == nil:
		e.walkover(gf, bracket.SideB)
	case low == nil:
		e.walkover(gf, bracket.SideA)
	}
}

// stageChampion is the winner of a stage's completed final, nil while the
// final is open or went without a winner.
func (e *engine) stageChampion(stage bracket.Stage) *bracket.TeamSnapshot {
	matches := e.s.StageMatches(stage)
	if len(matches) == 0 {
		return nil
	}
	last := matches[len(matches)-1]
	if !last.IsCompleted() || len(e.s.roundMatches(stage, last.Round)) != 1 {
		return nil
	}
	return winnerOf(last)
}

// restoreChampions fills bracket champions a reset cleared while their
// finals stayed completed.
func (e *engine) restoreChampions() {
	t := e.s.Tournament
	changed := false
	if t.UpperChampion == nil {
		if w := e.stageChampion(bracket.StageUpper); w != nil {
			t.UpperChampion = w.Clone()
			changed = true
		}
	}
	if t.LowerChampion == nil && !e.lowerIncomplete() {
		if w := e.stageChampion(bracket.StageLower); w != nil {
			t.LowerChampion = w.Clone()
			changed = true
		}
	}
	if changed {
		e.s.TouchTournament()
	}
}
