package progression

import "time"

// Reconcile makes the tournament outcome agree with its terminal stage: when
// that stage has a single, completed final, its winner is the champion. It
// reports whether anything changed.
func Reconcile(s *Snapshot, now time.Time) bool {
	t := s.Tournament
	matches := s.StageMatches(t.BracketType.TerminalStage())
	if len(matches) == 0 {
		return false
	}

	last := matches[len(matches)-1]
	finals := s.roundMatches(last.Stage, last.Round)
	if len(finals) != 1 || !finals[0].IsCompleted() {
		return false
	}

	winner := winnerOf(finals[0])
	if winner == nil {
		if t.Decided() {
			return false
		}
		t.Finish(nil, now)
		s.TouchTournament()
		return true
	}
	if t.Decided() && t.Champion.ID() == winner.TeamID {
		return false
	}
	t.Finish(winner, now)
	s.TouchTournament()
	return true
}
