package progression

import (
	"slices"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
)

// trail is something a cleared result left behind: a team that advanced out
// of a match, or the match id a forfeit points back to.
type trail struct {
	teamID   string
	sourceID string
	stage    bracket.Stage
	round    int
}

// downstream reports whether x can hold something that came out of a match
// at stage and round.
func downstream(stage bracket.Stage, round int, x *bracket.Match) bool {
	switch stage {
	case bracket.StageSingle, bracket.StagePlayoff:
		return x.Stage == stage && x.Round > round
	case bracket.StageUpper:
		switch x.Stage {
		case bracket.StageUpper:
			return x.Round > round
		case bracket.StageLower:
			return x.Round >= dropRound(round)
		case bracket.StageGrandFinal:
			return true
		}
	case bracket.StageLower:
		switch x.Stage {
		case bracket.StageLower:
			return x.Round > round
		case bracket.StageGrandFinal:
			return true
		}
	}
	return false
}

func trailsOf(m *bracket.Match) []trail {
	out := []trail{{sourceID: m.ID, stage: m.Stage, round: m.Round}}
	if m.WinnerTeamID != nil {
		out = append(out, trail{teamID: *m.WinnerTeamID, stage: m.Stage, round: m.Round})
	}
	if id := m.LoserTeamID(); id != "" {
		out = append(out, trail{teamID: id, stage: m.Stage, round: m.Round})
	}
	return out
}

// Reset reopens a completed match and removes everything its result put into
// later matches. Lower bracket matches that end up empty are deleted, and so
// is the grand final unless it is the match being reopened; it is rebuilt
// once both brackets settle again. The tournament outcome is cleared.
// Reopening a group match discards the playoff, which was seeded from the old
// standings.
func Reset(s *Snapshot, matchID string) error {
	m := s.Match(matchID)
	if m == nil {
		return ErrMatchNotFound
	}
	if !m.IsCompleted() {
		return ErrMatchNotCompleted
	}
	if m.Bye {
		return ErrByeMatch
	}

	queue := trailsOf(m)
	m.ClearResult()
	s.Touch(m)

	if m.Stage == bracket.StageGroup {
		for _, x := range s.StageMatches(bracket.StagePlayoff) {
			s.Delete(x.ID)
		}
		queue = nil
	}

	for len(queue) > 0 {
		tr := queue[0]
		queue = queue[1:]

		for _, x := range s.Matches() {
			if x.ID == matchID || x.Stage == bracket.StageGroup || !downstream(tr.stage, tr.round, x) {
				continue
			}

			side := bracket.SideNone
			if tr.teamID != "" {
				side = x.SideOf(tr.teamID)
			}
			fromSource := tr.sourceID != "" && x.Forfeit != nil && slices.Contains(x.Forfeit.SourceMatchIDs, tr.sourceID)
			if side == bracket.SideNone && !fromSource {
				continue
			}

			if x.IsCompleted() {
				queue = append(queue, trailsOf(x)...)
				x.ClearResult()
			}
			if side != bracket.SideNone {
				x.SetTeam(side, nil)
				x.ReadyCheck = nil
				x.Veto = nil
				x.RefreshStatus()
			}

			if (x.Stage == bracket.StageLower || x.Stage == bracket.StageGrandFinal) && x.TeamA == nil && x.TeamB == nil {
				s.Delete(x.ID)
				continue
			}
			s.Touch(x)
		}
	}

	if m.Stage != bracket.StageGrandFinal && s.Match(bracket.GrandFinalID) != nil {
		s.Delete(bracket.GrandFinalID)
	}

	s.Tournament.ClearOutcome()
	s.TouchTournament()
	return nil
}
