package progression

import (
	"time"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
)

// Result reports where a completion led.
type Result struct {
	NextMatchID string `json:"nextMatchId,omitempty"`
}

// engine drains a queue of freshly completed matches. Walkovers, cascaded
// double forfeits and lower bracket byes complete further matches and are
// queued in turn.
type engine struct {
	s     *Snapshot
	now   time.Time
	queue []string
	first string
}

func newEngine(s *Snapshot, now time.Time) *engine {
	return &engine{s: s, now: now}
}

func (e *engine) enqueue(id string) {
	e.queue = append(e.queue, id)
}

func (e *engine) run() {
	for {
		for len(e.queue) > 0 {
			id := e.queue[0]
			e.queue = e.queue[1:]

			m := e.s.Match(id)
			if m == nil || !m.IsCompleted() {
				continue
			}
			if m.IsDoubleForfeit() {
				e.doubleForfeit(m)
			} else {
				e.winner(m)
			}
		}

		if e.s.Tournament.BracketType != bracket.DoubleElimination {
			return
		}
		if e.settleLower() {
			continue
		}
		e.finishDoubleElim()
		if len(e.queue) == 0 {
			return
		}
	}
}

func (e *engine) finish(champion *bracket.TeamSnapshot) {
	e.s.Tournament.Finish(champion, e.now)
	e.s.TouchTournament()
}

func winnerOf(m *bracket.Match) *bracket.TeamSnapshot {
	if m.Winner != nil {
		return m.Winner
	}
	if m.WinnerTeamID == nil {
		return nil
	}
	return m.Team(m.SideOf(*m.WinnerTeamID))
}

func (e *engine) winner(m *bracket.Match) {
	w := winnerOf(m)
	if w == nil {
		return
	}

	switch m.Stage {
	case bracket.StageSingle, bracket.StagePlayoff:
		if _, ok := e.advance(m, w); !ok {
			e.finish(w)
		}
	case bracket.StageUpper:
		if _, ok := e.advance(m, w); !ok {
			e.s.Tournament.UpperChampion = w.Clone()
			e.s.TouchTournament()
		}
		if !m.Bye && m.Loser != nil {
			e.joinLower(m.Loser, dropRound(m.Round))
		}
	case bracket.StageLower:
		e.lowerWinner(m, w)
	case bracket.StageGrandFinal:
		e.restoreChampions()
		e.finish(w)
	}
}

// walkover awards next to side because its opponent is never coming.
func (e *engine) walkover(next *bracket.Match, side bracket.Side, sources ...string) {
	a, b := 1, 0
	if side == bracket.SideB {
		a, b = 0, 1
	}
	next.Complete(side, a, b, e.now)
	next.Forfeit = &bracket.Forfeit{
		Type:           bracket.ForfeitOpponentAbsent,
		SourceMatchIDs: sources,
		At:             e.now.UnixMilli(),
	}
	e.s.Touch(next)
	e.enqueue(next.ID)
}

// ProgressCompletedMatch carries the result of a completed match into the
// rest of the bracket and decides the tournament when it was a final.
func ProgressCompletedMatch(s *Snapshot, matchID string, now time.Time) (Result, error) {
	m := s.Match(matchID)
	if m == nil {
		return Result{}, ErrMatchNotFound
	}
	if !m.IsCompleted() {
		return Result{}, ErrMatchNotCompleted
	}
	e := newEngine(s, now)
	e.enqueue(matchID)
	e.run()
	return Result{NextMatchID: e.first}, nil
}

// ProgressDoubleForfeitMatch handles a completed match that produced no
// winner.
func ProgressDoubleForfeitMatch(s *Snapshot, matchID string, now time.Time) (Result, error) {
	m := s.Match(matchID)
	if m == nil {
		return Result{}, ErrMatchNotFound
	}
	if !m.IsDoubleForfeit() {
		return Result{}, ErrMatchNotCompleted
	}
	return ProgressCompletedMatch(s, matchID, now)
}

type ResultInput struct {
	WinnerTeamID string             `json:"winnerTeamId"`
	TeamAScore   int                `json:"teamAScore"`
	TeamBScore   int                `json:"teamBScore"`
	MapScores    []bracket.MapScore `json:"mapScores"`
}

type Submission struct {
	AlreadyCompleted bool   `json:"alreadyCompleted"`
	NextMatchID      string `json:"nextMatchId,omitempty"`
}

// SubmitResult completes a match and progresses it. Repeating the recorded
// winner is a no-op; naming another winner is a conflict.
func SubmitResult(s *Snapshot, matchID string, in ResultInput, now time.Time) (Submission, error) {
	m := s.Match(matchID)
	if m == nil {
		return Submission{}, ErrMatchNotFound
	}
	if m.IsCompleted() {
		if m.WinnerTeamID != nil && *m.WinnerTeamID == in.WinnerTeamID {
			return Submission{AlreadyCompleted: true}, nil
		}
		return Submission{}, ErrResultConflict
	}
	if s.Tournament.Decided() {
		return Submission{}, ErrTournamentDecided
	}
	if !m.HasBothTeams() {
		return Submission{}, ErrMatchNotReady
	}
	side := m.SideOf(in.WinnerTeamID)
	if side == bracket.SideNone {
		return Submission{}, ErrWinnerNotInMatch
	}

	a, b := in.TeamAScore, in.TeamBScore
	if a == 0 && b == 0 {
		if side == bracket.SideA {
			a = 1
		} else {
			b = 1
		}
	}
	win, lose := a, b
	if side == bracket.SideB {
		win, lose = b, a
	}
	if a < 0 || b < 0 || win <= lose {
		return Submission{}, ErrInvalidScore
	}

	m.Complete(side, a, b, now)
	m.MapScores = in.MapScores
	s.Touch(m)

	e := newEngine(s, now)
	e.enqueue(matchID)
	e.run()
	return Submission{NextMatchID: e.first}, nil
}
