package progression

import "errors"

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchNotReady     = errors.New("match does not have both teams")
	ErrMatchNotCompleted = errors.New("match is not completed")
	ErrWinnerNotInMatch  = errors.New("winner is not part of this match")
	ErrResultConflict    = errors.New("match already completed with a different winner")
	ErrInvalidScore      = errors.New("winner score must exceed loser score")
	ErrByeMatch          = errors.New("bye matches cannot be reset")
	ErrTournamentDecided = errors.New("tournament already decided")
)
