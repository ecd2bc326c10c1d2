package bracket

import (
	"time"

	"github.com/google/uuid"
)

type TournamentStatus string

const (
	TournamentRegistration TournamentStatus = "registration"
	TournamentStarted      TournamentStatus = "started"
	TournamentCompleted    TournamentStatus = "completed"
)

type BracketType string

const (
	SingleElimination BracketType = "single_elimination"
	DoubleElimination BracketType = "double_elimination"
	GroupPlayoff      BracketType = "group_playoff"
)

func (t BracketType) Valid() bool {
	switch t {
	case SingleElimination, DoubleElimination, GroupPlayoff:
		return true
	}
	return false
}

// TerminalStage is the stage whose final decides the champion.
func (t BracketType) TerminalStage() Stage {
	switch t {
	case DoubleElimination:
		return StageGrandFinal
	case GroupPlayoff:
		return StagePlayoff
	default:
		return StageSingle
	}
}

type Requirements struct {
	MinElo     int `json:"minElo"`
	MinMatches int `json:"minMatches"`
}

type Tournament struct {
	ID              uuid.UUID        `json:"id"`
	Name            string           `json:"name"`
	Status          TournamentStatus `json:"status"`
	BracketType     BracketType      `json:"bracketType"`
	TeamFormat      string           `json:"teamFormat"`
	MaxTeams        int              `json:"maxTeams"`
	RegisteredTeams int              `json:"registeredTeams"`
	Requirements    Requirements     `json:"requirements"`
	MapPool         []string         `json:"mapPool"`
	BestOf          int              `json:"bestOf"`

	StartsAt *int64 `json:"startsAt"`
	EndsAt   *int64 `json:"endsAt"`

	Champion      *TeamSnapshot `json:"champion"`
	UpperChampion *TeamSnapshot `json:"upperChampion,omitempty"`
	LowerChampion *TeamSnapshot `json:"lowerChampion,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Decided reports whether the tournament reached a terminal state, with or
// without a champion.
func (t *Tournament) Decided() bool {
	return t.EndsAt != nil
}

// Finish records the terminal outcome. A nil champion is the no-winner case.
func (t *Tournament) Finish(champion *TeamSnapshot, now time.Time) {
	t.Champion = champion.Clone()
	at := now.UnixMilli()
	t.EndsAt = &at
	t.Status = TournamentCompleted
}

// ClearOutcome drops every derived result field, used when a match is reset.
func (t *Tournament) ClearOutcome() {
	t.Champion = nil
	t.UpperChampion = nil
	t.LowerChampion = nil
	t.EndsAt = nil
	if t.Status == TournamentCompleted {
		t.Status = TournamentStarted
	}
}
