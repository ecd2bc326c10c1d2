package bracket

import (
	"time"

	"github.com/google/uuid"
)

type MatchStatus string

const (
	MatchWaiting   MatchStatus = "waiting"
	MatchPending   MatchStatus = "pending"
	MatchCompleted MatchStatus = "completed"
)

type Stage string

const (
	StageSingle     Stage = "single"
	StageUpper      Stage = "upper"
	StageLower      Stage = "lower"
	StageGrandFinal Stage = "grand_final"
	StagePlayoff    Stage = "playoff"
	StageGroup      Stage = "group"
)

type ForfeitType string

const (
	ForfeitReadyTimeout     ForfeitType = "ready_timeout"
	ForfeitReadyTimeoutBoth ForfeitType = "ready_timeout_both"
	ForfeitOpponentAbsent   ForfeitType = "opponent_absent"
	ForfeitDouble           ForfeitType = "double_forfeit"
)

type Forfeit struct {
	Type           ForfeitType `json:"type"`
	LoserTeamID    string      `json:"loserTeamId,omitempty"`
	SourceMatchIDs []string    `json:"sourceMatchIds,omitempty"`
	At             int64       `json:"at"`
}

type MapScore struct {
	Map        string `json:"map"`
	TeamAScore int    `json:"teamAScore"`
	TeamBScore int    `json:"teamBScore"`
}

// Side addresses one of the two slots of a match.
type Side int

const (
	SideNone Side = iota
	SideA
	SideB
)

func (s Side) Opposite() Side {
	switch s {
	case SideA:
		return SideB
	case SideB:
		return SideA
	}
	return SideNone
}

type Match struct {
	ID           string      `json:"id"`
	TournamentID uuid.UUID   `json:"tournamentId"`
	Round        int         `json:"round"`
	Stage        Stage       `json:"stage"`
	Group        string      `json:"group,omitempty"`
	Status       MatchStatus `json:"status"`

	TeamA *TeamSnapshot `json:"teamA"`
	TeamB *TeamSnapshot `json:"teamB"`

	WinnerTeamID *string       `json:"winnerTeamId"`
	Winner       *TeamSnapshot `json:"winner"`
	Loser        *TeamSnapshot `json:"loser"`
	TeamAScore   int           `json:"teamAScore"`
	TeamBScore   int           `json:"teamBScore"`
	BestOf       int           `json:"bestOf"`
	MapScores    []MapScore    `json:"mapScores"`

	ScheduledAt *int64      `json:"scheduledAt"`
	ReadyCheck  *ReadyCheck `json:"readyCheck"`
	Veto        *VetoState  `json:"veto"`
	Forfeit     *Forfeit    `json:"forfeit"`

	Bye         bool   `json:"bye,omitempty"`
	CompletedAt *int64 `json:"completedAt,omitempty"`
}

func (m *Match) Team(side Side) *TeamSnapshot {
	switch side {
	case SideA:
		return m.TeamA
	case SideB:
		return m.TeamB
	}
	return nil
}

func (m *Match) SetTeam(side Side, team *TeamSnapshot) {
	switch side {
	case SideA:
		m.TeamA = team.Clone()
	case SideB:
		m.TeamB = team.Clone()
	}
}

// SideOf reports which slot holds teamID.
func (m *Match) SideOf(teamID string) Side {
	switch {
	case teamID == "":
		return SideNone
	case m.TeamA.ID() == teamID:
		return SideA
	case m.TeamB.ID() == teamID:
		return SideB
	}
	return SideNone
}

func (m *Match) HasBothTeams() bool {
	return m.TeamA != nil && m.TeamB != nil
}

func (m *Match) IsCompleted() bool {
	return m.Status == MatchCompleted
}

// IsDoubleForfeit reports a completed match that produced no winner.
func (m *Match) IsDoubleForfeit() bool {
	return m.IsCompleted() && m.WinnerTeamID == nil
}

// Playable is a pending match with both sides filled.
func (m *Match) Playable() bool {
	return m.Status == MatchPending && m.HasBothTeams()
}

// RefreshStatus derives waiting/pending from the filled slots. Completed
// matches are left alone.
func (m *Match) RefreshStatus() {
	if m.IsCompleted() {
		return
	}
	if m.HasBothTeams() {
		m.Status = MatchPending
	} else {
		m.Status = MatchWaiting
	}
}

// Complete records side as the winner.
func (m *Match) Complete(side Side, scoreA, scoreB int, now time.Time) {
	winner := m.Team(side)
	loser := m.Team(side.Opposite())
	id := winner.ID()
	at := now.UnixMilli()

	m.Status = MatchCompleted
	m.WinnerTeamID = &id
	m.Winner = winner.Clone()
	m.Loser = loser.Clone()
	m.TeamAScore = scoreA
	m.TeamBScore = scoreB
	m.CompletedAt = &at
}

// CompleteWithoutWinner records a double forfeit.
func (m *Match) CompleteWithoutWinner(forfeit *Forfeit, now time.Time) {
	at := now.UnixMilli()
	m.Status = MatchCompleted
	m.WinnerTeamID = nil
	m.Winner = nil
	m.Loser = nil
	m.TeamAScore = 0
	m.TeamBScore = 0
	m.Forfeit = forfeit
	m.CompletedAt = &at
}

// ClearResult drops every result field and re-derives the status.
func (m *Match) ClearResult() {
	m.Status = MatchWaiting
	m.WinnerTeamID = nil
	m.Winner = nil
	m.Loser = nil
	m.TeamAScore = 0
	m.TeamBScore = 0
	m.MapScores = nil
	m.Forfeit = nil
	m.ReadyCheck = nil
	m.Veto = nil
	m.Bye = false
	m.CompletedAt = nil
	m.RefreshStatus()
}

// LoserTeamID is the id of the losing side of a decided match.
func (m *Match) LoserTeamID() string {
	if m.Loser != nil {
		return m.Loser.TeamID
	}
	if m.Forfeit != nil {
		return m.Forfeit.LoserTeamID
	}
	return ""
}
