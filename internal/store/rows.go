package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
)

type tournamentRow struct {
	ID              uuid.UUID                   `db:"id"`
	Name            string                      `db:"name"`
	Status          bracket.TournamentStatus    `db:"status"`
	BracketType     bracket.BracketType         `db:"bracket_type"`
	TeamFormat      string                      `db:"team_format"`
	MaxTeams        int                         `db:"max_teams"`
	RegisteredTeams int                         `db:"registered_teams"`
	Requirements    JSON[bracket.Requirements]  `db:"requirements"`
	MapPool         JSON[[]string]              `db:"map_pool"`
	BestOf          int                         `db:"best_of"`
	StartsAt        *int64                      `db:"starts_at"`
	EndsAt          *int64                      `db:"ends_at"`
	Champion        JSON[*bracket.TeamSnapshot] `db:"champion"`
	UpperChampion   JSON[*bracket.TeamSnapshot] `db:"upper_champion"`
	LowerChampion   JSON[*bracket.TeamSnapshot] `db:"lower_champion"`
	CreatedAt       time.Time                   `db:"created_at"`
}

func newTournamentRow(t *bracket.Tournament) tournamentRow {
	pool := t.MapPool
	if pool == nil {
		pool = []string{}
	}
	return tournamentRow{
		ID:              t.ID,
		Name:            t.Name,
		Status:          t.Status,
		BracketType:     t.BracketType,
		TeamFormat:      t.TeamFormat,
		MaxTeams:        t.MaxTeams,
		RegisteredTeams: t.RegisteredTeams,
		Requirements:    JSON[bracket.Requirements]{t.Requirements},
		MapPool:         JSON[[]string]{pool},
		BestOf:          t.BestOf,
		StartsAt:        t.StartsAt,
		EndsAt:          t.EndsAt,
		Champion:        JSON[*bracket.TeamSnapshot]{t.Champion},
		UpperChampion:   JSON[*bracket.TeamSnapshot]{t.UpperChampion},
		LowerChampion:   JSON[*bracket.TeamSnapshot]{t.LowerChampion},
		CreatedAt:       t.CreatedAt,
	}
}

func (r tournamentRow) tournament() *bracket.Tournament {
	return &bracket.Tournament{
		ID:              r.ID,
		Name:            r.Name,
		Status:          r.Status,
		BracketType:     r.BracketType,
		TeamFormat:      r.TeamFormat,
		MaxTeams:        r.MaxTeams,
		RegisteredTeams: r.RegisteredTeams,
		Requirements:    r.Requirements.V,
		MapPool:         r.MapPool.V,
		BestOf:          r.BestOf,
		StartsAt:        r.StartsAt,
		EndsAt:          r.EndsAt,
		Champion:        r.Champion.V,
		UpperChampion:   r.UpperChampion.V,
		LowerChampion:   r.LowerChampion.V,
		CreatedAt:       r.CreatedAt,
	}
}

type registrationRow struct {
	ID             uuid.UUID                      `db:"id"`
	TournamentID   uuid.UUID                      `db:"tournament_id"`
	TeamID         string                         `db:"team_id"`
	Name           string                         `db:"name"`
	AvatarURL      string                         `db:"avatar_url"`
	CaptainUID     string                         `db:"captain_uid"`
	MemberUIDs     JSON[[]string]                 `db:"member_uids"`
	AvgEloSnapshot int                            `db:"avg_elo_snapshot"`
	Members        JSON[[]bracket.MemberSnapshot] `db:"members"`
	CreatedAt      time.Time                      `db:"created_at"`
}

func newRegistrationRow(r *bracket.Registration) registrationRow {
	uids := r.MemberUIDs
	if uids == nil {
		uids = []string{}
	}
	members := r.Members
	if members == nil {
		members = []bracket.MemberSnapshot{}
	}
	return registrationRow{
		ID:             r.ID,
		TournamentID:   r.TournamentID,
		TeamID:         r.TeamID,
		Name:           r.Name,
		AvatarURL:      r.AvatarURL,
		CaptainUID:     r.CaptainUID,
		MemberUIDs:     JSON[[]string]{uids},
		AvgEloSnapshot: r.AvgEloSnapshot,
		Members:        JSON[[]bracket.MemberSnapshot]{members},
		CreatedAt:      r.CreatedAt,
	}
}

func (r registrationRow) registration() bracket.Registration {
	return bracket.Registration{
		ID:             r.ID,
		TournamentID:   r.TournamentID,
		TeamID:         r.TeamID,
		Name:           r.Name,
		AvatarURL:      r.AvatarURL,
		CaptainUID:     r.CaptainUID,
		MemberUIDs:     r.MemberUIDs.V,
		AvgEloSnapshot: r.AvgEloSnapshot,
		Members:        r.Members.V,
		CreatedAt:      r.CreatedAt,
	}
}

type matchRow struct {
	TournamentID uuid.UUID                   `db:"tournament_id"`
	ID           string                      `db:"id"`
	Round        int                         `db:"round"`
	Stage        bracket.Stage               `db:"stage"`
	Group        string                      `db:"group_key"`
	Status       bracket.MatchStatus         `db:"status"`
	TeamA        JSON[*bracket.TeamSnapshot] `db:"team_a"`
	TeamB        JSON[*bracket.TeamSnapshot] `db:"team_b"`
	WinnerTeamID *string                     `db:"winner_team_id"`
	Winner       JSON[*bracket.TeamSnapshot] `db:"winner"`
	Loser        JSON[*bracket.TeamSnapshot] `db:"loser"`
	TeamAScore   int                         `db:"team_a_score"`
	TeamBScore   int                         `db:"team_b_score"`
	BestOf       int                         `db:"best_of"`
	MapScores    JSON[[]bracket.MapScore]    `db:"map_scores"`
	ScheduledAt  *int64                      `db:"scheduled_at"`
	ReadyCheck   JSON[*bracket.ReadyCheck]   `db:"ready_check"`
	Veto         JSON[*bracket.VetoState]    `db:"veto"`
	Forfeit      JSON[*bracket.Forfeit]      `db:"forfeit"`
	Bye          bool                        `db:"bye"`
	CompletedAt  *int64                      `db:"completed_at"`
}

func newMatchRow(m *bracket.Match) matchRow {
	return matchRow{
		TournamentID: m.TournamentID,
		ID:           m.ID,
		Round:        m.Round,
		Stage:        m.Stage,
		Group:        m.Group,
		Status:       m.Status,
		TeamA:        JSON[*bracket.TeamSnapshot]{m.TeamA},
		TeamB:        JSON[*bracket.TeamSnapshot]{m.TeamB},
		WinnerTeamID: m.WinnerTeamID,
		Winner:       JSON[*bracket.TeamSnapshot]{m.Winner},
		Loser:        JSON[*bracket.TeamSnapshot]{m.Loser},
		TeamAScore:   m.TeamAScore,
		TeamBScore:   m.TeamBScore,
		BestOf:       m.BestOf,
		MapScores:    JSON[[]bracket.MapScore]{m.MapScores},
		ScheduledAt:  m.ScheduledAt,
		ReadyCheck:   JSON[*bracket.ReadyCheck]{m.ReadyCheck},
		Veto:         JSON[*bracket.VetoState]{m.Veto},
		Forfeit:      JSON[*bracket.Forfeit]{m.Forfeit},
		Bye:          m.Bye,
		CompletedAt:  m.CompletedAt,
	}
}

func (r matchRow) match() bracket.Match {
	return bracket.Match{
		ID:           r.ID,
		TournamentID: r.TournamentID,
		Round:        r.Round,
		Stage:        r.Stage,
		Group:        r.Group,
		Status:       r.Status,
		TeamA:        r.TeamA.V,
		TeamB:        r.TeamB.V,
		WinnerTeamID: r.WinnerTeamID,
		Winner:       r.Winner.V,
		Loser:        r.Loser.V,
		TeamAScore:   r.TeamAScore,
		TeamBScore:   r.TeamBScore,
		BestOf:       r.BestOf,
		MapScores:    r.MapScores.V,
		ScheduledAt:  r.ScheduledAt,
		ReadyCheck:   r.ReadyCheck.V,
		Veto:         r.Veto.V,
		Forfeit:      r.Forfeit.V,
		Bye:          r.Bye,
		CompletedAt:  r.CompletedAt,
	}
}
