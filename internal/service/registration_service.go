package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
)

type MemberInput struct {
	UID       string `json:"uid"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl"`
	Elo       int    `json:"elo"`
	Matches   int    `json:"matches"`
}

type RegistrationInput struct {
	TeamID     string        `json:"teamId"`
	Name       string        `json:"name"`
	AvatarURL  string        `json:"avatarUrl"`
	CaptainUID string        `json:"captainUid"`
	Members    []MemberInput `json:"members"`
}

// Register signs a team up, freezing its roster and elo as they are now.
func (s *TournamentService) Register(ctx context.Context, tournamentID uuid.UUID, in RegistrationInput) (*bracket.Registration, error) {
	reg, err := newRegistration(tournamentID, in)
	if err != nil {
		return nil, err
	}
	reg.CreatedAt = s.now().UTC()

	err = s.store.RunInTx(ctx, func(tx *sqlx.Tx) error {
		tournament, err := s.store.GetTournament(ctx, tx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to get tournament: %w", err)
		}
		if tournament.Status != bracket.TournamentRegistration {
			return ErrRegistrationClosed
		}
		if tournament.MaxTeams > 0 && tournament.RegisteredTeams >= tournament.MaxTeams {
			return ErrTournamentFull
		}
		if err := checkRequirements(tournament.Requirements, reg, in.Members); err != nil {
			return err
		}

		existing, err := s.store.GetRegistrations(ctx, tx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to get registrations: %w", err)
		}
		for _, r := range existing {
			if r.TeamID == reg.TeamID {
				return ErrAlreadyRegistered
			}
		}

		if err := s.store.CreateRegistration(ctx, tx, reg); err != nil {
			return fmt.Errorf("failed to create registration: %w", err)
		}
		tournament.RegisteredTeams = len(existing) + 1
		return s.store.UpdateTournament(ctx, tx, tournament)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, tournamentID.String())
	slog.Info("team registered", "tournamentId", tournamentID, "teamId", reg.TeamID, "avgElo", reg.AvgEloSnapshot)
	return reg, nil
}

func newRegistration(tournamentID uuid.UUID, in RegistrationInput) (*bracket.Registration, error) {
	if len(in.Members) == 0 {
		return nil, fmt.Errorf("%w: a registration needs at least one member", ErrInvalidInput)
	}

	members := make([]bracket.MemberSnapshot, 0, len(in.Members))
	uids := make([]string, 0, len(in.Members))
	for _, m := range in.Members {
		if strings.TrimSpace(m.UID) == "" {
			return nil, fmt.Errorf("%w: member uid is required", ErrInvalidInput)
		}
		members = append(members, bracket.MemberSnapshot{
			UID:       m.UID,
			Name:      m.Name,
			AvatarURL: m.AvatarURL,
			Elo:       m.Elo,
		})
		uids = append(uids, m.UID)
	}

	captain := in.CaptainUID
	if captain == "" {
		captain = uids[0]
	}
	teamID := in.TeamID
	if teamID == "" {
		// Solo entries play as themselves.
		teamID = captain
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = members[0].Name
	}

	return &bracket.Registration{
		ID:             uuid.New(),
		TournamentID:   tournamentID,
		TeamID:         teamID,
		Name:           name,
		AvatarURL:      in.AvatarURL,
		CaptainUID:     captain,
		MemberUIDs:     uids,
		AvgEloSnapshot: bracket.AverageElo(members),
		Members:        members,
	}, nil
}

func checkRequirements(req bracket.Requirements, reg *bracket.Registration, members []MemberInput) error {
	if req.MinElo > 0 && reg.AvgEloSnapshot < req.MinElo {
		return fmt.Errorf("%w: average elo %d is below %d", ErrRequirementsNotMet, reg.AvgEloSnapshot, req.MinElo)
	}
	if req.MinMatches > 0 {
		for _, m := range members {
			if m.Matches < req.MinMatches {
				return fmt.Errorf("%w: %s has played %d of %d matches", ErrRequirementsNotMet, m.UID, m.Matches, req.MinMatches)
			}
		}
	}
	return nil
}
