package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
	"github.com/AdamBeresnev/op-tournaments/internal/utils"
)

// buildInitialMatches lays out the first stage of a tournament.
func buildInitialMatches(t *bracket.Tournament, regs []bracket.Registration) []bracket.Match {
	var matches []bracket.Match
	switch t.BracketType {
	case bracket.SingleElimination:
		matches = bracket.BuildEliminationTreeMatches(regs, bracket.StageSingle, bracket.PrefixFor(bracket.StageSingle))
	case bracket.DoubleElimination:
		matches = bracket.BuildEliminationTreeMatches(regs, bracket.StageUpper, bracket.PrefixFor(bracket.StageUpper))
	case bracket.GroupPlayoff:
		matches = bracket.BuildGroupMatches(bracket.BuildGroups(regs))
	}

	for i := range matches {
		matches[i].TournamentID = t.ID
		matches[i].BestOf = t.BestOf
	}
	return matches
}

// GenerateBracket closes registration and creates the opening matches.
func (s *TournamentService) GenerateBracket(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match

	err := s.store.RunInTx(ctx, func(tx *sqlx.Tx) error {
		tournament, err := s.store.GetTournament(ctx, tx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to get tournament: %w", err)
		}
		if tournament.Status != bracket.TournamentRegistration {
			return ErrBracketGenerated
		}

		regs, err := s.store.GetRegistrations(ctx, tx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to get registrations: %w", err)
		}
		if len(regs) < 2 {
			return ErrNotEnoughTeams
		}

		matches = buildInitialMatches(tournament, regs)
		if err := s.store.UpsertMatches(ctx, tx, matches); err != nil {
			return err
		}

		tournament.Status = bracket.TournamentStarted
		tournament.StartsAt = utils.Ptr(s.now().UnixMilli())
		return s.store.UpdateTournament(ctx, tx, tournament)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, tournamentID.String())
	slog.Info("bracket generated", "tournamentId", tournamentID, "matches", len(matches))
	return matches, nil
}

// GeneratePlayoff seeds the playoff tree from the top of every finished
// group.
func (s *TournamentService) GeneratePlayoff(ctx context.Context, tournamentID uuid.UUID) ([]bracket.Match, error) {
	var matches []bracket.Match
	now := s.now()

	err := s.store.RunInTx(ctx, func(tx *sqlx.Tx) error {
		snap, err := s.store.LoadSnapshot(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		t := snap.Tournament
		if t.BracketType != bracket.GroupPlayoff {
			return ErrNotGroupPlayoff
		}
		if t.Status == bracket.TournamentRegistration {
			return ErrGroupsIncomplete
		}
		if len(snap.StageMatches(bracket.StagePlayoff)) > 0 || t.Decided() {
			return ErrPlayoffGenerated
		}

		groupMatches := snap.StageMatches(bracket.StageGroup)
		byGroup := map[string][]bracket.Match{}
		for _, m := range groupMatches {
			if !m.IsCompleted() {
				return ErrGroupsIncomplete
			}
			byGroup[m.Group] = append(byGroup[m.Group], *m)
		}

		regs, err := s.store.GetRegistrations(ctx, tx, tournamentID)
		if err != nil {
			return fmt.Errorf("failed to get registrations: %w", err)
		}
		byTeam := make(map[string]bracket.Registration, len(regs))
		for _, r := range regs {
			byTeam[r.TeamID] = r
		}

		keys := make([]string, 0, len(byGroup))
		for k := range byGroup {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		var qualifiers []bracket.Registration
		for _, k := range keys {
			ranked := bracket.RankGroup(byGroup[k], byTeam)
			for _, row := range ranked[:min(len(ranked), bracket.QualifiersPerGroup)] {
				qualifiers = append(qualifiers, row.Registration)
			}
		}

		if len(qualifiers) < 2 {
			var champion *bracket.TeamSnapshot
			if len(qualifiers) == 1 {
				champion = qualifiers[0].Snapshot()
			}
			t.Finish(champion, now)
			snap.TouchTournament()
			return s.store.SaveSnapshot(ctx, tx, snap)
		}

		matches = bracket.BuildEliminationTreeMatches(qualifiers, bracket.StagePlayoff, bracket.PrefixFor(bracket.StagePlayoff))
		for i := range matches {
			matches[i].TournamentID = t.ID
			matches[i].BestOf = t.BestOf
			snap.Put(matches[i])
		}
		return s.store.SaveSnapshot(ctx, tx, snap)
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, tournamentID.String())
	slog.Info("playoff generated", "tournamentId", tournamentID, "matches", len(matches))
	return matches, nil
}
