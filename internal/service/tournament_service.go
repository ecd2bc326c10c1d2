package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
	"github.com/AdamBeresnev/op-tournaments/internal/cache"
	"github.com/AdamBeresnev/op-tournaments/internal/store"
	"github.com/AdamBeresnev/op-tournaments/internal/veto"
	"github.com/AdamBeresnev/op-tournaments/views"
)

type TournamentService struct {
	db    *sqlx.DB
	store *store.TournamentStore
	options
}

func NewTournamentService(db *sqlx.DB, store *store.TournamentStore, opts ...Option) *TournamentService {
	return &TournamentService{db: db, store: store, options: newOptions(opts)}
}

type CreateTournamentInput struct {
	Name         string               `json:"name"`
	BracketType  bracket.BracketType  `json:"bracketType"`
	TeamFormat   string               `json:"teamFormat"`
	MaxTeams     int                  `json:"maxTeams"`
	Requirements bracket.Requirements `json:"requirements"`
	MapPool      []string             `json:"mapPool"`
	BestOf       int                  `json:"bestOf"`
}

func (s *TournamentService) CreateTournament(ctx context.Context, in CreateTournamentInput) (*bracket.Tournament, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !in.BracketType.Valid() {
		return nil, fmt.Errorf("%w: unknown bracket type %q", ErrInvalidInput, in.BracketType)
	}
	if in.MaxTeams < 0 || in.MaxTeams == 1 {
		return nil, fmt.Errorf("%w: maxTeams must be at least 2", ErrInvalidInput)
	}

	bestOf := in.BestOf
	if bestOf == 0 {
		bestOf = s.bestOf
	}
	if !veto.ValidBestOf(bestOf) {
		return nil, veto.ErrBestOfInvalid
	}

	pool := dedupe(in.MapPool)
	if len(pool) == 0 {
		pool = slices.Clone(s.mapPool)
	}
	if len(pool) < bestOf {
		return nil, veto.ErrMapPoolTooSmall
	}

	tournament := &bracket.Tournament{
		ID:           uuid.New(),
		Name:         name,
		Status:       bracket.TournamentRegistration,
		BracketType:  in.BracketType,
		TeamFormat:   in.TeamFormat,
		MaxTeams:     in.MaxTeams,
		Requirements: in.Requirements,
		MapPool:      pool,
		BestOf:       bestOf,
		CreatedAt:    s.now().UTC(),
	}

	err := s.store.RunInTx(ctx, func(tx *sqlx.Tx) error {
		return s.store.CreateTournament(ctx, tx, tournament)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}

	slog.Info("tournament created", "tournamentId", tournament.ID, "bracketType", tournament.BracketType)
	return tournament, nil
}

func dedupe(items []string) []string {
	var out []string
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item != "" && !slices.Contains(out, item) {
			out = append(out, item)
		}
	}
	return out
}

func (s *TournamentService) GetTournament(ctx context.Context, id uuid.UUID) (*bracket.Tournament, error) {
	return s.store.GetTournament(ctx, s.db, id)
}

// BracketView is everything a client needs to draw a tournament.
type BracketView struct {
	Tournament    *bracket.Tournament            `json:"tournament"`
	Registrations []bracket.Registration         `json:"registrations"`
	Matches       []bracket.Match                `json:"matches"`
	Standings     map[string][]bracket.RankedRow `json:"standings,omitempty"`
	Layout        []views.Section                `json:"layout"`
}

// GetBracket returns the bracket view, served from the cache while fresh.
func (s *TournamentService) GetBracket(ctx context.Context, id uuid.UUID) (*BracketView, error) {
	key := cache.BracketKey(id.String())
	if cached, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var view BracketView
		if err := json.Unmarshal(cached, &view); err == nil {
			return &view, nil
		}
	} else if err != nil {
		slog.Warn("bracket cache read failed", "tournamentId", id, "error", err)
	}

	tournament, err := s.store.GetTournament(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	regs, err := s.store.GetRegistrations(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get registrations: %w", err)
	}
	matches, err := s.store.GetMatches(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}

	view := &BracketView{
		Tournament:    tournament,
		Registrations: regs,
		Matches:       matches,
		Layout:        views.PrepareBracketData(matches),
	}
	if tournament.BracketType == bracket.GroupPlayoff {
		view.Standings = standings(matches, regs)
	}

	if b, err := json.Marshal(view); err == nil {
		_ = s.cache.Set(ctx, key, b, s.cacheTTL)
	}
	return view, nil
}

// standings ranks every group of the group stage.
func standings(matches []bracket.Match, regs []bracket.Registration) map[string][]bracket.RankedRow {
	byTeam := make(map[string]bracket.Registration, len(regs))
	for _, r := range regs {
		byTeam[r.TeamID] = r
	}

	groups := map[string][]bracket.Match{}
	for _, m := range matches {
		if m.Stage == bracket.StageGroup {
			groups[m.Group] = append(groups[m.Group], m)
		}
	}

	out := make(map[string][]bracket.RankedRow, len(groups))
	for key, gm := range groups {
		out[key] = bracket.RankGroup(gm, byTeam)
	}
	return out
}
