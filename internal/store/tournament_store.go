package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
	"github.com/AdamBeresnev/op-tournaments/internal/progression"
)

var ErrNotFound = errors.New("not found")

type TournamentStore struct {
	db *sqlx.DB
}

func NewTournamentStore(db *sqlx.DB) *TournamentStore {
	return &TournamentStore{db: db}
}

// DB exposes the handle for read-only queries outside a transaction.
func (s *TournamentStore) DB() *sqlx.DB {
	return s.db
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (s *TournamentStore) CreateTournament(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO tournaments (id, name, status, bracket_type, team_format, max_teams, registered_teams, requirements, map_pool, best_of, starts_at, ends_at, champion, upper_champion, lower_champion, created_at)
		VALUES (:id, :name, :status, :bracket_type, :team_format, :max_teams, :registered_teams, :requirements, :map_pool, :best_of, :starts_at, :ends_at, :champion, :upper_champion, :lower_champion, :created_at)`, newTournamentRow(tournament))
	return err
}

func (s *TournamentStore) UpdateTournament(ctx context.Context, tx *sqlx.Tx, tournament *bracket.Tournament) error {
	_, err := tx.NamedExecContext(ctx, `UPDATE tournaments SET
		name = :name, status = :status, registered_teams = :registered_teams, map_pool = :map_pool, best_of = :best_of,
		starts_at = :starts_at, ends_at = :ends_at, champion = :champion, upper_champion = :upper_champion, lower_champion = :lower_champion
		WHERE id = :id`, newTournamentRow(tournament))
	return err
}

func (s *TournamentStore) GetTournament(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (*bracket.Tournament, error) {
	var row tournamentRow
	err := sqlx.GetContext(ctx, q, &row, "SELECT * FROM tournaments WHERE id = ?", id)
	if err != nil {
		return nil, notFound(err)
	}
	return row.tournament(), nil
}

func (s *TournamentStore) ListTournamentsByStatus(ctx context.Context, status bracket.TournamentStatus) ([]*bracket.Tournament, error) {
	var rows []tournamentRow
	err := s.db.SelectContext(ctx, &rows, "SELECT * FROM tournaments WHERE status = ? ORDER BY created_at ASC", status)
	if err != nil {
		return nil, err
	}
	tournaments := make([]*bracket.Tournament, 0, len(rows))
	for _, r := range rows {
		tournaments = append(tournaments, r.tournament())
	}
	return tournaments, nil
}

func (s *TournamentStore) CreateRegistration(ctx context.Context, tx *sqlx.Tx, reg *bracket.Registration) error {
	_, err := tx.NamedExecContext(ctx, `INSERT INTO registrations (id, tournament_id, team_id, name, avatar_url, captain_uid, member_uids, avg_elo_snapshot, members, created_at)
		VALUES (:id, :tournament_id, :team_id, :name, :avatar_url, :captain_uid, :member_uids, :avg_elo_snapshot, :members, :created_at)`, newRegistrationRow(reg))
	return err
}

func (s *TournamentStore) GetRegistrations(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID) ([]bracket.Registration, error) {
	var rows []registrationRow
	err := sqlx.SelectContext(ctx, q, &rows, "SELECT * FROM registrations WHERE tournament_id = ? ORDER BY created_at ASC, rowid ASC", tournamentID)
	if err != nil {
		return nil, err
	}
	regs := make([]bracket.Registration, 0, len(rows))
	for _, r := range rows {
		regs = append(regs, r.registration())
	}
	return regs, nil
}

const upsertMatchQuery = `INSERT INTO matches (tournament_id, id, round, stage, group_key, status, team_a, team_b, winner_team_id, winner, loser, team_a_score, team_b_score, best_of, map_scores, scheduled_at, ready_check, veto, forfeit, bye, completed_at)
	VALUES (:tournament_id, :id, :round, :stage, :group_key, :status, :team_a, :team_b, :winner_team_id, :winner, :loser, :team_a_score, :team_b_score, :best_of, :map_scores, :scheduled_at, :ready_check, :veto, :forfeit, :bye, :completed_at)
	ON CONFLICT (tournament_id, id) DO UPDATE SET
		round = excluded.round, stage = excluded.stage, group_key = excluded.group_key, status = excluded.status,
		team_a = excluded.team_a, team_b = excluded.team_b, winner_team_id = excluded.winner_team_id,
		winner = excluded.winner, loser = excluded.loser, team_a_score = excluded.team_a_score, team_b_score = excluded.team_b_score,
		best_of = excluded.best_of, map_scores = excluded.map_scores, scheduled_at = excluded.scheduled_at,
		ready_check = excluded.ready_check, veto = excluded.veto, forfeit = excluded.forfeit, bye = excluded.bye,
		completed_at = excluded.completed_at`

// UpsertMatches writes every match, inserting new ones and replacing
// existing ones.
func (s *TournamentStore) UpsertMatches(ctx context.Context, tx *sqlx.Tx, matches []bracket.Match) error {
	for i := range matches {
		if _, err := tx.NamedExecContext(ctx, upsertMatchQuery, newMatchRow(&matches[i])); err != nil {
			return fmt.Errorf("failed to save match %s: %w", matches[i].ID, err)
		}
	}
	return nil
}

func (s *TournamentStore) DeleteMatch(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID, id string) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM matches WHERE tournament_id = ? AND id = ?", tournamentID, id)
	return err
}

func (s *TournamentStore) GetMatches(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID) ([]bracket.Match, error) {
	var rows []matchRow
	err := sqlx.SelectContext(ctx, q, &rows, "SELECT * FROM matches WHERE tournament_id = ? ORDER BY stage ASC, round ASC, id ASC", tournamentID)
	if err != nil {
		return nil, err
	}
	matches := make([]bracket.Match, 0, len(rows))
	for _, r := range rows {
		matches = append(matches, r.match())
	}
	return matches, nil
}

func (s *TournamentStore) GetMatch(ctx context.Context, q sqlx.QueryerContext, tournamentID uuid.UUID, id string) (*bracket.Match, error) {
	var row matchRow
	err := sqlx.GetContext(ctx, q, &row, "SELECT * FROM matches WHERE tournament_id = ? AND id = ?", tournamentID, id)
	if err != nil {
		return nil, notFound(err)
	}
	m := row.match()
	return &m, nil
}

// LoadSnapshot reads a tournament and all of its matches.
func (s *TournamentStore) LoadSnapshot(ctx context.Context, tx *sqlx.Tx, tournamentID uuid.UUID) (*progression.Snapshot, error) {
	t, err := s.GetTournament(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tournament: %w", err)
	}
	matches, err := s.GetMatches(ctx, tx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get matches: %w", err)
	}
	return progression.NewSnapshot(t, matches), nil
}

// SaveSnapshot writes back whatever the engine changed.
func (s *TournamentStore) SaveSnapshot(ctx context.Context, tx *sqlx.Tx, snap *progression.Snapshot) error {
	if snap.TournamentDirty() {
		if err := s.UpdateTournament(ctx, tx, snap.Tournament); err != nil {
			return fmt.Errorf("failed to update tournament: %w", err)
		}
	}
	for _, id := range snap.Deleted() {
		if err := s.DeleteMatch(ctx, tx, snap.Tournament.ID, id); err != nil {
			return fmt.Errorf("failed to delete match %s: %w", id, err)
		}
	}
	return s.UpsertMatches(ctx, tx, snap.Dirty())
}
