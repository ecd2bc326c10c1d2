package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
	"github.com/AdamBeresnev/op-tournaments/internal/progression"
	"github.com/AdamBeresnev/op-tournaments/internal/readycheck"
	"github.com/AdamBeresnev/op-tournaments/internal/store"
	"github.com/AdamBeresnev/op-tournaments/internal/utils"
	"github.com/AdamBeresnev/op-tournaments/internal/veto"
)

type MatchService struct {
	db    *sqlx.DB
	store *store.TournamentStore
	options
}

func NewMatchService(db *sqlx.DB, store *store.TournamentStore, opts ...Option) *MatchService {
	return &MatchService{db: db, store: store, options: newOptions(opts)}
}

// update runs fn against a fresh snapshot and writes back whatever changed.
func (s *MatchService) update(ctx context.Context, tournamentID uuid.UUID, now time.Time, fn func(snap *progression.Snapshot) error) (*progression.Snapshot, error) {
	var (
		result     *progression.Snapshot
		wasDecided bool
	)
	err := s.store.RunInTx(ctx, func(tx *sqlx.Tx) error {
		snap, err := s.store.LoadSnapshot(ctx, tx, tournamentID)
		if err != nil {
			return err
		}
		wasDecided = snap.Tournament.Decided()

		if err := fn(snap); err != nil {
			return err
		}
		result = snap
		if !snap.Changed() {
			return nil
		}
		return s.store.SaveSnapshot(ctx, tx, snap)
	})
	if err != nil {
		return nil, err
	}
	if result.Changed() {
		s.observe(result, now, wasDecided)
		s.invalidate(ctx, tournamentID.String())
	}
	return result, nil
}

func matchOf(snap *progression.Snapshot, matchID string) (*bracket.Match, error) {
	m := snap.Match(matchID)
	if m == nil {
		return nil, progression.ErrMatchNotFound
	}
	return m, nil
}

// GetMatch returns a match brought up to date: a lapsed ready window is
// forfeited and timed out veto turns are played before it is returned.
func (s *MatchService) GetMatch(ctx context.Context, tournamentID uuid.UUID, matchID string) (*bracket.Match, error) {
	snap, err := s.resolve(ctx, tournamentID, matchID)
	if err != nil {
		return nil, err
	}
	m, err := matchOf(snap, matchID)
	if err != nil {
		return nil, err
	}
	out := *m
	return &out, nil
}

func (s *MatchService) resolve(ctx context.Context, tournamentID uuid.UUID, matchID string) (*progression.Snapshot, error) {
	now := s.now()
	return s.update(ctx, tournamentID, now, func(snap *progression.Snapshot) error {
		m, err := matchOf(snap, matchID)
		if err != nil {
			return err
		}
		return s.resolveTimeouts(snap, m, now)
	})
}

// resolveTimeouts applies a lapsed ready window and timed out veto turns to m
// and counts the veto steps that played.
func (s *MatchService) resolveTimeouts(snap *progression.Snapshot, m *bracket.Match, now time.Time) error {
	before := vetoSteps(m)
	if _, err := progression.ResolveTimeouts(snap, m.ID, s.poolFor(snap.Tournament), now); err != nil {
		return err
	}
	s.countVetoSteps(m, before)
	return nil
}

func vetoSteps(m *bracket.Match) int {
	if m.Veto == nil {
		return 0
	}
	return len(m.Veto.History)
}

func (s *MatchService) countVetoSteps(m *bracket.Match, before int) {
	if m.Veto == nil || len(m.Veto.History) <= before {
		return
	}
	for _, e := range m.Veto.History[before:] {
		s.metrics.VetoStep(string(e.Action), e.Auto)
	}
}

// ScheduleMatch sets when a match is played and how many maps it runs. A
// bestOf of zero keeps the current one.
func (s *MatchService) ScheduleMatch(ctx context.Context, tournamentID uuid.UUID, matchID string, at time.Time, bestOf int) (*bracket.Match, error) {
	var out bracket.Match
	_, err := s.update(ctx, tournamentID, s.now(), func(snap *progression.Snapshot) error {
		m, err := matchOf(snap, matchID)
		if err != nil {
			return err
		}
		if m.IsCompleted() || m.Veto != nil {
			return ErrMatchLocked
		}
		if bestOf == 0 {
			bestOf = max(1, m.BestOf)
		}
		if !veto.ValidBestOf(bestOf) {
			return veto.ErrBestOfInvalid
		}
		if len(s.poolFor(snap.Tournament)) < bestOf {
			return veto.ErrMapPoolTooSmall
		}

		m.BestOf = bestOf
		m.ScheduledAt = utils.Ptr(at.UnixMilli())
		m.ReadyCheck = nil
		snap.Touch(m)
		out = *m
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("match scheduled", "tournamentId", tournamentID, "matchId", matchID, "scheduledAt", at, "bestOf", bestOf)
	return &out, nil
}

// SubmitResult records a result and progresses the bracket, then checks the
// champion in a separate pass whose failure never fails the submission.
func (s *MatchService) SubmitResult(ctx context.Context, tournamentID uuid.UUID, matchID string, in progression.ResultInput) (progression.Submission, error) {
	var sub progression.Submission
	now := s.now()
	_, err := s.update(ctx, tournamentID, now, func(snap *progression.Snapshot) error {
		var err error
		sub, err = progression.SubmitResult(snap, matchID, in, now)
		return err
	})
	if err != nil {
		return progression.Submission{}, err
	}

	if sub.AlreadyCompleted {
		slog.Info("result already recorded", "tournamentId", tournamentID, "matchId", matchID, "winnerTeamId", in.WinnerTeamID)
		return sub, nil
	}
	slog.Info("match completed", "tournamentId", tournamentID, "matchId", matchID, "winnerTeamId", in.WinnerTeamID, "nextMatchId", sub.NextMatchID)

	if err := s.Reconcile(ctx, tournamentID); err != nil {
		s.metrics.ReconcileFailed()
		slog.Error("champion reconciliation failed", "tournamentId", tournamentID, "error", err)
	}
	return sub, nil
}

// ResetMatch reopens a completed match and unwinds what it decided.
func (s *MatchService) ResetMatch(ctx context.Context, tournamentID uuid.UUID, matchID string) error {
	_, err := s.update(ctx, tournamentID, s.now(), func(snap *progression.Snapshot) error {
		return progression.Reset(snap, matchID)
	})
	if err != nil {
		return err
	}
	s.metrics.Reset()
	slog.Info("match reset", "tournamentId", tournamentID, "matchId", matchID)
	return nil
}

// Reconcile repairs the champion from the terminal stage.
func (s *MatchService) Reconcile(ctx context.Context, tournamentID uuid.UUID) error {
	now := s.now()
	_, err := s.update(ctx, tournamentID, now, func(snap *progression.Snapshot) error {
		if progression.Reconcile(snap, now) {
			slog.Info("champion reconciled", "tournamentId", tournamentID, "champion", snap.Tournament.Champion.ID())
		}
		return nil
	})
	return err
}

// captainSide finds the side teamID plays on and checks uid captains it.
func captainSide(m *bracket.Match, teamID, uid string) (bracket.Side, error) {
	side := m.SideOf(teamID)
	if side == bracket.SideNone {
		return side, readycheck.ErrNotParticipant
	}
	if m.Team(side).CaptainUID != uid {
		return side, ErrNotCaptain
	}
	return side, nil
}

// MarkReady confirms a team for its match on behalf of its captain. A lapsed
// window is resolved first and stays resolved even when it turns the call
// down.
func (s *MatchService) MarkReady(ctx context.Context, tournamentID uuid.UUID, matchID, teamID, uid string) (*bracket.ReadyCheck, error) {
	var (
		rc       *bracket.ReadyCheck
		rejected error
	)
	now := s.now()
	_, err := s.update(ctx, tournamentID, now, func(snap *progression.Snapshot) error {
		m, err := matchOf(snap, matchID)
		if err != nil {
			return err
		}
		side, err := captainSide(m, teamID, uid)
		if err != nil {
			return err
		}
		if err := s.resolveTimeouts(snap, m, now); err != nil {
			return err
		}

		rc, err = readycheck.MarkReady(m, side, now)
		if err != nil {
			if snap.Changed() {
				rejected = err
				return nil
			}
			return err
		}
		m.ReadyCheck = rc
		snap.Touch(m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rejected != nil {
		return nil, rejected
	}
	slog.Info("team ready", "tournamentId", tournamentID, "matchId", matchID, "teamId", teamID, "status", rc.Status)
	return rc, nil
}

// VetoMove plays a ban or pick for teamID. Rule violations come back as a
// rejected MoveResult; only lookup and authorization failures are errors.
func (s *MatchService) VetoMove(ctx context.Context, tournamentID uuid.UUID, matchID, teamID, uid string, action bracket.VetoAction, mapName string) (veto.MoveResult, error) {
	var res veto.MoveResult
	now := s.now()
	_, err := s.update(ctx, tournamentID, now, func(snap *progression.Snapshot) error {
		m, err := matchOf(snap, matchID)
		if err != nil {
			return err
		}
		if _, err := captainSide(m, teamID, uid); err != nil {
			return err
		}
		if err := s.resolveTimeouts(snap, m, now); err != nil {
			return err
		}
		if m.IsCompleted() {
			res = veto.MoveResult{Error: readycheck.ErrMatchCompleted.Error(), Err: readycheck.ErrMatchCompleted}
			return nil
		}

		before := vetoSteps(m)
		res = veto.ApplyManualVetoMove(m, s.poolFor(snap.Tournament), teamID, uid, action, mapName, now)
		if res.Changed {
			m.Veto = res.Veto
			snap.Touch(m)
			s.countVetoSteps(m, before)
		}
		return nil
	})
	if err != nil {
		return veto.MoveResult{}, err
	}
	if !res.OK {
		slog.Warn("veto move rejected", "tournamentId", tournamentID, "matchId", matchID, "teamId", teamID, "error", res.Error)
	}
	return res, nil
}

// SweepTimeouts resolves every lapsed ready window and veto turn across all
// running tournaments. Reads do the same lazily; the sweep only keeps idle
// matches from lingering.
func (s *MatchService) SweepTimeouts(ctx context.Context) (int, error) {
	tournaments, err := s.store.ListTournamentsByStatus(ctx, bracket.TournamentStarted)
	if err != nil {
		return 0, fmt.Errorf("failed to list tournaments: %w", err)
	}

	total := 0
	for _, t := range tournaments {
		now := s.now()
		var changed []string
		_, err := s.update(ctx, t.ID, now, func(snap *progression.Snapshot) error {
			before := map[string]int{}
			for _, m := range snap.Matches() {
				before[m.ID] = vetoSteps(m)
			}
			var err error
			changed, err = progression.ResolveAllTimeouts(snap, s.poolFor(snap.Tournament), now)
			for _, id := range changed {
				if m := snap.Match(id); m != nil {
					s.countVetoSteps(m, before[id])
				}
			}
			return err
		})
		if err != nil {
			slog.Error("timeout sweep failed", "tournamentId", t.ID, "error", err)
			continue
		}
		total += len(changed)
	}
	if total > 0 {
		slog.Info("timeouts swept", "matches", total)
	}
	return total, nil
}
