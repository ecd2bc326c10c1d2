// Package readycheck computes the pre-match confirmation window and the
// forfeits that follow when it lapses. Everything here is a pure function of
// the match and the current time.
package readycheck

import (
	"errors"
	"time"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
	"github.com/AdamBeresnev/op-tournaments/internal/utils"
)

const (
	Window    = 5 * time.Minute
	VetoDelay = 30 * time.Second
)

var (
	ErrNotScheduled     = errors.New("match is not scheduled")
	ErrMatchNotPlayable = errors.New("match does not have both teams")
	ErrMatchCompleted   = errors.New("match already completed")
	ErrWindowClosed     = errors.New("ready window has closed")
	ErrNotParticipant   = errors.New("team is not part of this match")
)

// Open returns a copy of the match's ready check, deriving a fresh one from
// scheduledAt when none was persisted yet. It returns nil for unscheduled
// matches.
func Open(m *bracket.Match) *bracket.ReadyCheck {
	if m.ReadyCheck != nil {
		return normalize(m, m.ReadyCheck)
	}
	if m.ScheduledAt == nil {
		return nil
	}
	return &bracket.ReadyCheck{
		WindowStartAt: *m.ScheduledAt,
		DeadlineAt:    *m.ScheduledAt + Window.Milliseconds(),
		Status:        bracket.ReadyWaiting,
	}
}

// normalize copies rc and fills window bounds a partial document left out.
func normalize(m *bracket.Match, rc *bracket.ReadyCheck) *bracket.ReadyCheck {
	c := *rc
	if c.WindowStartAt == 0 && m.ScheduledAt != nil {
		c.WindowStartAt = *m.ScheduledAt
	}
	if c.DeadlineAt == 0 {
		c.DeadlineAt = c.WindowStartAt + Window.Milliseconds()
	}
	return &c
}

// Evaluate returns the ready check with its status brought up to now.
func Evaluate(m *bracket.Match, now time.Time) *bracket.ReadyCheck {
	rc := Open(m)
	if rc == nil {
		return nil
	}
	rc.Status = status(rc, now.UnixMilli())
	return rc
}

func status(rc *bracket.ReadyCheck, now int64) bracket.ReadyStatus {
	switch {
	case rc.BothReady() && rc.VetoOpensAt != nil && now >= *rc.VetoOpensAt:
		return bracket.ReadyReady
	case rc.BothReady():
		return bracket.ReadyReadyCountdown
	case now >= rc.DeadlineAt:
		return bracket.ReadyExpired
	case now < rc.WindowStartAt:
		return bracket.ReadyWaiting
	default:
		return bracket.ReadyInProgress
	}
}

// VetoOpen reports whether the map veto may start.
func VetoOpen(rc *bracket.ReadyCheck, now time.Time) bool {
	return rc.BothReady() && rc.VetoOpensAt != nil && now.UnixMilli() >= *rc.VetoOpensAt
}

// MarkReady confirms side. Readiness never flips back, and once both sides
// are in, vetoOpensAt is fixed for good.
func MarkReady(m *bracket.Match, side bracket.Side, now time.Time) (*bracket.ReadyCheck, error) {
	if m.IsCompleted() {
		return nil, ErrMatchCompleted
	}
	if !m.HasBothTeams() {
		return nil, ErrMatchNotPlayable
	}
	if side == bracket.SideNone {
		return nil, ErrNotParticipant
	}
	rc := Open(m)
	if rc == nil {
		return nil, ErrNotScheduled
	}

	ts := now.UnixMilli()
	alreadyReady := (side == bracket.SideA && rc.TeamAReady) || (side == bracket.SideB && rc.TeamBReady)
	if !alreadyReady {
		if ts >= rc.DeadlineAt {
			return nil, ErrWindowClosed
		}
		switch side {
		case bracket.SideA:
			rc.TeamAReady, rc.TeamAReadyAt = true, utils.Ptr(ts)
		case bracket.SideB:
			rc.TeamBReady, rc.TeamBReadyAt = true, utils.Ptr(ts)
		}
	}

	if rc.BothReady() && rc.VetoOpensAt == nil {
		last := max(utils.OrZero(rc.TeamAReadyAt), utils.OrZero(rc.TeamBReadyAt))
		rc.VetoOpensAt = utils.Ptr(last + VetoDelay.Milliseconds())
	}
	rc.Status = status(rc, ts)
	return rc, nil
}

// Outcome is the result a lapsed ready check forces onto a match.
type Outcome struct {
	WinnerSide   bracket.Side
	WinnerTeamID *string
	TeamAScore   int
	TeamBScore   int
	Forfeit      *bracket.Forfeit
	ReadyCheck   *bracket.ReadyCheck
}

// DoubleForfeit reports an outcome without a winner.
func (o *Outcome) DoubleForfeit() bool {
	return o.WinnerSide == bracket.SideNone
}

// Apply writes the outcome onto m.
func (o *Outcome) Apply(m *bracket.Match, now time.Time) {
	m.ReadyCheck = o.ReadyCheck
	if o.DoubleForfeit() {
		m.CompleteWithoutWinner(o.Forfeit, now)
		return
	}
	m.Complete(o.WinnerSide, o.TeamAScore, o.TeamBScore, now)
	m.Forfeit = o.Forfeit
}

// BuildTimeoutOutcome decides a match whose ready window lapsed without both
// confirmations. One ready side wins 1-0; no ready side is a double forfeit.
// It returns nil when nothing has timed out.
func BuildTimeoutOutcome(m *bracket.Match, rc *bracket.ReadyCheck, now time.Time) (*Outcome, error) {
	if m.IsCompleted() {
		return nil, nil
	}
	if rc == nil {
		rc = Open(m)
	} else {
		rc = normalize(m, rc)
	}
	if rc == nil || rc.BothReady() || now.UnixMilli() < rc.DeadlineAt {
		return nil, nil
	}
	if !m.HasBothTeams() {
		return nil, ErrMatchNotPlayable
	}

	rc.Status = bracket.ReadyExpired
	out := &Outcome{ReadyCheck: rc}

	switch {
	case rc.TeamAReady:
		out.WinnerSide, out.TeamAScore = bracket.SideA, 1
	case rc.TeamBReady:
		out.WinnerSide, out.TeamBScore = bracket.SideB, 1
	}

	if out.DoubleForfeit() {
		out.Forfeit = &bracket.Forfeit{Type: bracket.ForfeitReadyTimeoutBoth, At: rc.DeadlineAt}
		return out, nil
	}

	winner := m.Team(out.WinnerSide).TeamID
	out.WinnerTeamID = &winner
	out.Forfeit = &bracket.Forfeit{
		Type:        bracket.ForfeitReadyTimeout,
		LoserTeamID: m.Team(out.WinnerSide.Opposite()).TeamID,
		At:          rc.DeadlineAt,
	}
	return out, nil
}
