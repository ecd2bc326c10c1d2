package progression

import (
	"fmt"
	"time"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
	"github.com/AdamBeresnev/op-tournaments/internal/readycheck"
	"github.com/AdamBeresnev/op-tournaments/internal/veto"
)

// ResolveTimeouts brings one match up to now: a lapsed ready window forfeits
// the match and progresses it, and veto turns that ran out are played
// automatically. It reports whether the snapshot changed.
func ResolveTimeouts(s *Snapshot, matchID string, mapPool []string, now time.Time) (bool, error) {
	m := s.Match(matchID)
	if m == nil {
		return false, ErrMatchNotFound
	}
	if m.IsCompleted() || !m.HasBothTeams() {
		return false, nil
	}

	out, err := readycheck.BuildTimeoutOutcome(m, m.ReadyCheck, now)
	if err != nil {
		return false, fmt.Errorf("failed to evaluate ready check: %w", err)
	}
	if out != nil {
		out.Apply(m, now)
		s.Touch(m)
		e := newEngine(s, now)
		e.enqueue(m.ID)
		e.run()
		return true, nil
	}

	changed := false
	if rc := readycheck.Evaluate(m, now); rc != nil && (m.ReadyCheck == nil || rc.Status != m.ReadyCheck.Status) {
		m.ReadyCheck = rc
		changed = true
	}

	v, vetoChanged, err := veto.AdvanceTimedVeto(m, mapPool, now)
	if err != nil {
		return changed, fmt.Errorf("failed to advance veto: %w", err)
	}
	if vetoChanged {
		m.Veto = v
		changed = true
	}

	if changed {
		s.Touch(m)
	}
	return changed, nil
}

// ResolveAllTimeouts runs ResolveTimeouts over every scheduled, undecided
// match. It returns the ids of the matches that changed.
func ResolveAllTimeouts(s *Snapshot, mapPool []string, now time.Time) ([]string, error) {
	var changed []string
	for _, m := range s.Matches() {
		if m.ScheduledAt == nil || m.Status != bracket.MatchPending {
			continue
		}
		ok, err := ResolveTimeouts(s, m.ID, mapPool, now)
		if err != nil {
			return changed, fmt.Errorf("match %s: %w", m.ID, err)
		}
		if ok {
			changed = append(changed, m.ID)
		}
	}
	return changed, nil
}
