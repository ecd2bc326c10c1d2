// Package veto runs the map ban/pick negotiation that follows a successful
// ready check. State is rebuilt from the persisted match on every call.
package veto

import (
	"errors"
	"hash/fnv"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
	"github.com/AdamBeresnev/op-tournaments/internal/readycheck"
)

const TurnTimeout = 30 * time.Second

var (
	ErrNotYourTurn      = errors.New("not your turn")
	ErrWrongAction      = errors.New("action does not match the veto order")
	ErrMapUnavailable   = errors.New("map is not available")
	ErrVetoDone         = errors.New("veto already complete")
	ErrVetoNotOpen      = errors.New("veto has not opened yet")
	ErrMapPoolTooSmall  = errors.New("map pool is too small for the series length")
	ErrBestOfInvalid    = errors.New("best of must be 1, 3 or 5")
	ErrMatchNotPlayable = errors.New("match does not have both teams")
)

// InitVetoState starts a veto for m over mapPool with teamA on the clock.
func InitVetoState(m *bracket.Match, mapPool []string, now time.Time) (*bracket.VetoState, error) {
	if !m.HasBothTeams() {
		return nil, ErrMatchNotPlayable
	}
	bestOf := m.BestOf
	if bestOf == 0 {
		bestOf = 1
	}
	if !ValidBestOf(bestOf) {
		return nil, ErrBestOfInvalid
	}

	pool := make([]string, 0, len(mapPool))
	for _, name := range mapPool {
		if name != "" && !slices.Contains(pool, name) {
			pool = append(pool, name)
		}
	}
	if len(pool) < bestOf {
		return nil, ErrMapPoolTooSmall
	}

	v := &bracket.VetoState{
		BestOf:        bestOf,
		Script:        Script(bestOf),
		AvailableMaps: pool,
		History:       []bracket.VetoEntry{},
		Picks:         []string{},
		Status:        bracket.VetoInProgress,
	}
	sync(v, m, now.UnixMilli())
	return v, nil
}

// sync skips scripted bans the pool can no longer afford, assigns the
// decider when it is due and hands the turn to the next team.
func sync(v *bracket.VetoState, m *bracket.Match, at int64) {
	for v.StepIndex < len(v.Script) {
		if v.Script[v.StepIndex] == ban && len(v.AvailableMaps) <= remainingPicks(v)+1 {
			v.StepIndex++
			continue
		}
		break
	}

	if FinalizeDeciderIfNeeded(v, at) {
		return
	}

	v.NextAction = ban
	if v.StepIndex < len(v.Script) && v.Script[v.StepIndex] != decider {
		v.NextAction = v.Script[v.StepIndex]
	}

	v.NextTeamID = m.TeamA.ID()
	if turnsTaken(v)%2 == 1 {
		v.NextTeamID = m.TeamB.ID()
	}
	v.TurnStartedAt = at
}

func turnsTaken(v *bracket.VetoState) int {
	n := 0
	for _, e := range v.History {
		if e.Action != decider {
			n++
		}
	}
	return n
}

func deciderDue(v *bracket.VetoState) bool {
	if len(v.Script) == 0 {
		return true
	}
	return v.StepIndex >= len(v.Script) || v.Script[v.StepIndex] == decider
}

// FinalizeDeciderIfNeeded assigns the last remaining map as decider once the
// script reaches it. Best of one does so as soon as one map is left.
func FinalizeDeciderIfNeeded(v *bracket.VetoState, at int64) bool {
	if v.Done || len(v.AvailableMaps) != 1 || !deciderDue(v) {
		return false
	}
	name := v.AvailableMaps[0]
	v.AvailableMaps = []string{}
	v.Decider = name
	v.History = append(v.History, bracket.VetoEntry{Action: decider, Map: name, Auto: true, At: at})
	v.Done = true
	v.Status = bracket.VetoDone
	v.NextAction = ""
	v.NextTeamID = ""
	return true
}

// ApplyVetoStep validates and applies one ban or pick.
func ApplyVetoStep(v *bracket.VetoState, m *bracket.Match, action bracket.VetoAction, mapName, teamID, uid string, auto bool, at int64) error {
	if v.Done {
		return ErrVetoDone
	}
	if teamID != v.NextTeamID {
		return ErrNotYourTurn
	}
	if action != v.NextAction {
		return ErrWrongAction
	}
	i := slices.Index(v.AvailableMaps, mapName)
	if i < 0 {
		return ErrMapUnavailable
	}

	v.AvailableMaps = slices.Delete(slices.Clone(v.AvailableMaps), i, i+1)
	v.History = append(v.History, bracket.VetoEntry{
		Action: action,
		Map:    mapName,
		TeamID: teamID,
		UID:    uid,
		Auto:   auto,
		At:     at,
	})
	if action == pick {
		v.Picks = append(v.Picks, mapName)
	}
	if !deciderDue(v) {
		v.StepIndex++
	}
	sync(v, m, at)
	return nil
}

// AdvanceTimedVeto replays every turn that ran out before now, each one
// banning or picking a random available map for the team on the clock. A
// missing veto is opened once the ready check allows it. The returned flag
// reports whether anything changed.
func AdvanceTimedVeto(m *bracket.Match, mapPool []string, now time.Time) (*bracket.VetoState, bool, error) {
	var v *bracket.VetoState
	changed := false

	if m.Veto == nil {
		rc := m.ReadyCheck
		if !readycheck.VetoOpen(rc, now) {
			return nil, false, nil
		}
		opened, err := InitVetoState(m, mapPool, time.UnixMilli(*rc.VetoOpensAt))
		if err != nil {
			return nil, false, err
		}
		v, changed = opened, true
	} else {
		v = Clone(m.Veto)
	}

	limit := TurnTimeout.Milliseconds()
	for !v.Done && now.UnixMilli() >= v.TurnStartedAt+limit {
		at := v.TurnStartedAt + limit
		name := randomMap(m.ID, v)
		if err := ApplyVetoStep(v, m, v.NextAction, name, v.NextTeamID, "", true, at); err != nil {
			return nil, false, err
		}
		changed = true
	}
	return v, changed, nil
}

// randomMap draws uniformly from the available maps. The generator is seeded
// from the match and turn so a replay of the same turn lands on the same map.
func randomMap(matchID string, v *bracket.VetoState) string {
	h := fnv.New64a()
	h.Write([]byte(matchID))
	r := rand.New(rand.NewPCG(h.Sum64(), uint64(v.TurnStartedAt)^uint64(len(v.History))))
	return v.AvailableMaps[r.IntN(len(v.AvailableMaps))]
}

// MoveResult is the outcome of a player's veto action. A rejected move still
// carries the veto when timeouts were replayed on the way.
type MoveResult struct {
	OK      bool               `json:"ok"`
	Error   string             `json:"error,omitempty"`
	Err     error              `json:"-"`
	Veto    *bracket.VetoState `json:"veto,omitempty"`
	Changed bool               `json:"-"`
}

func reject(err error, v *bracket.VetoState, changed bool) MoveResult {
	return MoveResult{Error: err.Error(), Err: err, Veto: v, Changed: changed}
}

// ApplyManualVetoMove catches the veto up to now and then applies the
// player's move.
func ApplyManualVetoMove(m *bracket.Match, mapPool []string, teamID, uid string, action bracket.VetoAction, mapName string, now time.Time) MoveResult {
	v, changed, err := AdvanceTimedVeto(m, mapPool, now)
	if err != nil {
		return reject(err, nil, false)
	}
	if v == nil {
		return reject(ErrVetoNotOpen, nil, false)
	}
	if v.Done {
		return reject(ErrVetoDone, v, changed)
	}
	if err := ApplyVetoStep(v, m, action, mapName, teamID, uid, false, now.UnixMilli()); err != nil {
		return reject(err, v, changed)
	}
	return MoveResult{OK: true, Veto: v, Changed: true}
}

func Clone(v *bracket.VetoState) *bracket.VetoState {
	if v == nil {
		return nil
	}
	c := *v
	c.Script = slices.Clone(v.Script)
	c.AvailableMaps = slices.Clone(v.AvailableMaps)
	c.History = slices.Clone(v.History)
	c.Picks = slices.Clone(v.Picks)
	return &c
}
