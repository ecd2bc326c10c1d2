package veto

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
	"github.com/AdamBeresnev/op-tournaments/internal/utils"
)

var testPool = []string{"Ascent", "Bind", "Haven", "Lotus", "Split", "Sunset", "Icebox"}

func readyMatch(bestOf int, opensAt time.Time) *bracket.Match {
	return &bracket.Match{
		ID:     "u1_m1",
		Stage:  bracket.StageUpper,
		Round:  1,
		Status: bracket.MatchPending,
		BestOf: bestOf,
		TeamA:  &bracket.TeamSnapshot{TeamID: "alpha", CaptainUID: "a1"},
		TeamB:  &bracket.TeamSnapshot{TeamID: "bravo", CaptainUID: "b1"},
		ReadyCheck: &bracket.ReadyCheck{
			TeamAReady:  true,
			TeamBReady:  true,
			VetoOpensAt: utils.Ptr(opensAt.UnixMilli()),
			Status:      bracket.ReadyReady,
		},
	}
}

// playOut makes every move by hand, always choosing the first available map.
func playOut(t *testing.T, m *bracket.Match, now time.Time) *bracket.VetoState {
	t.Helper()

	for i := 0; i < 20; i++ {
		if m.Veto != nil && m.Veto.Done {
			return m.Veto
		}
		v, _, err := AdvanceTimedVeto(m, testPool, now)
		require.NoError(t, err)
		require.NotNil(t, v)

		before := len(v.AvailableMaps)
		uid := "a1"
		if v.NextTeamID == "bravo" {
			uid = "b1"
		}
		res := ApplyManualVetoMove(m, testPool, v.NextTeamID, uid, v.NextAction, v.AvailableMaps[0], now)
		require.True(t, res.OK, res.Error)
		m.Veto = res.Veto

		if !res.Veto.Done {
			assert.Equal(t, before-1, len(res.Veto.AvailableMaps))
		}
	}
	t.Fatal("veto never finished")
	return nil
}

func TestBestOfThreeFullVeto(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	m := readyMatch(3, now)

	v := playOut(t, m, now)

	assert.True(t, v.Done)
	assert.Equal(t, bracket.VetoDone, v.Status)
	assert.Len(t, v.Picks, 2)
	assert.NotEmpty(t, v.Decider)
	assert.Empty(t, v.AvailableMaps)
	assert.Len(t, SeriesMaps(v), 3)

	var bans, picks []bracket.VetoEntry
	for _, e := range v.History {
		switch e.Action {
		case bracket.VetoBan:
			bans = append(bans, e)
		case bracket.VetoPick:
			picks = append(picks, e)
		}
	}
	require.Len(t, bans, 4)
	require.Len(t, picks, 2)
	for i, e := range bans {
		expected := "alpha"
		if i%2 == 1 {
			expected = "bravo"
		}
		assert.Equal(t, expected, e.TeamID, "ban %d", i)
	}
	assert.Equal(t, "alpha", picks[0].TeamID)
	assert.Equal(t, "bravo", picks[1].TeamID)

	last := v.History[len(v.History)-1]
	assert.Equal(t, bracket.VetoDecider, last.Action)
	assert.True(t, last.Auto)
}

func TestBestOfOneBansDownToDecider(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	m := readyMatch(1, now)

	v := playOut(t, m, now)

	assert.Empty(t, v.Picks)
	assert.Len(t, v.History, len(testPool))
	assert.Equal(t, []string{v.Decider}, SeriesMaps(v))
}

func TestBestOfFiveSkipsUnaffordableBans(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	m := readyMatch(5, now)

	v := playOut(t, m, now)

	assert.Len(t, v.Picks, 4)
	assert.Len(t, SeriesMaps(v), 5)
}

func TestManualMoveRejections(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	t.Run("not open yet", func(t *testing.T) {
		m := readyMatch(3, now.Add(time.Minute))
		res := ApplyManualVetoMove(m, testPool, "alpha", "a1", bracket.VetoBan, "Bind", now)
		assert.False(t, res.OK)
		assert.ErrorIs(t, res.Err, ErrVetoNotOpen)
	})

	t.Run("not your turn", func(t *testing.T) {
		m := readyMatch(3, now)
		res := ApplyManualVetoMove(m, testPool, "bravo", "b1", bracket.VetoBan, "Bind", now)
		assert.False(t, res.OK)
		assert.ErrorIs(t, res.Err, ErrNotYourTurn)
		assert.Equal(t, res.Err.Error(), res.Error)
	})

	t.Run("wrong action", func(t *testing.T) {
		m := readyMatch(3, now)
		res := ApplyManualVetoMove(m, testPool, "alpha", "a1", bracket.VetoPick, "Bind", now)
		assert.ErrorIs(t, res.Err, ErrWrongAction)
	})

	t.Run("unknown map", func(t *testing.T) {
		m := readyMatch(3, now)
		res := ApplyManualVetoMove(m, testPool, "alpha", "a1", bracket.VetoBan, "Dust2", now)
		assert.ErrorIs(t, res.Err, ErrMapUnavailable)
	})

	t.Run("already done", func(t *testing.T) {
		m := readyMatch(1, now)
		playOut(t, m, now)
		res := ApplyManualVetoMove(m, testPool, "alpha", "a1", bracket.VetoBan, "Bind", now)
		assert.ErrorIs(t, res.Err, ErrVetoDone)
	})
}

func TestInitVetoStateValidation(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	_, err := InitVetoState(readyMatch(5, now), testPool[:3], now)
	assert.ErrorIs(t, err, ErrMapPoolTooSmall)

	_, err = InitVetoState(readyMatch(2, now), testPool, now)
	assert.ErrorIs(t, err, ErrBestOfInvalid)

	m := readyMatch(3, now)
	m.TeamB = nil
	_, err = InitVetoState(m, testPool, now)
	assert.ErrorIs(t, err, ErrMatchNotPlayable)

	v, err := InitVetoState(readyMatch(3, now), []string{"Bind", "Bind", "Haven", "", "Lotus"}, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bind", "Haven", "Lotus"}, v.AvailableMaps)
}

func TestAdvanceTimedVetoIsDeterministic(t *testing.T) {
	opensAt := time.UnixMilli(1_700_000_000_000)
	later := opensAt.Add(5 * TurnTimeout)

	first, changed, err := AdvanceTimedVeto(readyMatch(3, opensAt), testPool, later)
	require.NoError(t, err)
	require.True(t, changed)

	second, _, err := AdvanceTimedVeto(readyMatch(3, opensAt), testPool, later)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("replayed veto differs (-first +second):\n%s", diff)
	}

	require.Len(t, first.History, 5)
	for i, e := range first.History {
		assert.True(t, e.Auto)
		assert.Equal(t, opensAt.Add(time.Duration(i+1)*TurnTimeout).UnixMilli(), e.At)
	}
	assert.Equal(t, later.UnixMilli(), first.TurnStartedAt)
}

func TestAdvanceTimedVetoResumesPersistedState(t *testing.T) {
	opensAt := time.UnixMilli(1_700_000_000_000)
	m := readyMatch(3, opensAt)

	partial, _, err := AdvanceTimedVeto(m, testPool, opensAt.Add(2*TurnTimeout))
	require.NoError(t, err)
	m.Veto = partial

	resumed, _, err := AdvanceTimedVeto(m, testPool, opensAt.Add(5*TurnTimeout))
	require.NoError(t, err)

	fresh, _, err := AdvanceTimedVeto(readyMatch(3, opensAt), testPool, opensAt.Add(5*TurnTimeout))
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(fresh, resumed))
	assert.Len(t, partial.History, 2, "the persisted state must not be mutated")
}

func TestAdvanceTimedVetoFinishesUnattended(t *testing.T) {
	opensAt := time.UnixMilli(1_700_000_000_000)

	v, changed, err := AdvanceTimedVeto(readyMatch(3, opensAt), testPool, opensAt.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, v.Done)
	assert.Len(t, SeriesMaps(v), 3)
}
