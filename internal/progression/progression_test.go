package progression

import (
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
)

var testNow = time.UnixMilli(1_700_000_000_000)

func testRegistrations(n int) []bracket.Registration {
	regs := make([]bracket.Registration, 0, n)
	for i := range n {
		id := fmt.Sprintf("team-%02d", i+1)
		regs = append(regs, bracket.Registration{
			ID:             uuid.New(),
			TeamID:         id,
			Name:           "Team " + id,
			CaptainUID:     "cap-" + id,
			MemberUIDs:     []string{"cap-" + id},
			AvgEloSnapshot: 2000 - i*25,
		})
	}
	return regs
}

func newTestSnapshot(t *testing.T, bracketType bracket.BracketType, n int) (*Snapshot, []bracket.Registration) {
	t.Helper()

	tournament := &bracket.Tournament{
		ID:          uuid.New(),
		Name:        "Test Cup",
		Status:      bracket.TournamentStarted,
		BracketType: bracketType,
		BestOf:      1,
	}
	regs := testRegistrations(n)

	var matches []bracket.Match
	switch bracketType {
	case bracket.SingleElimination:
		matches = bracket.BuildEliminationTreeMatches(regs, bracket.StageSingle, "r")
	case bracket.DoubleElimination:
		matches = bracket.BuildEliminationTreeMatches(regs, bracket.StageUpper, "u")
	case bracket.GroupPlayoff:
		matches = bracket.BuildGroupMatches(bracket.BuildGroups(regs))
	}
	for i := range matches {
		matches[i].TournamentID = tournament.ID
		matches[i].BestOf = 1
	}
	return NewSnapshot(tournament, matches), regs
}

// firstPlayable is the lexicographically first pending match with both
// sides filled.
func firstPlayable(s *Snapshot, stages ...bracket.Stage) *bracket.Match {
	var found *bracket.Match
	for _, m := range s.Matches() {
		if !m.Playable() {
			continue
		}
		if len(stages) > 0 && !slices.Contains(stages, m.Stage) {
			continue
		}
		if found == nil || m.ID < found.ID {
			found = m
		}
	}
	return found
}

func playAll(t *testing.T, s *Snapshot, stages ...bracket.Stage) int {
	t.Helper()

	played := 0
	for ; played < 200; played++ {
		m := firstPlayable(s, stages...)
		if m == nil {
			return played
		}
		_, err := SubmitResult(s, m.ID, ResultInput{WinnerTeamID: m.TeamA.TeamID}, testNow)
		require.NoError(t, err, m.ID)
	}
	t.Fatal("bracket never finished")
	return played
}

func assertChampionFrom(t *testing.T, s *Snapshot, regs []bracket.Registration) {
	t.Helper()

	require.True(t, s.Tournament.Decided())
	require.NotNil(t, s.Tournament.Champion)
	assert.Equal(t, bracket.TournamentCompleted, s.Tournament.Status)
	assert.True(t, slices.ContainsFunc(regs, func(r bracket.Registration) bool {
		return r.TeamID == s.Tournament.Champion.TeamID
	}))
	assert.Nil(t, firstPlayable(s), "no playable match may remain")
}

func TestSingleEliminationCompleteness(t *testing.T) {
	for _, n := range []int{2, 3, 4, 5, 8, 16} {
		t.Run(fmt.Sprintf("%d teams", n), func(t *testing.T) {
			s, regs := newTestSnapshot(t, bracket.SingleElimination, n)

			playAll(t, s)

			assertChampionFrom(t, s, regs)
			// teamA always wins and the top seed always sits in slot A.
			assert.Equal(t, "team-01", s.Tournament.Champion.TeamID)
		})
	}
}

func TestDoubleEliminationCompleteness(t *testing.T) {
	for _, n := range []int{2, 3, 4, 5, 6, 8, 16} {
		t.Run(fmt.Sprintf("%d teams", n), func(t *testing.T) {
			s, regs := newTestSnapshot(t, bracket.DoubleElimination, n)

			playAll(t, s)

			assertChampionFrom(t, s, regs)
			require.NotNil(t, s.Match(bracket.GrandFinalID))
			assert.NotNil(t, s.Tournament.UpperChampion)
			assert.NotNil(t, s.Tournament.LowerChampion)
			assert.NotEqual(t, s.Tournament.UpperChampion.TeamID, s.Tournament.LowerChampion.TeamID)
			for _, m := range s.Matches() {
				assert.True(t, m.IsCompleted(), "%s left %s", m.ID, m.Status)
			}
		})
	}
}

func TestDoubleEliminationEveryTeamLosesAtMostTwice(t *testing.T) {
	s, regs := newTestSnapshot(t, bracket.DoubleElimination, 8)
	played := playAll(t, s)

	losses := map[string]int{}
	for _, m := range s.Matches() {
		if id := m.LoserTeamID(); id != "" {
			losses[id]++
		}
	}
	for _, r := range regs {
		if r.TeamID == s.Tournament.Champion.TeamID {
			assert.LessOrEqual(t, losses[r.TeamID], 1)
			continue
		}
		assert.Equal(t, 2, losses[r.TeamID], r.TeamID)
	}
	assert.Equal(t, 2*len(regs)-2, played)
}

func TestGroupPlayoffCompleteness(t *testing.T) {
	for _, n := range []int{2, 3, 5, 8} {
		t.Run(fmt.Sprintf("%d teams", n), func(t *testing.T) {
			s, regs := newTestSnapshot(t, bracket.GroupPlayoff, n)

			playAll(t, s, bracket.StageGroup)
			assert.False(t, s.Tournament.Decided(), "groups alone never decide")

			byTeam := map[string]bracket.Registration{}
			for _, r := range regs {
				byTeam[r.TeamID] = r
			}
			byGroup := map[string][]bracket.Match{}
			for _, m := range s.StageMatches(bracket.StageGroup) {
				byGroup[m.Group] = append(byGroup[m.Group], *m)
			}
			var keys []string
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
			for _, m := range bracket.BuildEliminationTreeMatches(qualifiers, bracket.StagePlayoff, "p") {
				s.Put(m)
			}

			playAll(t, s)

			assertChampionFrom(t, s, qualifiers)
		})
	}
}

func TestSubmitResultIdempotent(t *testing.T) {
	s, _ := newTestSnapshot(t, bracket.SingleElimination, 4)

	first, err := SubmitResult(s, "r1_m1", ResultInput{WinnerTeamID: "team-01", TeamAScore: 2, TeamBScore: 1}, testNow)
	require.NoError(t, err)
	assert.False(t, first.AlreadyCompleted)
	assert.Equal(t, "r2_m1", first.NextMatchID)

	before := s.Matches()
	snapshot := make([]bracket.Match, 0, len(before))
	for _, m := range before {
		snapshot = append(snapshot, *m)
	}
	s.dirty = map[string]bool{}

	second, err := SubmitResult(s, "r1_m1", ResultInput{WinnerTeamID: "team-01", TeamAScore: 2, TeamBScore: 1}, testNow.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, second.AlreadyCompleted)
	assert.False(t, s.Changed())

	after := make([]bracket.Match, 0, len(snapshot))
	for _, m := range s.Matches() {
		after = append(after, *m)
	}
	assert.Equal(t, snapshot, after)

	_, err = SubmitResult(s, "r1_m1", ResultInput{WinnerTeamID: "team-04"}, testNow)
	assert.ErrorIs(t, err, ErrResultConflict)
}

func TestSubmitResultValidation(t *testing.T) {
	s, _ := newTestSnapshot(t, bracket.SingleElimination, 4)

	testCases := []struct {
		name    string
		matchID string
		input   ResultInput
		err     error
	}{
		{name: "unknown match", matchID: "r9_m9", input: ResultInput{WinnerTeamID: "team-01"}, err: ErrMatchNotFound},
		{name: "empty slot", matchID: "r2_m1", input: ResultInput{WinnerTeamID: "team-01"}, err: ErrMatchNotReady},
		{name: "outsider", matchID: "r1_m1", input: ResultInput{WinnerTeamID: "team-02"}, err: ErrWinnerNotInMatch},
		{name: "winner outscored", matchID: "r1_m1", input: ResultInput{WinnerTeamID: "team-01", TeamAScore: 0, TeamBScore: 2}, err: ErrInvalidScore},
		{name: "tie", matchID: "r1_m1", input: ResultInput{WinnerTeamID: "team-01", TeamAScore: 1, TeamBScore: 1}, err: ErrInvalidScore},
		{name: "negative", matchID: "r1_m1", input: ResultInput{WinnerTeamID: "team-04", TeamAScore: -1, TeamBScore: 0}, err: ErrInvalidScore},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SubmitResult(s, tc.matchID, tc.input, testNow)
			assert.ErrorIs(t, err, tc.err)
		})
	}

	t.Run("decided tournament", func(t *testing.T) {
		s.Tournament.Finish(nil, testNow)
		_, err := SubmitResult(s, "r1_m1", ResultInput{WinnerTeamID: "team-01"}, testNow)
		assert.ErrorIs(t, err, ErrTournamentDecided)
	})
}

func TestAdvanceTreeMatch(t *testing.T) {
	s, _ := newTestSnapshot(t, bracket.SingleElimination, 8)
	winner := s.Match("r1_m2").TeamB

	next, ok := AdvanceTreeMatch(s, "r1_m2", winner, 1, "r", testNow)
	require.True(t, ok)
	assert.Equal(t, "r2_m1", next)
	assert.Equal(t, winner.TeamID, s.Match("r2_m1").TeamB.ID())
	assert.Nil(t, s.Match("r2_m1").TeamA)

	_, ok = AdvanceTreeMatch(s, "r3_m1", winner, 3, "r", testNow)
	assert.False(t, ok, "the final has nowhere to go")
}

func TestByeCarriesTopSeedInSingleElimination(t *testing.T) {
	s, _ := newTestSnapshot(t, bracket.SingleElimination, 5)

	m := firstPlayable(s)
	require.NotNil(t, m)
	assert.Equal(t, "r1_m2", m.ID)

	assert.Equal(t, "team-01", s.Match("r2_m1").TeamA.ID())
	assert.Equal(t, bracket.MatchPending, s.Match("r2_m2").Status)
}
