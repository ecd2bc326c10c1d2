package readycheck

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamBeresnev/op-tournaments/internal/bracket"
	"github.com/AdamBeresnev/op-tournaments/internal/utils"
)

func scheduledMatch(at time.Time) *bracket.Match {
	return &bracket.Match{
		ID:          "r1_m1",
		Stage:       bracket.StageSingle,
		Round:       1,
		Status:      bracket.MatchPending,
		TeamA:       &bracket.TeamSnapshot{TeamID: "alpha", CaptainUID: "a1"},
		TeamB:       &bracket.TeamSnapshot{TeamID: "bravo", CaptainUID: "b1"},
		ScheduledAt: utils.Ptr(at.UnixMilli()),
	}
}

func TestEvaluateStatus(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)

	testCases := []struct {
		name     string
		now      time.Time
		expected bracket.ReadyStatus
	}{
		{name: "before window", now: start.Add(-time.Minute), expected: bracket.ReadyWaiting},
		{name: "inside window", now: start.Add(time.Minute), expected: bracket.ReadyInProgress},
		{name: "at deadline", now: start.Add(Window), expected: bracket.ReadyExpired},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rc := Evaluate(scheduledMatch(start), tc.now)
			require.NotNil(t, rc)
			assert.Equal(t, tc.expected, rc.Status)
			assert.Equal(t, start.UnixMilli(), rc.WindowStartAt)
			assert.Equal(t, start.Add(Window).UnixMilli(), rc.DeadlineAt)
		})
	}

	t.Run("unscheduled", func(t *testing.T) {
		m := scheduledMatch(start)
		m.ScheduledAt = nil
		assert.Nil(t, Evaluate(m, start))
	})
}

func TestMarkReady(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	m := scheduledMatch(start)

	rc, err := MarkReady(m, bracket.SideA, start.Add(10*time.Second))
	require.NoError(t, err)
	assert.True(t, rc.TeamAReady)
	assert.False(t, rc.TeamBReady)
	assert.Nil(t, rc.VetoOpensAt)
	assert.Equal(t, bracket.ReadyInProgress, rc.Status)
	m.ReadyCheck = rc

	bReadyAt := start.Add(40 * time.Second)
	rc, err = MarkReady(m, bracket.SideB, bReadyAt)
	require.NoError(t, err)
	require.NotNil(t, rc.VetoOpensAt)
	assert.Equal(t, bReadyAt.Add(VetoDelay).UnixMilli(), *rc.VetoOpensAt)
	assert.Equal(t, bracket.ReadyReadyCountdown, rc.Status)
	m.ReadyCheck = rc

	// Marking again keeps the original timestamps.
	again, err := MarkReady(m, bracket.SideA, start.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, *rc.TeamAReadyAt, *again.TeamAReadyAt)
	assert.Equal(t, *rc.VetoOpensAt, *again.VetoOpensAt)

	assert.True(t, VetoOpen(rc, bReadyAt.Add(VetoDelay)))
	assert.False(t, VetoOpen(rc, bReadyAt))
	assert.Equal(t, bracket.ReadyReady, Evaluate(m, bReadyAt.Add(VetoDelay)).Status)
}

func TestMarkReadyRejections(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)

	t.Run("window closed", func(t *testing.T) {
		_, err := MarkReady(scheduledMatch(start), bracket.SideA, start.Add(Window))
		assert.ErrorIs(t, err, ErrWindowClosed)
	})

	t.Run("not scheduled", func(t *testing.T) {
		m := scheduledMatch(start)
		m.ScheduledAt = nil
		_, err := MarkReady(m, bracket.SideA, start)
		assert.ErrorIs(t, err, ErrNotScheduled)
	})

	t.Run("completed", func(t *testing.T) {
		m := scheduledMatch(start)
		m.Status = bracket.MatchCompleted
		_, err := MarkReady(m, bracket.SideA, start)
		assert.ErrorIs(t, err, ErrMatchCompleted)
	})

	t.Run("missing opponent", func(t *testing.T) {
		m := scheduledMatch(start)
		m.TeamB = nil
		_, err := MarkReady(m, bracket.SideA, start)
		assert.ErrorIs(t, err, ErrMatchNotPlayable)
	})

	t.Run("outsider", func(t *testing.T) {
		_, err := MarkReady(scheduledMatch(start), bracket.SideNone, start)
		assert.ErrorIs(t, err, ErrNotParticipant)
	})
}

func TestBuildTimeoutOutcome(t *testing.T) {
	now := time.UnixMilli(1_700_000_600_000)

	t.Run("one side ready", func(t *testing.T) {
		m := scheduledMatch(now.Add(-600 * time.Second))
		m.ReadyCheck = &bracket.ReadyCheck{TeamAReady: true, TeamBReady: false}

		out, err := BuildTimeoutOutcome(m, m.ReadyCheck, now)
		require.NoError(t, err)
		require.NotNil(t, out)
		out.Apply(m, now)

		assert.Equal(t, bracket.MatchCompleted, m.Status)
		require.NotNil(t, m.WinnerTeamID)
		assert.Equal(t, "alpha", *m.WinnerTeamID)
		assert.Equal(t, 1, m.TeamAScore)
		assert.Equal(t, 0, m.TeamBScore)
		require.NotNil(t, m.Forfeit)
		assert.Equal(t, bracket.ForfeitReadyTimeout, m.Forfeit.Type)
		assert.Equal(t, "bravo", m.Forfeit.LoserTeamID)
		assert.Equal(t, bracket.ReadyExpired, m.ReadyCheck.Status)
	})

	t.Run("nobody ready", func(t *testing.T) {
		m := scheduledMatch(now.Add(-600 * time.Second))

		out, err := BuildTimeoutOutcome(m, nil, now)
		require.NoError(t, err)
		require.NotNil(t, out)
		assert.True(t, out.DoubleForfeit())
		out.Apply(m, now)

		assert.Equal(t, bracket.MatchCompleted, m.Status)
		assert.Nil(t, m.WinnerTeamID)
		assert.True(t, m.IsDoubleForfeit())
		assert.Equal(t, bracket.ForfeitReadyTimeoutBoth, m.Forfeit.Type)
	})

	t.Run("still inside window", func(t *testing.T) {
		m := scheduledMatch(now.Add(-time.Minute))
		out, err := BuildTimeoutOutcome(m, nil, now)
		require.NoError(t, err)
		assert.Nil(t, out)
	})

	t.Run("both ready", func(t *testing.T) {
		m := scheduledMatch(now.Add(-600 * time.Second))
		m.ReadyCheck = &bracket.ReadyCheck{TeamAReady: true, TeamBReady: true}
		out, err := BuildTimeoutOutcome(m, m.ReadyCheck, now)
		require.NoError(t, err)
		assert.Nil(t, out)
	})
}
