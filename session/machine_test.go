package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snakeball-backend/clock"
	"snakeball-backend/constants"
	"snakeball-backend/interpolation"
	"snakeball-backend/models"
)

type published struct {
	Type string
	Data any
}

type recorder struct {
	mu     sync.Mutex
	events []published
}

func (r *recorder) Publish(_ string, msgType string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{Type: msgType, Data: data})
}

func (r *recorder) ofType(msgType string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []any
	for _, e := range r.events {
		if e.Type == msgType {
			out = append(out, e.Data)
		}
	}
	return out
}

func (r *recorder) counts(msgType string) []any {
	var out []any
	for _, d := range r.ofType(msgType) {
		out = append(out, d.(Countdown).Count)
	}
	return out
}

func (r *recorder) lastSnapshot(t *testing.T) models.Snapshot {
	states := r.ofType(constants.MSG_GAME_STATE)
	require.NotEmpty(t, states)
	return states[len(states)-1].(models.Snapshot)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	m       *Machine
	clk     *clock.Manual
	rec     *recorder
	results []models.MatchResult
}

func newFixture(t *testing.T, mode models.Mode, duration int) *fixture {
	t.Helper()
	f := &fixture{
		clk: clock.NewManual(time.Unix(1000, 0)),
		rec: &recorder{},
	}
	m, err := New(Config{ID: "room1", Name: "test-room", Mode: mode, Duration: duration}, Options{
		Clock:      f.clk,
		Publisher:  f.rec,
		OnMatchEnd: func(r models.MatchResult) { f.results = append(f.results, r) },
	})
	require.NoError(t, err)
	f.m = m
	return f
}

// started returns a 1v1 fixture whose match has just gone Active.
func started(t *testing.T, duration int) *fixture {
	t.Helper()
	f := newFixture(t, models.Mode1v1, duration)
	_, err := f.m.AddParticipant("p1", "alice")
	require.NoError(t, err)
	_, err = f.m.AddParticipant("p2", "bob")
	require.NoError(t, err)
	_, err = f.m.ToggleReady("p1")
	require.NoError(t, err)
	_, err = f.m.ToggleReady("p2")
	require.NoError(t, err)

	f.clk.Advance(constants.START_COUNTDOWN * time.Second)
	require.Equal(t, Active, f.m.State())
	return f
}

func (f *fixture) with(fn func(gs *models.GameState)) {
	f.m.mu.Lock()
	defer f.m.unlock()
	fn(f.m.gs)
}

func TestStartCountdownAndGameStart(t *testing.T) {
	f := newFixture(t, models.Mode1v1, 60)

	team, err := f.m.AddParticipant("p1", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.Team1, team)
	team, err = f.m.AddParticipant("p2", "bob")
	require.NoError(t, err)
	assert.Equal(t, models.Team2, team)

	ready, err := f.m.ToggleReady("p1")
	require.NoError(t, err)
	assert.True(t, ready)
	assert.Equal(t, Lobby, f.m.State())

	_, err = f.m.ToggleReady("p2")
	require.NoError(t, err)
	assert.Equal(t, CountdownToStart, f.m.State())
	assert.Equal(t, []any{3}, f.rec.counts(constants.MSG_GAME_COUNTDOWN))

	f.clk.Advance(2 * time.Second)
	assert.Equal(t, []any{3, 2, 1}, f.rec.counts(constants.MSG_GAME_COUNTDOWN))
	assert.Empty(t, f.rec.ofType(constants.MSG_GAME_START))

	f.clk.Advance(time.Second)
	assert.Equal(t, []any{3, 2, 1, constants.START_SIGNAL}, f.rec.counts(constants.MSG_GAME_COUNTDOWN))
	starts := f.rec.ofType(constants.MSG_GAME_START)
	require.Len(t, starts, 1)
	snap := starts[0].(models.Snapshot)
	assert.Equal(t, models.Score{}, snap.Score)
	assert.False(t, snap.PausedForGoal)
	assert.True(t, snap.Kickoff)
	assert.Equal(t, 60, snap.TimeLeft)
	assert.Equal(t, Active, f.m.State())

	f.clk.Advance(time.Second)
	assert.Equal(t, []any{3, 2, 1, constants.START_SIGNAL, ""}, f.rec.counts(constants.MSG_GAME_COUNTDOWN))
}

func TestUnreadyCancelsCountdown(t *testing.T) {
	f := newFixture(t, models.Mode1v1, 60)
	f.m.AddParticipant("p1", "alice")
	f.m.AddParticipant("p2", "bob")
	f.m.ToggleReady("p1")
	f.m.ToggleReady("p2")

	f.clk.Advance(time.Second)
	ready, err := f.m.ToggleReady("p1")
	require.NoError(t, err)
	assert.False(t, ready)
	assert.Equal(t, Lobby, f.m.State())

	f.clk.Advance(10 * time.Second)
	assert.Equal(t, []any{3, 2, ""}, f.rec.counts(constants.MSG_GAME_COUNTDOWN))
	assert.Empty(t, f.rec.ofType(constants.MSG_GAME_START))
	assert.Zero(t, f.clk.Active())
}

func TestLeaveCancelsCountdown(t *testing.T) {
	f := newFixture(t, models.Mode1v1, 60)
	f.m.AddParticipant("p1", "alice")
	f.m.AddParticipant("p2", "bob")
	f.m.ToggleReady("p1")
	f.m.ToggleReady("p2")

	empty, err := f.m.RemoveParticipant("p2")
	require.NoError(t, err)
	assert.False(t, empty)
	assert.Equal(t, Lobby, f.m.State())

	summary := f.m.Summary()
	require.Len(t, summary.Players, 1)
	assert.False(t, summary.Players[0].Ready)

	f.clk.Advance(10 * time.Second)
	assert.Empty(t, f.rec.ofType(constants.MSG_GAME_START))
}

func TestClockFrozenUntilKickoffTouch(t *testing.T) {
	f := started(t, 60)

	f.clk.Advance(10 * time.Second)
	assert.Equal(t, 60, f.m.Snapshot().TimeLeft)
}

func TestMatchEndsOnTime(t *testing.T) {
	f := started(t, 60)
	f.with(func(gs *models.GameState) {
		gs.Kickoff = false
		gs.Score.Team1 = 2
	})

	f.clk.Advance(59 * time.Second)
	assert.Equal(t, Active, f.m.State())
	assert.Equal(t, 1, f.m.Snapshot().TimeLeft)

	f.clk.Advance(time.Second)
	require.Equal(t, Ended, f.m.State())

	overs := f.rec.ofType(constants.MSG_GAME_OVER)
	require.Len(t, overs, 1)
	res := overs[0].(models.MatchResult)
	assert.Equal(t, ReasonTime, res.Reason)
	assert.Equal(t, "team1", res.Winner)
	assert.Equal(t, models.Score{Team1: 2}, res.Score)
	assert.Equal(t, 60, res.Duration)
	assert.Len(t, res.PlayerMatchStats, 2)

	types := f.rec.types()
	assert.Equal(t, constants.MSG_SHOW_LOBBY, types[len(types)-1])
	require.Len(t, f.results, 1)
	assert.Equal(t, res, f.results[0])

	before := len(f.rec.ofType(constants.MSG_GAME_STATE))
	f.clk.Advance(5 * time.Second)
	assert.Len(t, f.rec.ofType(constants.MSG_GAME_STATE), before)
	assert.Zero(t, f.clk.Active())
}

func TestMatchEndsInDraw(t *testing.T) {
	f := started(t, 30)
	f.with(func(gs *models.GameState) { gs.Kickoff = false })

	f.clk.Advance(30 * time.Second)
	require.Len(t, f.results, 1)
	assert.Equal(t, models.Draw, f.results[0].Winner)
}

func TestGoalPauseAndKickoff(t *testing.T) {
	f := started(t, 60)
	f.with(func(gs *models.GameState) {
		gs.Kickoff = false
		gs.Ball.X, gs.Ball.Y = constants.FIELD_WIDTH+14, 300
		gs.Ball.VX = 300
	})

	f.clk.Advance(constants.TICK_RATE)
	assert.Equal(t, GoalPause, f.m.State())
	snap := f.rec.lastSnapshot(t)
	assert.True(t, snap.PausedForGoal)
	assert.Equal(t, models.Score{Team1: 1}, snap.Score)
	assert.Equal(t, models.Team1, snap.GoalScoredBy)

	f.clk.Advance(time.Second)
	assert.True(t, f.rec.lastSnapshot(t).PausedForGoal)
	assert.Equal(t, GoalPause, f.m.State())

	f.clk.Advance(time.Second)
	assert.Equal(t, KickoffCountdown, f.m.State())
	snap = f.rec.lastSnapshot(t)
	assert.True(t, snap.PausedForGoal)
	assert.True(t, snap.Kickoff)
	assert.Equal(t, models.BallView{X: 400, Y: 300, Radius: constants.BALL_RADIUS}, snap.Ball)
	assert.Equal(t, []models.Position{{X: 100, Y: 300}}, snap.Avatars["p1"].Body)
	assert.Equal(t, []models.Position{{X: 680, Y: 300}}, snap.Avatars["p2"].Body)
	assert.Equal(t, []any{3}, f.rec.counts(constants.MSG_KICKOFF_COUNTDOWN))

	f.clk.Advance(3 * time.Second)
	assert.Equal(t, []any{3, 2, 1, ""}, f.rec.counts(constants.MSG_KICKOFF_COUNTDOWN))
	assert.Equal(t, Active, f.m.State())
	snap = f.m.Snapshot()
	assert.False(t, snap.PausedForGoal)
	assert.False(t, snap.Kickoff)
	assert.Equal(t, 1, snap.Score.Team1)
}

func TestGoalResetSnapshotIsNeverShadowed(t *testing.T) {
	f := started(t, 60)
	f.with(func(gs *models.GameState) {
		gs.Kickoff = false
		gs.Ball.X, gs.Ball.Y = constants.FIELD_WIDTH+14, 300
		gs.Ball.VX = 300
	})

	f.clk.Advance(constants.TICK_RATE)
	require.Equal(t, GoalPause, f.m.State())
	f.clk.Advance(constants.GOAL_PAUSE_DURATION + 10*time.Millisecond)
	require.Equal(t, KickoffCountdown, f.m.State())

	buf := interpolation.NewBuffer(interpolation.DefaultDelay, time.Hour)
	var prev int64
	for _, d := range f.rec.ofType(constants.MSG_GAME_STATE) {
		snap := d.(models.Snapshot)
		assert.Greater(t, snap.Timestamp, prev, "seq %d", snap.Seq)
		assert.True(t, buf.Push(snap), "seq %d rejected", snap.Seq)
		prev = snap.Timestamp
	}

	latest, ok := buf.Latest()
	require.True(t, ok)
	assert.True(t, latest.Kickoff)
	assert.Equal(t, models.BallView{X: 400, Y: 300, Radius: constants.BALL_RADIUS}, latest.Ball)
}

func TestDisconnectEndsMatch(t *testing.T) {
	f := started(t, 60)

	empty, err := f.m.RemoveParticipant("p1")
	require.NoError(t, err)
	assert.False(t, empty)
	assert.Equal(t, Ended, f.m.State())

	require.Len(t, f.results, 1)
	res := f.results[0]
	assert.Equal(t, ReasonDisconnect, res.Reason)
	assert.Equal(t, "team2", res.Winner)
	assert.Contains(t, res.PlayerMatchStats, "p1")
	assert.Len(t, f.rec.ofType(constants.MSG_SHOW_LOBBY), 1)
	assert.Equal(t, []string{"p2"}, f.m.Roster())

	before := len(f.rec.ofType(constants.MSG_GAME_STATE))
	f.clk.Advance(5 * time.Second)
	assert.Len(t, f.rec.ofType(constants.MSG_GAME_STATE), before)
}

func TestEndedRoomRecyclesToLobby(t *testing.T) {
	f := started(t, 60)
	f.m.RemoveParticipant("p2")

	team, err := f.m.AddParticipant("p3", "carol")
	require.NoError(t, err)
	assert.Equal(t, models.Team2, team)
	assert.Equal(t, Lobby, f.m.State())

	ready, err := f.m.ToggleReady("p1")
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestFullEndedRoomStaysEndedOnRejectedJoin(t *testing.T) {
	f := started(t, 60)
	f.clk.Advance(60 * time.Second)
	require.Equal(t, Ended, f.m.State())
	before := len(f.rec.types())

	_, err := f.m.AddParticipant("p3", "carol")
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.Equal(t, Ended, f.m.State())
	assert.Len(t, f.rec.types(), before)
}

func TestCloseCancelsEveryTimer(t *testing.T) {
	f := started(t, 60)
	require.NotZero(t, f.clk.Active())

	f.m.Close()
	assert.Zero(t, f.clk.Active())
	assert.True(t, f.m.Closed())

	before := len(f.rec.types())
	f.clk.Advance(10 * time.Second)
	assert.Len(t, f.rec.types(), before)

	_, err := f.m.AddParticipant("p9", "late")
	assert.ErrorIs(t, err, ErrClosed)

	var direction constants.Direction
	f.with(func(gs *models.GameState) { direction = gs.Avatars["p1"].Direction })
	assert.ErrorIs(t, f.m.HandleDirection("p1", "down"), ErrClosed)
	f.with(func(gs *models.GameState) {
		assert.Equal(t, direction, gs.Avatars["p1"].Direction)
	})
}

func TestDuplicateRoleReplacesStaleTimer(t *testing.T) {
	f := newFixture(t, models.Mode1v1, 60)
	var fired []string

	f.m.mu.Lock()
	f.m.after(roleGoalPause, time.Second, func() { fired = append(fired, "stale") })
	f.m.after(roleGoalPause, time.Second, func() { fired = append(fired, "fresh") })
	f.m.unlock()

	f.clk.Advance(2 * time.Second)
	assert.Equal(t, []string{"fresh"}, fired)
}

func TestTeamBalancingAndCapacity(t *testing.T) {
	f := newFixture(t, models.Mode2v2, 60)

	want := []models.Team{models.Team1, models.Team2, models.Team1, models.Team2}
	for i, id := range []string{"p1", "p2", "p3", "p4"} {
		team, err := f.m.AddParticipant(id, id)
		require.NoError(t, err)
		assert.Equal(t, want[i], team, id)
	}

	_, err := f.m.AddParticipant("p5", "p5")
	assert.ErrorIs(t, err, ErrRoomFull)

	f.m.RemoveParticipant("p1")
	team, err := f.m.AddParticipant("p5", "p5")
	require.NoError(t, err)
	assert.Equal(t, models.Team1, team)
}

func TestAddParticipantIsIdempotent(t *testing.T) {
	f := newFixture(t, models.Mode1v1, 60)
	f.m.AddParticipant("p1", "alice")

	team, err := f.m.AddParticipant("p1", "alice")
	require.NoError(t, err)
	assert.Equal(t, models.Team1, team)
	assert.Equal(t, 1, f.m.Len())
}

func TestOwnerTransferAndClose(t *testing.T) {
	f := newFixture(t, models.Mode2v2, 60)
	f.m.AddParticipant("p1", "alice")
	f.m.AddParticipant("p2", "bob")
	f.m.AddParticipant("p3", "carol")
	assert.Equal(t, "p1", f.m.Owner())

	f.m.RemoveParticipant("p1")
	assert.Equal(t, "p2", f.m.Owner())
	assert.Equal(t, "bob", f.m.Summary().Owner)

	f.m.RemoveParticipant("p2")
	empty, err := f.m.RemoveParticipant("p3")
	require.NoError(t, err)
	assert.True(t, empty)
	assert.True(t, f.m.Closed())
}

func TestDirectionInputValidation(t *testing.T) {
	f := newFixture(t, models.Mode1v1, 60)
	f.m.AddParticipant("p1", "alice")

	assert.ErrorIs(t, f.m.HandleDirection("p1", "sideways"), ErrInvalidInput)
	assert.ErrorIs(t, f.m.HandleDirection("ghost", "up"), ErrNotMember)
	require.NoError(t, f.m.HandleDirection("p1", "up"))

	f.with(func(gs *models.GameState) {
		assert.Equal(t, constants.UP, gs.Avatars["p1"].Direction)
	})
}

func TestReadyIgnoredDuringMatch(t *testing.T) {
	f := started(t, 60)

	_, err := f.m.ToggleReady("p1")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, Active, f.m.State())
}

func TestSnapshotsStrictlyOrdered(t *testing.T) {
	f := started(t, 60)
	f.clk.Advance(time.Second)

	states := f.rec.ofType(constants.MSG_GAME_STATE)
	require.Len(t, states, constants.TICK_HZ)
	var prev uint64
	for _, s := range states {
		snap := s.(models.Snapshot)
		assert.Greater(t, snap.Seq, prev)
		prev = snap.Seq
	}
}

func TestMovementOnlyWhileActive(t *testing.T) {
	f := started(t, 60)
	require.NoError(t, f.m.HandleDirection("p1", "down"))

	f.clk.Advance(constants.TICK_RATE)
	snap := f.rec.lastSnapshot(t)
	assert.Len(t, snap.Avatars["p1"].Body, 2)
	assert.InDelta(t, 310, snap.Avatars["p1"].Body[0].Y, 1e-9)
}
