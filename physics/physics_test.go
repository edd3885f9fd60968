package physics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"snakeball-backend/constants"
	"snakeball-backend/models"
)

func newState(avatars ...*models.Avatar) *models.GameState {
	gs := models.NewGameState(60)
	for _, a := range avatars {
		gs.Avatars[a.ID] = a
		gs.Stats[a.ID] = &models.MatchStats{Name: a.Name, Team: a.Team}
	}
	return gs
}

func avatarAt(id string, team models.Team, dir constants.Direction, body ...models.Position) *models.Avatar {
	a := NewAvatar(id, id, team, 0)
	a.Direction = dir
	a.Body = body
	return a
}

func TestChangeDirectionNeverReverses(t *testing.T) {
	dirs := []constants.Direction{constants.UP, constants.DOWN, constants.LEFT, constants.RIGHT}
	rng := rand.New(rand.NewSource(7))

	a := NewAvatar("a", "a", models.Team1, 0)
	for i := 0; i < 2000; i++ {
		prev := a.Direction
		_, _ = ChangeDirection(a, dirs[rng.Intn(len(dirs))])
		if prev != constants.STOP {
			require.NotEqual(t, prev.Opposite(), a.Direction, "step %d", i)
		}
	}
}

func TestChangeDirectionRejectsReversal(t *testing.T) {
	a := NewAvatar("a", "a", models.Team1, 0)

	_, applied := ChangeDirection(a, constants.LEFT)
	require.True(t, applied)

	_, applied = ChangeDirection(a, constants.RIGHT)
	assert.False(t, applied)
	assert.Equal(t, constants.LEFT, a.Direction)

	_, applied = ChangeDirection(a, constants.UP)
	assert.True(t, applied)
	_, applied = ChangeDirection(a, constants.RIGHT)
	assert.True(t, applied)
	assert.Equal(t, constants.RIGHT, a.Direction)
}

func TestHeadbuttOnRepeatedDirection(t *testing.T) {
	a := NewAvatar("a", "a", models.Team1, 0)
	ChangeDirection(a, constants.UP)

	headbutt, applied := ChangeDirection(a, constants.UP)
	require.True(t, headbutt)
	require.True(t, applied)
	assert.Equal(t, constants.UP, a.Direction)
	assert.Equal(t, constants.HEADBUTT_DURATION_FRAMES, a.HeadbuttActive)
	assert.Equal(t, constants.HEADBUTT_COOLDOWN_FRAMES, a.HeadbuttCooldown)

	headbutt, applied = ChangeDirection(a, constants.UP)
	assert.False(t, headbutt)
	assert.False(t, applied)
	assert.Equal(t, constants.HEADBUTT_COOLDOWN_FRAMES, a.HeadbuttCooldown)
}

func TestHeadbuttCooldownExpires(t *testing.T) {
	a := NewAvatar("a", "a", models.Team1, 0)
	gs := newState(a)
	ChangeDirection(a, constants.DOWN)
	ChangeDirection(a, constants.DOWN)

	for i := 0; i < constants.HEADBUTT_COOLDOWN_FRAMES; i++ {
		Step(gs)
	}
	assert.Zero(t, a.HeadbuttActive)
	assert.Zero(t, a.HeadbuttCooldown)

	headbutt, _ := ChangeDirection(a, constants.DOWN)
	assert.True(t, headbutt)
}

func TestBallFrictionOnly(t *testing.T) {
	gs := newState()
	gs.Kickoff = false
	gs.Ball.VX, gs.Ball.VY = 240, 180

	const n = 10
	for i := 0; i < n; i++ {
		Step(gs)
	}
	want := 300 * math.Pow(constants.BALL_FRICTION, n)
	assert.InDelta(t, want, math.Hypot(gs.Ball.VX, gs.Ball.VY), 1e-9)
}

func TestBallFrozenDuringKickoff(t *testing.T) {
	gs := newState()
	gs.Ball.VX = 100

	Step(gs)
	assert.Equal(t, constants.FIELD_WIDTH/2, gs.Ball.X)
}

func TestGoalLeftLineScoresForTeamTwo(t *testing.T) {
	gs := newState()
	gs.Kickoff = false
	gs.Ball.X, gs.Ball.Y = -14, 300
	gs.Ball.VX = -300

	res := Step(gs)
	require.NotNil(t, res.Goal)
	assert.Equal(t, models.Team2, res.Goal.Team)
	assert.Equal(t, models.Score{Team2: 1}, gs.Score)
	assert.True(t, gs.PausedForGoal)
	assert.Equal(t, models.Team2, gs.GoalScoredBy)

	// no reflection on the scoring tick
	assert.Less(t, gs.Ball.VX, 0.0)
	assert.InDelta(t, -14-288*constants.TICK_DT, gs.Ball.X, 1e-9)

	res = Step(gs)
	assert.Nil(t, res.Goal)
	assert.Equal(t, 1, gs.Score.Team2)
}

func TestGoalRightLineScoresForTeamOne(t *testing.T) {
	gs := newState()
	gs.Kickoff = false
	gs.Ball.X, gs.Ball.Y = constants.FIELD_WIDTH+14, 260
	gs.Ball.VX = 300

	res := Step(gs)
	require.NotNil(t, res.Goal)
	assert.Equal(t, models.Team1, res.Goal.Team)
	assert.Equal(t, models.Score{Team1: 1}, gs.Score)
}

func TestBallInsideMouthNotYetAcrossDoesNotScore(t *testing.T) {
	gs := newState()
	gs.Kickoff = false
	gs.Ball.X, gs.Ball.Y = 10, 300
	gs.Ball.VX = -30

	res := Step(gs)
	assert.Nil(t, res.Goal)
	assert.Less(t, gs.Ball.X, 10.0)
	assert.Less(t, gs.Ball.VX, 0.0)
}

func TestWallOutsideMouthReflects(t *testing.T) {
	gs := newState()
	gs.Kickoff = false
	gs.Ball.X, gs.Ball.Y = 16, 100
	gs.Ball.VX = -300

	res := Step(gs)
	assert.Nil(t, res.Goal)
	assert.Equal(t, constants.BALL_RADIUS, gs.Ball.X)
	assert.InDelta(t, 288*constants.BOUNCE_ENERGY_LOSS, gs.Ball.VX, 1e-9)
}

func TestTopWallReflects(t *testing.T) {
	gs := newState()
	gs.Kickoff = false
	gs.Ball.X, gs.Ball.Y = 400, 16
	gs.Ball.VY = -300

	Step(gs)
	assert.Equal(t, constants.BALL_RADIUS, gs.Ball.Y)
	assert.Greater(t, gs.Ball.VY, 0.0)
}

func TestAvatarMovesAndKeepsTargetLength(t *testing.T) {
	a := avatarAt("a", models.Team1, constants.RIGHT, models.Position{X: 100, Y: 290})
	gs := newState(a)

	Step(gs)
	require.Len(t, a.Body, 2)
	assert.Equal(t, models.Position{X: 110, Y: 290}, a.Head())

	for i := 0; i < 10; i++ {
		Step(gs)
	}
	assert.Len(t, a.Body, constants.TARGET_LENGTH)
	assert.InDelta(t, 210, a.Head().X, 1e-9)
}

func TestAvatarClampedToField(t *testing.T) {
	a := avatarAt("a", models.Team1, constants.UP, models.Position{X: 100, Y: 3})
	gs := newState(a)

	Step(gs)
	assert.Equal(t, 0.0, a.Head().Y)
}

func TestAvatarsFrozenWhilePaused(t *testing.T) {
	a := avatarAt("a", models.Team1, constants.RIGHT, models.Position{X: 100, Y: 290})
	a.HitCooldown = 2
	gs := newState(a)
	gs.PausedForGoal = true

	Step(gs)
	assert.Equal(t, []models.Position{{X: 100, Y: 290}}, a.Body)
	assert.Equal(t, 1, a.HitCooldown)
}

func TestMovingHeadHitsBall(t *testing.T) {
	a := avatarAt("a", models.Team1, constants.RIGHT, models.Position{X: 100, Y: 290})
	gs := newState(a)
	gs.Ball.X, gs.Ball.Y = 140, 300

	res := Step(gs)
	assert.Equal(t, []string{"a"}, res.Touches)
	assert.False(t, gs.Kickoff)
	assert.InDelta(t, constants.BALL_HIT_SPEED, gs.Ball.VX, 1e-9)
	assert.InDelta(t, 0, gs.Ball.VY, 1e-9)
	assert.Equal(t, constants.HIT_COOLDOWN_FRAMES, a.HitCooldown)
	assert.Equal(t, "a", gs.LastTouch[models.Team1][0])
	assert.Equal(t, 1, gs.Stats["a"].Touches)

	// cooldown blocks an immediate second touch
	res = Step(gs)
	assert.Empty(t, res.Touches)
}

func TestHeadbuttHitClampedToMaxSpeed(t *testing.T) {
	a := avatarAt("a", models.Team1, constants.RIGHT, models.Position{X: 140, Y: 290})
	a.HeadbuttActive = 5
	gs := newState(a)
	gs.Kickoff = false
	gs.Ball.X, gs.Ball.Y = 160, 300
	gs.Ball.VX = 600

	Step(gs)
	assert.InDelta(t, constants.MAX_BALL_SPEED, math.Hypot(gs.Ball.VX, gs.Ball.VY), 1e-9)
}

func TestStoppedAvatarMirrorsBall(t *testing.T) {
	a := avatarAt("a", models.Team1, constants.STOP, models.Position{X: 100, Y: 290})
	gs := newState(a)
	gs.Kickoff = false
	gs.Ball.X, gs.Ball.Y = 140, 300
	gs.Ball.VX = -300

	res := Step(gs)
	require.Equal(t, []string{"a"}, res.Touches)
	assert.InDelta(t, 288*constants.BOUNCE_ENERGY_LOSS, gs.Ball.VX, 1e-9)
	assert.InDelta(t, 110+constants.SNAKE_SIZE/2+constants.BALL_RADIUS, gs.Ball.X, 1e-9)
}

func TestBodySegmentMirrorsEvenWhenMoving(t *testing.T) {
	a := avatarAt("a", models.Team1, constants.UP,
		models.Position{X: 100, Y: 200},
		models.Position{X: 100, Y: 210},
		models.Position{X: 100, Y: 220},
		models.Position{X: 100, Y: 230},
	)
	gs := newState(a)
	gs.Kickoff = false
	gs.Ball.X, gs.Ball.Y = 134, 230
	gs.Ball.VX = -150

	res := Step(gs)
	require.Equal(t, []string{"a"}, res.Touches)
	assert.Greater(t, gs.Ball.VX, 0.0)
	assert.InDelta(t, 144*constants.BOUNCE_ENERGY_LOSS, math.Hypot(gs.Ball.VX, gs.Ball.VY), 1e-9)
}

func TestGoalAttributionFromTouchRing(t *testing.T) {
	a := NewAvatar("a", "a", models.Team1, 0)
	b := NewAvatar("b", "b", models.Team1, 1)
	gs := newState(a, b)

	gs.LastTouch[models.Team1].Push("a")
	gs.LastTouch[models.Team1].Push("b")
	gs.LastTouch[models.Team1].Push("b")

	ev := ApplyGoal(gs, models.Team1)
	assert.Equal(t, &GoalEvent{Team: models.Team1, ScorerID: "b", AssistID: "a"}, ev)
	assert.Equal(t, 1, gs.Stats["b"].Goals)
	assert.Equal(t, 1, gs.Stats["a"].Assists)
}

func TestGoalWithoutToucherHasNoScorer(t *testing.T) {
	gs := newState(NewAvatar("a", "a", models.Team2, 0))

	ev := ApplyGoal(gs, models.Team1)
	assert.Equal(t, &GoalEvent{Team: models.Team1}, ev)
	assert.Equal(t, 1, gs.Score.Team1)
	assert.Zero(t, gs.Stats["a"].Goals)
}

func TestTouchRingKeepsTwoMostRecent(t *testing.T) {
	var r models.TouchRing
	r.Push("a")
	r.Push("b")
	r.Push("c")
	assert.Equal(t, models.TouchRing{"c", "b"}, r)

	r.Push("c")
	assert.Equal(t, models.TouchRing{"c", "b"}, r)
}

func TestResetKickoffLayout(t *testing.T) {
	a := NewAvatar("a", "a", models.Team1, 0)
	b := NewAvatar("b", "b", models.Team2, 1)
	c := NewAvatar("c", "c", models.Team1, 2)
	d := NewAvatar("d", "d", models.Team2, 3)
	gs := newState(a, b, c, d)
	a.Direction = constants.LEFT
	a.Body = []models.Position{{X: 5, Y: 5}, {X: 15, Y: 5}}
	gs.Ball = models.Ball{X: 1, Y: 2, VX: 3, VY: 4, Radius: constants.BALL_RADIUS}
	gs.LastTouch[models.Team1].Push("a")

	ResetKickoff(gs)

	assert.Equal(t, []models.Position{{X: 100, Y: 200}}, a.Body)
	assert.Equal(t, []models.Position{{X: 100, Y: 400}}, c.Body)
	assert.Equal(t, []models.Position{{X: 680, Y: 200}}, b.Body)
	assert.Equal(t, []models.Position{{X: 680, Y: 400}}, d.Body)
	assert.Equal(t, constants.STOP, a.Direction)
	assert.Equal(t, models.Ball{X: 400, Y: 300, Radius: constants.BALL_RADIUS}, gs.Ball)
	assert.True(t, gs.Kickoff)
	assert.Equal(t, models.TouchRing{}, *gs.LastTouch[models.Team1])
}

func TestResetMatchClearsScoreAndStats(t *testing.T) {
	a := NewAvatar("a", "a", models.Team1, 0)
	gs := newState(a)
	gs.Score = models.Score{Team1: 3, Team2: 1}
	gs.Stats["a"].Goals = 3

	ResetMatch(gs, 90)

	assert.Equal(t, models.Score{}, gs.Score)
	assert.Equal(t, 90, gs.TimeLeft)
	assert.Equal(t, &models.MatchStats{Name: "a", Team: models.Team1}, gs.Stats["a"])
	assert.True(t, gs.Started)
	assert.False(t, gs.PausedForGoal)
	assert.True(t, gs.Kickoff)
}

func TestWinner(t *testing.T) {
	assert.Equal(t, "team1", Winner(models.Score{Team1: 2, Team2: 1}))
	assert.Equal(t, "team2", Winner(models.Score{Team1: 0, Team2: 1}))
	assert.Equal(t, models.Draw, Winner(models.Score{Team1: 2, Team2: 2}))
}
