package physics

import (
	"math"

	"snakeball-backend/constants"
	"snakeball-backend/models"
)

// GoalEvent describes a goal detected during a Step.
type GoalEvent struct {
	Team     models.Team `json:"team"`
	ScorerID string      `json:"scorerId,omitempty"`
	AssistID string      `json:"assistId,omitempty"`
}

type StepResult struct {
	Goal    *GoalEvent
	Touches []string
}

// Step advances gs by one tick. It never blocks and touches nothing but gs.
func Step(gs *models.GameState) StepResult {
	var res StepResult
	avatars := gs.OrderedAvatars()

	for _, a := range avatars {
		if a.HitCooldown > 0 {
			a.HitCooldown--
		}
		if a.HeadbuttActive > 0 {
			a.HeadbuttActive--
		}
		if a.HeadbuttCooldown > 0 {
			a.HeadbuttCooldown--
		}
	}

	if gs.PausedForGoal {
		return res
	}

	for _, a := range avatars {
		moveAvatar(a)
	}

	if scorer, ok := advanceBall(gs); ok {
		res.Goal = ApplyGoal(gs, scorer)
		return res
	}

	for _, a := range avatars {
		if collide(gs, a) {
			res.Touches = append(res.Touches, a.ID)
		}
	}
	return res
}

func moveAvatar(a *models.Avatar) {
	if a.Direction == constants.STOP || len(a.Body) == 0 {
		return
	}

	speed := constants.SNAKE_SPEED
	if a.HeadbuttActive > 0 {
		speed = constants.HEADBUTT_SPEED
	}
	perTick := speed * constants.TICK_DT

	head := a.Head()
	switch a.Direction {
	case constants.UP:
		head.Y -= perTick
	case constants.DOWN:
		head.Y += perTick
	case constants.LEFT:
		head.X -= perTick
	case constants.RIGHT:
		head.X += perTick
	}
	head.X = clamp(head.X, 0, constants.FIELD_WIDTH-constants.SNAKE_SIZE)
	head.Y = clamp(head.Y, 0, constants.FIELD_HEIGHT-constants.SNAKE_SIZE)

	a.Body = append([]models.Position{head}, a.Body...)
	if len(a.Body) > a.Length {
		a.Body = a.Body[:a.Length]
	}
}

// advanceBall applies friction, integrates and resolves walls. It reports the
// scoring team when the ball has fully crossed a goal line inside the mouth.
func advanceBall(gs *models.GameState) (models.Team, bool) {
	if gs.Kickoff {
		return "", false
	}

	b := &gs.Ball
	b.VX *= constants.BALL_FRICTION
	b.VY *= constants.BALL_FRICTION
	b.X += b.VX * constants.TICK_DT
	b.Y += b.VY * constants.TICK_DT

	inMouth := b.Y > constants.GOAL_Y_START && b.Y < constants.GOAL_Y_END

	switch {
	case b.X-b.Radius < 0:
		if inMouth {
			if b.X+b.Radius < 0 {
				return models.Team2, true
			}
		} else {
			b.X = b.Radius
			b.VX *= -constants.BOUNCE_ENERGY_LOSS
		}
	case b.X+b.Radius > constants.FIELD_WIDTH:
		if inMouth {
			if b.X-b.Radius > constants.FIELD_WIDTH {
				return models.Team1, true
			}
		} else {
			b.X = constants.FIELD_WIDTH - b.Radius
			b.VX *= -constants.BOUNCE_ENERGY_LOSS
		}
	}

	if b.Y-b.Radius < 0 {
		b.Y = b.Radius
		b.VY *= -constants.BOUNCE_ENERGY_LOSS
	} else if b.Y+b.Radius > constants.FIELD_HEIGHT {
		b.Y = constants.FIELD_HEIGHT - b.Radius
		b.VY *= -constants.BOUNCE_ENERGY_LOSS
	}
	return "", false
}

// collide resolves at most one contact between a and the ball. The first
// segment in head-to-tail order that overlaps the ball wins.
func collide(gs *models.GameState, a *models.Avatar) bool {
	if a.HitCooldown > 0 {
		return false
	}

	b := &gs.Ball
	half := constants.SNAKE_SIZE / 2
	reach := half + b.Radius

	for i, seg := range a.Body {
		cx, cy := seg.X+half, seg.Y+half
		dx, dy := b.X-cx, b.Y-cy
		dist := math.Hypot(dx, dy)
		if dist >= reach {
			continue
		}

		nx, ny := 1.0, 0.0
		if a.Team == models.Team2 {
			nx = -1
		}
		if dist > 0 {
			nx, ny = dx/dist, dy/dist
		}

		recordTouch(gs, a)

		if a.Direction == constants.STOP || i > 0 {
			dot := b.VX*nx + b.VY*ny
			if dot < 0 {
				b.VX = (b.VX - 2*dot*nx) * constants.BOUNCE_ENERGY_LOSS
				b.VY = (b.VY - 2*dot*ny) * constants.BOUNCE_ENERGY_LOSS
			}
			b.X = cx + nx*reach
			b.Y = cy + ny*reach
			return true
		}

		hit := constants.BALL_HIT_SPEED
		if a.HeadbuttActive > 0 {
			hit = constants.HEADBUTT_HIT_SPEED
		}
		b.VX += nx * hit
		b.VY += ny * hit
		if speed := math.Hypot(b.VX, b.VY); speed > constants.MAX_BALL_SPEED {
			scale := constants.MAX_BALL_SPEED / speed
			b.VX *= scale
			b.VY *= scale
		}
		return true
	}
	return false
}

func recordTouch(gs *models.GameState, a *models.Avatar) {
	a.HitCooldown = constants.HIT_COOLDOWN_FRAMES
	gs.Kickoff = false
	if ring, ok := gs.LastTouch[a.Team]; ok {
		ring.Push(a.ID)
	}
	if st, ok := gs.Stats[a.ID]; ok {
		st.Touches++
	}
}

// ApplyGoal credits team with a goal, attributes scorer and assist from the
// team's touch ring and freezes play.
func ApplyGoal(gs *models.GameState, team models.Team) *GoalEvent {
	gs.Score.Add(team)
	gs.PausedForGoal = true
	gs.GoalScoredBy = team

	ev := &GoalEvent{Team: team}
	if ring, ok := gs.LastTouch[team]; ok {
		ev.ScorerID = ring[0]
		if ring[1] != ring[0] {
			ev.AssistID = ring[1]
		}
	}
	if st, ok := gs.Stats[ev.ScorerID]; ok && ev.ScorerID != "" {
		st.Goals++
	}
	if st, ok := gs.Stats[ev.AssistID]; ok && ev.AssistID != "" {
		st.Assists++
	}
	return ev
}

// Winner compares final scores.
func Winner(s models.Score) string {
	switch {
	case s.Team1 > s.Team2:
		return string(models.Team1)
	case s.Team2 > s.Team1:
		return string(models.Team2)
	}
	return models.Draw
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
