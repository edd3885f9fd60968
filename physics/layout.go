package physics

import (
	"snakeball-backend/constants"
	"snakeball-backend/models"
)

// KickoffPosition is the top-left corner of the index-th of count teammates.
// Team one lines up near the left wall and team two near the right wall.
func KickoffPosition(team models.Team, index, count int) models.Position {
	x := constants.KICKOFF_OFFSET
	if team == models.Team2 {
		x = constants.FIELD_WIDTH - constants.KICKOFF_OFFSET - constants.SNAKE_SIZE
	}
	if count < 1 {
		count = 1
	}
	return models.Position{
		X: x,
		Y: constants.FIELD_HEIGHT * float64(index+1) / float64(count+1),
	}
}

// ResetKickoff places the ball and every avatar at the canonical kickoff layout.
func ResetKickoff(gs *models.GameState) {
	gs.Ball = models.Ball{
		X:      constants.FIELD_WIDTH / 2,
		Y:      constants.FIELD_HEIGHT / 2,
		Radius: constants.BALL_RADIUS,
	}
	gs.Kickoff = true
	gs.GoalScoredBy = ""
	for _, ring := range gs.LastTouch {
		ring.Clear()
	}

	index := map[models.Team]int{}
	counts := map[models.Team]int{
		models.Team1: gs.TeamCount(models.Team1),
		models.Team2: gs.TeamCount(models.Team2),
	}
	for _, a := range gs.OrderedAvatars() {
		pos := KickoffPosition(a.Team, index[a.Team], counts[a.Team])
		index[a.Team]++

		a.Body = []models.Position{pos}
		a.Direction = constants.STOP
		a.Length = constants.TARGET_LENGTH
		a.HitCooldown = 0
		a.HeadbuttActive = 0
		a.HeadbuttCooldown = 0
	}
}

// ResetMatch reinitializes gs for a new match of duration seconds.
func ResetMatch(gs *models.GameState, duration int) {
	gs.Score = models.Score{}
	gs.Duration = duration
	gs.TimeLeft = duration
	gs.Started = true
	gs.Over = false
	gs.PausedForGoal = false

	gs.Stats = make(map[string]*models.MatchStats, len(gs.Avatars))
	for id, a := range gs.Avatars {
		gs.Stats[id] = &models.MatchStats{Name: a.Name, Team: a.Team}
	}
	ResetKickoff(gs)
}

// NewAvatar builds a lobby avatar parked at its team's kickoff spot.
func NewAvatar(id, name string, team models.Team, seq int) *models.Avatar {
	return &models.Avatar{
		ID:        id,
		Name:      name,
		Team:      team,
		Color:     team.Color(),
		Body:      []models.Position{KickoffPosition(team, 0, 1)},
		Direction: constants.STOP,
		Length:    constants.TARGET_LENGTH,
		Seq:       seq,
	}
}
