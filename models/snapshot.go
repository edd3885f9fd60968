package models

import "sort"

type AvatarView struct {
	Team     Team       `json:"team"`
	Color    string     `json:"color"`
	Name     string     `json:"name"`
	Body     []Position `json:"body"`
	Headbutt bool       `json:"headbutt"`
}

type BallView struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Radius float64 `json:"radius"`
}

// Snapshot is the externally visible state of one tick. It shares no memory
// with the GameState it was taken from and must not be mutated once built.
type Snapshot struct {
	Seq           uint64                `json:"seq"`
	Timestamp     int64                 `json:"timestamp"`
	Avatars       map[string]AvatarView `json:"avatars"`
	Ball          BallView              `json:"ball"`
	Score         Score                 `json:"score"`
	TimeLeft      int                   `json:"timeLeft"`
	PausedForGoal bool                  `json:"pausedForGoal"`
	GoalScoredBy  Team                  `json:"goalScoredBy"`
	Kickoff       bool                  `json:"kickoff"`
}

// Snapshot copies the visible subset of gs, stamped with seq and ts (unix ms).
func (gs *GameState) Snapshot(seq uint64, ts int64) Snapshot {
	avatars := make(map[string]AvatarView, len(gs.Avatars))
	for id, a := range gs.Avatars {
		body := make([]Position, len(a.Body))
		copy(body, a.Body)
		avatars[id] = AvatarView{
			Team:     a.Team,
			Color:    a.Color,
			Name:     a.Name,
			Body:     body,
			Headbutt: a.HeadbuttActive > 0,
		}
	}
	return Snapshot{
		Seq:       seq,
		Timestamp: ts,
		Avatars:   avatars,
		Ball: BallView{
			X:      gs.Ball.X,
			Y:      gs.Ball.Y,
			Radius: gs.Ball.Radius,
		},
		Score:         gs.Score,
		TimeLeft:      gs.TimeLeft,
		PausedForGoal: gs.PausedForGoal,
		GoalScoredBy:  gs.GoalScoredBy,
		Kickoff:       gs.Kickoff,
	}
}

// OrderedAvatars returns the avatars sorted by join order.
func (gs *GameState) OrderedAvatars() []*Avatar {
	out := make([]*Avatar, 0, len(gs.Avatars))
	for _, a := range gs.Avatars {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}
