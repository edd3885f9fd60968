package models

import (
	"time"

	"snakeball-backend/constants"
)

type Team string

const (
	Team1 Team = "team1"
	Team2 Team = "team2"

	// Draw is the winner value of a match that ended level.
	Draw = "draw"
)

func (t Team) Other() Team {
	if t == Team1 {
		return Team2
	}
	return Team1
}

func (t Team) Color() string {
	if t == Team1 {
		return constants.TEAM1_COLOR
	}
	return constants.TEAM2_COLOR
}

type Mode string

const (
	Mode1v1 Mode = "1v1"
	Mode2v2 Mode = "2v2"
	Mode3v3 Mode = "3v3"
)

// Capacity reports the number of participants a room of mode m holds.
func (m Mode) Capacity() (int, bool) {
	switch m {
	case Mode1v1:
		return 2, true
	case Mode2v2:
		return 4, true
	case Mode3v3:
		return 6, true
	}
	return 0, false
}

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Player is a connected participant, independent of any room.
type Player struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joined_at"`
}

type Avatar struct {
	ID        string
	Name      string
	Team      Team
	Color     string
	Body      []Position // head first
	Direction constants.Direction
	Length    int
	Ready     bool
	// Seq orders avatars by join time; used for kickoff layout and owner transfer.
	Seq int

	HitCooldown      int
	HeadbuttActive   int
	HeadbuttCooldown int
}

func (a *Avatar) Head() Position {
	return a.Body[0]
}

type Ball struct {
	X      float64
	Y      float64
	VX     float64
	VY     float64
	Radius float64
}

type Score struct {
	Team1 int `json:"team1"`
	Team2 int `json:"team2"`
}

func (s *Score) Add(t Team) {
	if t == Team1 {
		s.Team1++
	} else {
		s.Team2++
	}
}

// TouchRing holds the two most recent touchers of one team, newest first.
type TouchRing [2]string

// Push records a touch. A repeat touch by the newest toucher leaves the ring unchanged.
func (r *TouchRing) Push(id string) {
	if r[0] == id {
		return
	}
	r[1] = r[0]
	r[0] = id
}

func (r *TouchRing) Clear() {
	*r = TouchRing{}
}

type MatchStats struct {
	Name    string `json:"name"`
	Team    Team   `json:"team"`
	Touches int    `json:"touches"`
	Goals   int    `json:"goals"`
	Assists int    `json:"assists"`
}

type GameState struct {
	Avatars map[string]*Avatar
	Ball    Ball
	Score   Score

	Duration int
	TimeLeft int

	Started       bool
	Over          bool
	PausedForGoal bool
	Kickoff       bool
	GoalScoredBy  Team

	LastTouch map[Team]*TouchRing
	Stats     map[string]*MatchStats
}

func NewGameState(duration int) *GameState {
	return &GameState{
		Avatars:  make(map[string]*Avatar),
		Duration: duration,
		TimeLeft: duration,
		Kickoff:  true,
		Ball: Ball{
			X:      constants.FIELD_WIDTH / 2,
			Y:      constants.FIELD_HEIGHT / 2,
			Radius: constants.BALL_RADIUS,
		},
		LastTouch: map[Team]*TouchRing{Team1: {}, Team2: {}},
		Stats:     make(map[string]*MatchStats),
	}
}

// TeamCount returns the number of avatars currently on t.
func (gs *GameState) TeamCount(t Team) int {
	n := 0
	for _, a := range gs.Avatars {
		if a.Team == t {
			n++
		}
	}
	return n
}

// MatchResult is what a finished match reports to listeners and to persistence.
type MatchResult struct {
	RoomID           string                `json:"roomId"`
	Score            Score                 `json:"score"`
	Winner           string                `json:"winner"`
	Reason           string                `json:"reason"`
	Duration         int                   `json:"duration"`
	PlayerMatchStats map[string]MatchStats `json:"playerMatchStats"`
}

type PlayerSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Team  Team   `json:"team"`
	Ready bool   `json:"ready"`
}

type RoomSummary struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	OwnerID   string          `json:"ownerId"`
	Owner     string          `json:"owner"`
	Mode      Mode            `json:"mode"`
	Capacity  int             `json:"capacity"`
	Occupancy int             `json:"occupancy"`
	Duration  int             `json:"duration"`
	Private   bool            `json:"private"`
	State     string          `json:"state"`
	Players   []PlayerSummary `json:"players"`
}
