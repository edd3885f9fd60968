// Package stats keeps persistent player profiles: level, experience, match
// results and the global ranking.
package stats

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"snakeball-backend/models"
)

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrInvalidSort    = errors.New("unknown ranking order")
)

const (
	SortResults     = "results"
	SortPerformance = "performance"

	RankingLimit = 100
)

type Profile struct {
	Username     string `json:"username"`
	Level        int    `json:"level"`
	Experience   int    `json:"experience"`
	XPToNext     int    `json:"xpToNextLevel"`
	Goals        int    `json:"totalGoals"`
	Assists      int    `json:"totalAssists"`
	Touches      int    `json:"totalTouches"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	Draws        int    `json:"draws"`
	TotalMatches int    `json:"totalMatches"`
}

type Outcome string

const (
	Win  Outcome = "win"
	Loss Outcome = "loss"
	Draw Outcome = "draw"
)

type PlayerResult struct {
	Username string
	Team     models.Team
	Goals    int
	Assists  int
	Touches  int
	Outcome  Outcome
}

type MatchRecord struct {
	RoomID   string
	Score    models.Score
	Winner   string
	Reason   string
	Duration int
	PlayedAt time.Time
	Players  []PlayerResult
}

// NewMatchRecord converts a finished match into the record persisted for it.
func NewMatchRecord(res models.MatchResult, at time.Time) MatchRecord {
	rec := MatchRecord{
		RoomID:   res.RoomID,
		Score:    res.Score,
		Winner:   res.Winner,
		Reason:   res.Reason,
		Duration: res.Duration,
		PlayedAt: at,
		Players:  make([]PlayerResult, 0, len(res.PlayerMatchStats)),
	}
	for _, st := range res.PlayerMatchStats {
		outcome := Loss
		switch res.Winner {
		case models.Draw:
			outcome = Draw
		case string(st.Team):
			outcome = Win
		}
		rec.Players = append(rec.Players, PlayerResult{
			Username: st.Name,
			Team:     st.Team,
			Goals:    st.Goals,
			Assists:  st.Assists,
			Touches:  st.Touches,
			Outcome:  outcome,
		})
	}
	return rec
}

// Recorder is the persistence service the game talks to.
type Recorder interface {
	FindOrCreate(ctx context.Context, username string) (Profile, error)
	Profile(ctx context.Context, username string) (Profile, error)
	// RecordMatch applies a finished match and returns the updated profiles
	// keyed by username.
	RecordMatch(ctx context.Context, rec MatchRecord) (map[string]Profile, error)
	Ranking(ctx context.Context, sortBy string, limit int) ([]Profile, error)
	Close()
}
