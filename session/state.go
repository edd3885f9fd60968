package session

import "github.com/pkg/errors"

// State is a room's lifecycle state.
type State int

const (
	Lobby State = iota
	CountdownToStart
	Active
	GoalPause
	KickoffCountdown
	Ended
)

func (s State) String() string {
	switch s {
	case Lobby:
		return "lobby"
	case CountdownToStart:
		return "countdown"
	case Active:
		return "active"
	case GoalPause:
		return "goalPause"
	case KickoffCountdown:
		return "kickoff"
	case Ended:
		return "ended"
	}
	return "unknown"
}

// InMatch reports whether a match is running in s.
func (s State) InMatch() bool {
	return s == Active || s == GoalPause || s == KickoffCountdown
}

const (
	ReasonTime       = "time"
	ReasonDisconnect = "disconnect"
)

var (
	ErrRoomFull     = errors.New("room is full")
	ErrNotMember    = errors.New("participant is not in this room")
	ErrInvalidInput = errors.New("invalid input")
	ErrClosed       = errors.New("room is closed")
)
