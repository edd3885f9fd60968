package game

import (
	"github.com/pkg/errors"

	"snakeball-backend/lobby"
	"snakeball-backend/session"
)

var (
	ErrInvalidConfig = errors.New("invalid room configuration")
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrNotOwner      = errors.New("only the room owner can do that")
	ErrUsernameTaken = errors.New("username is already connected")
	// ErrInvalidInput covers malformed or out-of-place events. It is never
	// reported to the client.
	ErrInvalidInput = errors.New("invalid input")
)

type wireError struct {
	code    string
	message string
}

var wireErrors = map[error]wireError{
	ErrInvalidConfig: {"INVALID_CONFIG", "Invalid room configuration"},
	ErrRoomNotFound:  {"ROOM_NOT_FOUND", "Room not found"},
	ErrRoomFull:      {"ROOM_FULL", "Room is full"},
	ErrNotOwner:      {"NOT_OWNER", "Only the room owner can delete the room"},
	ErrUsernameTaken: {"USERNAME_EXISTS", "That username is already connected"},
}

// Describe returns the wire code and message for err. ok is false for errors
// that must not reach the client.
func Describe(err error) (code, message string, ok bool) {
	we, ok := wireErrors[errors.Cause(err)]
	return we.code, we.message, ok
}

// fromSession maps room-level errors onto the registry taxonomy.
func fromSession(err error) error {
	switch errors.Cause(err) {
	case nil:
		return nil
	case session.ErrRoomFull:
		return ErrRoomFull
	case session.ErrClosed:
		return ErrRoomNotFound
	default:
		return ErrInvalidInput
	}
}

func fromLobby(err error) error {
	switch errors.Cause(err) {
	case nil:
		return nil
	case lobby.ErrUsernameTaken:
		return ErrUsernameTaken
	default:
		return errors.Wrap(err, "register participant")
	}
}
