package constants

import "time"

const (
	// Field geometry, in pixels. Avatar positions are segment top-left corners.
	FIELD_WIDTH  = 800.0
	FIELD_HEIGHT = 600.0
	SNAKE_SIZE   = 20.0
	BALL_RADIUS  = 15.0
	GOAL_HEIGHT  = 150.0

	// Goal mouth vertical span, centered on the field.
	GOAL_Y_START = (FIELD_HEIGHT - GOAL_HEIGHT) / 2
	GOAL_Y_END   = GOAL_Y_START + GOAL_HEIGHT

	KICKOFF_OFFSET = 100.0
	TARGET_LENGTH  = 4

	// Simulation
	TICK_HZ        = 30
	TICK_RATE      = time.Second / TICK_HZ
	TICK_DT        = 1.0 / TICK_HZ
	SECOND_RATE    = time.Second
	SNAKE_SPEED    = 300.0 // px/s
	HEADBUTT_SPEED = 500.0

	BALL_FRICTION      = 0.96
	BOUNCE_ENERGY_LOSS = 0.8
	BALL_HIT_SPEED     = 400.0
	HEADBUTT_HIT_SPEED = 800.0
	MAX_BALL_SPEED     = 900.0

	HIT_COOLDOWN_FRAMES      = 4
	HEADBUTT_DURATION_FRAMES = 10
	HEADBUTT_COOLDOWN_FRAMES = 30

	// Lifecycle timing
	START_COUNTDOWN     = 3
	KICKOFF_COUNTDOWN   = 3
	GOAL_PAUSE_DURATION = 2 * time.Second
	COUNTDOWN_STEP      = time.Second
	START_SIGNAL        = "¡YA!"

	DEFAULT_DURATION = 60
	MIN_DURATION     = 30
	MAX_DURATION     = 600

	TEAM1_COLOR = "#FF4136"
	TEAM2_COLOR = "#0074D9"

	// Inbound message types
	MSG_CREATE_ROOM      = "createRoom"
	MSG_JOIN_ROOM        = "joinRoom"
	MSG_JOIN_ROOM_BY_ID  = "joinRoomById"
	MSG_PLAYER_READY     = "playerReady"
	MSG_DIRECTION_CHANGE = "directionChange"
	MSG_LEAVE_ROOM       = "leaveRoom"
	MSG_DELETE_ROOM      = "deleteRoom"
	MSG_LIST_ROOMS       = "listRooms"
	MSG_GET_RANKING      = "getGlobalRanking"

	// Outbound message types
	MSG_CONNECTED         = "connected"
	MSG_JOINED_ROOM       = "joinedRoom"
	MSG_ROOM_LIST         = "roomList"
	MSG_ROOM_UPDATE       = "roomUpdate"
	MSG_ROOM_CLOSED       = "roomClosed"
	MSG_SHOW_LOBBY        = "showLobby"
	MSG_ONLINE_USERS      = "onlineUsers"
	MSG_GAME_COUNTDOWN    = "gameCountdown"
	MSG_KICKOFF_COUNTDOWN = "kickoffCountdown"
	MSG_GAME_START        = "gameStart"
	MSG_GAME_STATE        = "gameState"
	MSG_GAME_OVER         = "gameOver"
	MSG_PLAYER_STATS      = "playerStats"
	MSG_RANKING_UPDATE    = "globalRankingUpdate"
	MSG_ERROR             = "error"
)

type Direction string

const (
	STOP  Direction = "stop"
	UP    Direction = "up"
	DOWN  Direction = "down"
	LEFT  Direction = "left"
	RIGHT Direction = "right"
)

// ParseDirection accepts only the four cardinal directions a client may send.
func ParseDirection(s string) (Direction, bool) {
	switch d := Direction(s); d {
	case UP, DOWN, LEFT, RIGHT:
		return d, true
	}
	return "", false
}

// Opposite returns the 180° reverse of d. STOP has no opposite.
func (d Direction) Opposite() Direction {
	switch d {
	case UP:
		return DOWN
	case DOWN:
		return UP
	case LEFT:
		return RIGHT
	case RIGHT:
		return LEFT
	}
	return ""
}
