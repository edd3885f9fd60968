package protocol

import (
	"encoding/json"

	"snakeball-backend/models"
)

// Envelope frames every message on the wire.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound payloads.

type CreateRoom struct {
	Mode     string `json:"mode"`
	Duration int    `json:"duration"`
	Private  bool   `json:"private"`
}

type JoinRoom struct {
	RoomID string `json:"roomId"`
}

type DeleteRoom struct {
	RoomID string `json:"roomId"`
}

type DirectionChange struct {
	Direction string `json:"direction"`
}

type RankingRequest struct {
	SortBy string `json:"sortBy"`
}

// Outbound payloads not owned by another package.

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Notice struct {
	Message string `json:"message"`
}

type Connected struct {
	Participant models.Player `json:"participant"`
}

type JoinedRoom struct {
	Room models.RoomSummary `json:"room"`
	Team models.Team        `json:"team"`
}
